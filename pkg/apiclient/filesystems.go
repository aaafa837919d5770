package apiclient

import "time"

// FilesystemList is the response of GET /api/v1/filesystems.
type FilesystemList struct {
	Filesystems []string `json:"filesystems"`
	Count       int      `json:"count"`
}

// Instance is the wire form of one live filesystem instance.
type Instance struct {
	Source    string    `json:"source"`
	FSType    string    `json:"fstype"`
	MountedAt time.Time `json:"mounted_at"`
}

// InstanceList is the response of GET /api/v1/instances.
type InstanceList struct {
	Instances []Instance `json:"instances"`
	Count     int        `json:"count"`
}

// ListFilesystems returns the registered filesystem driver names.
func (c *Client) ListFilesystems() (*FilesystemList, error) {
	var list FilesystemList
	if err := c.get("/api/v1/filesystems", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListInstances returns the live filesystem instances.
func (c *Client) ListInstances() (*InstanceList, error) {
	var list InstanceList
	if err := c.get("/api/v1/instances", &list); err != nil {
		return nil, err
	}
	return &list, nil
}
