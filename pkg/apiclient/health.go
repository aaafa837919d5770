package apiclient

// Health is the response of GET /health.
type Health struct {
	Service   string `json:"service"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// Readiness is the response of GET /health/ready.
type Readiness struct {
	Status          string `json:"status"`
	FilesystemTypes int    `json:"filesystem_types"`
	Instances       int    `json:"instances"`
	OpenDescriptors int    `json:"open_descriptors"`
}

// Health checks the liveness endpoint. It requires no authentication.
func (c *Client) Health() (*Health, error) {
	var h Health
	if err := c.get("/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Ready checks the readiness endpoint. It requires no authentication.
func (c *Client) Ready() (*Readiness, error) {
	var r Readiness
	if err := c.get("/health/ready", &r); err != nil {
		return nil, err
	}
	return &r, nil
}
