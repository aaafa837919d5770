package apiclient

import "strconv"

// ContextView is the wire form of one mount configuration context, bound to
// the descriptor it is reachable through.
type ContextView struct {
	FD              int    `json:"fd"`
	ID              string `json:"id"`
	FSType          string `json:"fstype"`
	Purpose         string `json:"purpose"`
	Phase           string `json:"phase"`
	Source          string `json:"source,omitempty"`
	PendingLogLines int    `json:"pending_log_lines"`
	DroppedLogLines uint64 `json:"dropped_log_lines"`
}

// ContextList is the response of GET /api/v1/contexts.
type ContextList struct {
	Contexts []ContextView `json:"contexts"`
	Count    int           `json:"count"`
}

// OpenContextRequest is the body for opening a new context.
type OpenContextRequest struct {
	FSType  string `json:"fstype"`
	Cloexec bool   `json:"cloexec,omitempty"`
}

// PickContextRequest is the body for opening a reconfiguration context.
// DirFD anchors relative resolution; left nil the server resolves against
// its default base.
type PickContextRequest struct {
	Path    string `json:"path"`
	DirFD   *int   `json:"dirfd,omitempty"`
	Cloexec bool   `json:"cloexec,omitempty"`
}

// ConfigureRequest is the body for applying one configuration command.
//
// Value carries string parameter values; ValueBase64 carries binary blobs.
// Flag parameters and triggers take neither.
type ConfigureRequest struct {
	Command     string  `json:"command"`
	Key         string  `json:"key,omitempty"`
	Value       *string `json:"value,omitempty"`
	ValueBase64 string  `json:"value_base64,omitempty"`
	Aux         int     `json:"aux,omitempty"`
}

// LogDrain is the response of GET /api/v1/contexts/{fd}/log.
type LogDrain struct {
	FD      int      `json:"fd"`
	Lines   []string `json:"lines"`
	Dropped uint64   `json:"dropped"`
}

// ListContexts returns a snapshot of every open context.
func (c *Client) ListContexts() (*ContextList, error) {
	var list ContextList
	if err := c.get("/api/v1/contexts", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetContext returns the context bound to fd.
func (c *Client) GetContext(fd int) (*ContextView, error) {
	var view ContextView
	if err := c.get(contextPath(fd), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// OpenContext opens a new mount configuration context for a filesystem type.
func (c *Client) OpenContext(req OpenContextRequest) (*ContextView, error) {
	var view ContextView
	if err := c.post("/api/v1/contexts", req, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// PickContext opens a reconfiguration context targeting an existing
// filesystem instance.
func (c *Client) PickContext(req PickContextRequest) (*ContextView, error) {
	var view ContextView
	if err := c.post("/api/v1/contexts/pick", req, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Configure applies one configuration command to the context bound to fd
// and returns the resulting snapshot.
func (c *Client) Configure(fd int, req ConfigureRequest) (*ContextView, error) {
	var view ContextView
	if err := c.post(contextPath(fd)+"/config", req, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DrainLog drains all pending diagnostic lines from the context's log.
// Draining consumes the lines; a second drain returns an empty slice.
func (c *Client) DrainLog(fd int) (*LogDrain, error) {
	var drain LogDrain
	if err := c.get(contextPath(fd)+"/log", &drain); err != nil {
		return nil, err
	}
	return &drain, nil
}

// CloseContext releases the descriptor and drops its context reference.
func (c *Client) CloseContext(fd int) error {
	return c.delete(contextPath(fd), nil)
}

func contextPath(fd int) string {
	return "/api/v1/contexts/" + strconv.Itoa(fd)
}
