package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/mountfd/pkg/fstype"
)

// FilesystemHandler exposes the filesystem driver registry and the live
// instances tracked through it.
type FilesystemHandler struct {
	registry *fstype.Registry
}

// NewFilesystemHandler creates a new filesystem handler.
func NewFilesystemHandler(registry *fstype.Registry) *FilesystemHandler {
	return &FilesystemHandler{registry: registry}
}

// List handles GET /api/v1/filesystems - registered driver names.
func (h *FilesystemHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	WriteJSONOK(w, map[string]any{
		"filesystems": names,
		"count":       len(names),
	})
}

// instanceView is the wire form of one live filesystem instance.
type instanceView struct {
	Source    string    `json:"source"`
	FSType    string    `json:"fstype"`
	MountedAt time.Time `json:"mounted_at"`
}

// Instances handles GET /api/v1/instances - live filesystem instances.
func (h *FilesystemHandler) Instances(w http.ResponseWriter, r *http.Request) {
	instances := h.registry.ListInstances()

	views := make([]instanceView, 0, len(instances))
	for _, inst := range instances {
		views = append(views, instanceView{
			Source:    inst.Source,
			FSType:    inst.FSType,
			MountedAt: inst.MountedAt,
		})
	}

	WriteJSONOK(w, map[string]any{
		"instances": views,
		"count":     len(views),
	})
}
