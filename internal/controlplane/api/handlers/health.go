package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/mountfd/pkg/fsfd"
	"github.com/marmos91/mountfd/pkg/fstype"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the subsystem wired and accepting contexts?
type HealthHandler struct {
	registry  *fstype.Registry
	table     *fsfd.Table
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
//
// Either parameter may be nil, in which case the readiness probe reports
// unavailable.
func NewHealthHandler(registry *fstype.Registry, table *fsfd.Table) *HealthHandler {
	return &HealthHandler{
		registry:  registry,
		table:     table,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. Designed for Kubernetes
// liveness probes; always succeeds as long as the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	WriteJSONOK(w, map[string]any{
		"service":    "mountfd",
		"status":     "healthy",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	})
}

// Readiness handles GET /health/ready - readiness probe.
// Returns 200 OK once the registry and descriptor table are wired.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil || h.table == nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
		})
		return
	}

	WriteJSONOK(w, map[string]any{
		"status":           "ready",
		"filesystem_types": h.registry.Count(),
		"instances":        h.registry.CountInstances(),
		"open_descriptors": h.table.Len(),
	})
}
