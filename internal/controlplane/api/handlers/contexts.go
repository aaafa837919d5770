package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/mountfd/internal/controlplane/api/middleware"
	"github.com/marmos91/mountfd/pkg/fscontext"
	"github.com/marmos91/mountfd/pkg/fserrors"
	"github.com/marmos91/mountfd/pkg/fsfd"
	"github.com/marmos91/mountfd/pkg/mountapi"
)

// ContextHandler exposes mount configuration contexts over HTTP.
//
// Every route maps onto one subsystem entry point: opening a context binds
// a descriptor, configuration is applied per descriptor, and the diagnostic
// log is drained through the descriptor's read side.
type ContextHandler struct {
	api   *mountapi.API
	table *fsfd.Table
}

// NewContextHandler creates a new context handler.
func NewContextHandler(api *mountapi.API, table *fsfd.Table) *ContextHandler {
	return &ContextHandler{api: api, table: table}
}

// roleCaller adapts JWT claims to the subsystem's capability check.
type roleCaller struct {
	admin bool
}

func (c roleCaller) CapableAdmin() bool { return c.admin }

// callerFor derives the subsystem caller from the authenticated request.
func callerFor(r *http.Request) mountapi.Caller {
	claims := middleware.GetClaimsFromContext(r.Context())
	return roleCaller{admin: claims != nil && claims.IsAdmin()}
}

// descriptorView is a Snapshot bound to the descriptor it is reachable
// through.
type descriptorView struct {
	FD int `json:"fd"`
	fscontext.Snapshot
}

// openRequest is the body for POST /api/v1/contexts.
type openRequest struct {
	FSType  string `json:"fstype"`
	Cloexec bool   `json:"cloexec"`
}

// Open handles POST /api/v1/contexts - open a new mount configuration
// context for a filesystem type.
func (h *ContextHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	var flags mountapi.OpenFlags
	if req.Cloexec {
		flags |= mountapi.FSOpenCloexec
	}

	fd, err := h.api.FSOpen(r.Context(), callerFor(r), req.FSType, flags)
	if err != nil {
		WriteOperationError(w, err)
		return
	}

	view, err := h.snapshotFD(fd)
	if err != nil {
		WriteOperationError(w, err)
		return
	}
	WriteJSONCreated(w, view)
}

// pickRequest is the body for POST /api/v1/contexts/pick. DirFD anchors
// relative resolution; omitted it defaults to the resolver's own base.
type pickRequest struct {
	Path    string `json:"path"`
	DirFD   *int   `json:"dirfd,omitempty"`
	Cloexec bool   `json:"cloexec"`
}

// Pick handles POST /api/v1/contexts/pick - open a reconfiguration context
// targeting an existing filesystem instance.
func (h *ContextHandler) Pick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	var flags mountapi.PickFlags
	if req.Cloexec {
		flags |= mountapi.FSPickCloexec
	}

	dirfd := mountapi.AnchorCWD
	if req.DirFD != nil {
		dirfd = *req.DirFD
	}

	fd, err := h.api.FSPick(r.Context(), callerFor(r), dirfd, req.Path, flags)
	if err != nil {
		WriteOperationError(w, err)
		return
	}

	view, err := h.snapshotFD(fd)
	if err != nil {
		WriteOperationError(w, err)
		return
	}
	WriteJSONCreated(w, view)
}

// List handles GET /api/v1/contexts - snapshot every open context.
func (h *ContextHandler) List(w http.ResponseWriter, r *http.Request) {
	views := make([]descriptorView, 0)
	for _, fd := range h.table.FDs() {
		view, err := h.snapshotFD(fd)
		if err != nil {
			// The descriptor raced with a close; skip it.
			continue
		}
		views = append(views, view)
	}

	WriteJSONOK(w, map[string]any{
		"contexts": views,
		"count":    len(views),
	})
}

// Get handles GET /api/v1/contexts/{fd}.
func (h *ContextHandler) Get(w http.ResponseWriter, r *http.Request) {
	fd, ok := fdParam(w, r)
	if !ok {
		return
	}

	view, err := h.snapshotFD(fd)
	if err != nil {
		WriteOperationError(w, err)
		return
	}
	WriteJSONOK(w, view)
}

// configureRequest is the body for POST /api/v1/contexts/{fd}/config.
//
// Value carries string parameter values; ValueBase64 carries binary blobs.
// Flag parameters and triggers take neither.
type configureRequest struct {
	Command     string  `json:"command"`
	Key         string  `json:"key"`
	Value       *string `json:"value,omitempty"`
	ValueBase64 string  `json:"value_base64,omitempty"`
	Aux         int     `json:"aux,omitempty"`
}

// Configure handles POST /api/v1/contexts/{fd}/config - apply one
// configuration command to the context bound to fd.
func (h *ContextHandler) Configure(w http.ResponseWriter, r *http.Request) {
	fd, ok := fdParam(w, r)
	if !ok {
		return
	}

	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	cmd, err := fscontext.ParseCommand(req.Command)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var value []byte
	switch {
	case req.ValueBase64 != "":
		value, err = base64.StdEncoding.DecodeString(req.ValueBase64)
		if err != nil {
			BadRequest(w, "value_base64 is not valid base64")
			return
		}
	case req.Value != nil:
		value = []byte(*req.Value)
	}

	aux := req.Aux
	if cmd == fscontext.CmdSetBinary && aux == 0 {
		aux = len(value)
	}

	if err := h.api.FSConfig(r.Context(), fd, cmd, req.Key, value, aux); err != nil {
		WriteOperationError(w, err)
		return
	}

	view, err := h.snapshotFD(fd)
	if err != nil {
		WriteOperationError(w, err)
		return
	}
	WriteJSONOK(w, view)
}

// DrainLog handles GET /api/v1/contexts/{fd}/log - drain all pending
// diagnostic lines from the context's log.
func (h *ContextHandler) DrainLog(w http.ResponseWriter, r *http.Request) {
	fd, ok := fdParam(w, r)
	if !ok {
		return
	}

	file, _, err := h.table.Get(fd)
	if err != nil {
		WriteOperationError(w, err)
		return
	}
	defer file.DecRef()

	cf, ok := file.(*fsfd.ContextFile)
	if !ok {
		WriteOperationError(w, fserrors.NewBadDescriptor(fd))
		return
	}

	lines := make([]string, 0)
	buf := make([]byte, fscontext.MaxLogLineSize)
	for {
		n, err := cf.Read(r.Context(), buf)
		if err != nil {
			if fserrors.IsNoData(err) {
				break
			}
			WriteOperationError(w, err)
			return
		}
		lines = append(lines, string(buf[:n]))
	}

	WriteJSONOK(w, map[string]any{
		"fd":      fd,
		"lines":   lines,
		"dropped": cf.Context().Snapshot().DroppedLogLines,
	})
}

// Close handles DELETE /api/v1/contexts/{fd} - release the descriptor and
// drop its context reference.
func (h *ContextHandler) Close(w http.ResponseWriter, r *http.Request) {
	fd, ok := fdParam(w, r)
	if !ok {
		return
	}

	if err := h.table.Close(fd); err != nil {
		WriteOperationError(w, err)
		return
	}
	WriteNoContent(w)
}

// snapshotFD resolves fd to a context snapshot, holding a reference only
// for the duration of the call.
func (h *ContextHandler) snapshotFD(fd int) (descriptorView, error) {
	file, _, err := h.table.Get(fd)
	if err != nil {
		return descriptorView{}, err
	}
	defer file.DecRef()

	cf, ok := file.(*fsfd.ContextFile)
	if !ok {
		return descriptorView{}, fserrors.NewBadDescriptor(fd)
	}

	return descriptorView{FD: fd, Snapshot: cf.Context().Snapshot()}, nil
}

// fdParam parses the {fd} route parameter, writing a 400 on failure.
func fdParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	fd, err := strconv.Atoi(chi.URLParam(r, "fd"))
	if err != nil || fd < 0 {
		BadRequest(w, "invalid descriptor")
		return 0, false
	}
	return fd, true
}
