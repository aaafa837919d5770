package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mountfd/pkg/controlplane/api/auth"
	"github.com/marmos91/mountfd/pkg/fsfd"
	"github.com/marmos91/mountfd/pkg/fstype"
	"github.com/marmos91/mountfd/pkg/fstype/memfs"
	"github.com/marmos91/mountfd/pkg/mountapi"
)

const testSecret = "test-secret-key-for-testing-only-32chars"

// testStack wires a real registry, descriptor table and mount API behind a
// router, plus pre-minted tokens for both roles.
type testStack struct {
	router      http.Handler
	registry    *fstype.Registry
	table       *fsfd.Table
	adminToken  string
	viewerToken string
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	registry := fstype.NewRegistry()
	require.NoError(t, registry.Register(memfs.New()))

	table := fsfd.NewTable(0)
	t.Cleanup(table.CloseAll)

	mountAPI, err := mountapi.New(mountapi.Options{
		Types:     registry,
		Table:     table,
		Resolver:  mountapi.NewRegistryResolver(registry),
		Instances: registry,
	})
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: testSecret})
	require.NoError(t, err)

	adminPair, err := jwtService.GenerateTokenPair("admin", auth.RoleAdmin)
	require.NoError(t, err)
	viewerPair, err := jwtService.GenerateTokenPair("viewer", auth.RoleViewer)
	require.NoError(t, err)

	return &testStack{
		router:      NewRouter(registry, table, mountAPI, jwtService),
		registry:    registry,
		table:       table,
		adminToken:  adminPair.AccessToken,
		viewerToken: viewerPair.AccessToken,
	}
}

// do runs one request through the router and decodes the JSON response.
func (s *testStack) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded))
	}
	return rr.Code, decoded
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestStack(t)

	code, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "mountfd", body["service"])

	code, body = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, float64(1), body["filesystem_types"])
}

func TestAuthRequired(t *testing.T) {
	s := newTestStack(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/contexts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/contexts", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestViewerCannotMutate(t *testing.T) {
	s := newTestStack(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/contexts", s.viewerToken,
		map[string]any{"fstype": "memfs"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/contexts", s.viewerToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestContextLifecycle(t *testing.T) {
	s := newTestStack(t)

	// Open a new-mount context
	code, body := s.do(t, http.MethodPost, "/api/v1/contexts", s.adminToken,
		map[string]any{"fstype": "memfs", "cloexec": true})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "CreateParams", body["phase"])

	fd := int(body["fd"].(float64))
	base := fmt.Sprintf("/api/v1/contexts/%d", fd)

	// Configure source and options
	for _, cfg := range []map[string]any{
		{"command": "set_string", "key": "source", "value": "mem0"},
		{"command": "set_flag", "key": "ro"},
		{"command": "set_string", "key": "size", "value": "16MiB"},
	} {
		code, body = s.do(t, http.MethodPost, base+"/config", s.adminToken, cfg)
		require.Equal(t, http.StatusOK, code, "config %v", cfg)
	}
	assert.Equal(t, "mem0", body["source"])

	// Create the instance
	code, body = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "cmd_create"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AwaitingMount", body["phase"])

	// A second create is rejected in this phase
	code, body = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "cmd_create"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Busy", body["code"])

	// Drain the creation diagnostic
	code, body = s.do(t, http.MethodGet, base+"/log", s.adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	lines := body["lines"].([]any)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "created memfs instance")

	// Listing shows the context
	code, body = s.do(t, http.MethodGet, "/api/v1/contexts", s.viewerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	// Close the descriptor
	code, _ = s.do(t, http.MethodDelete, base, s.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = s.do(t, http.MethodGet, base, s.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPickAndReconfigure(t *testing.T) {
	s := newTestStack(t)

	// Creating an instance through the API records it for picking.
	mountNewInstance(t, s, "mem1")

	// Pick it for reconfiguration
	code, body := s.do(t, http.MethodPost, "/api/v1/contexts/pick", s.adminToken,
		map[string]any{"path": "mem1"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "ReconfParams", body["phase"])
	assert.Equal(t, "reconfigure", body["purpose"])

	fd := int(body["fd"].(float64))
	base := fmt.Sprintf("/api/v1/contexts/%d", fd)

	code, _ = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "set_flag", "key": "ro"})
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "cmd_reconfigure"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AwaitingReconf", body["phase"])

	// Unknown source fails before any context is allocated
	code, _ = s.do(t, http.MethodPost, "/api/v1/contexts/pick", s.adminToken,
		map[string]any{"path": "missing"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvalidConfigureRequests(t *testing.T) {
	s := newTestStack(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/contexts", s.adminToken,
		map[string]any{"fstype": "memfs"})
	require.Equal(t, http.StatusCreated, code)
	fd := int(body["fd"].(float64))
	base := fmt.Sprintf("/api/v1/contexts/%d", fd)

	// Unknown command name
	code, _ = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "set_magic", "key": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	// Unknown parameter is a recoverable driver error
	code, body = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "set_flag", "key": "bogus"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "InvalidArgument", body["code"])

	// Invalid base64 blob
	code, _ = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "set_binary", "key": "seed", "value_base64": "!!!"})
	assert.Equal(t, http.StatusBadRequest, code)

	// Bad descriptor in path
	code, _ = s.do(t, http.MethodPost, "/api/v1/contexts/nope/config", s.adminToken,
		map[string]any{"command": "set_flag", "key": "ro"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFilesystemsAndInstances(t *testing.T) {
	s := newTestStack(t)

	code, body := s.do(t, http.MethodGet, "/api/v1/filesystems", s.viewerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"memfs"}, body["filesystems"])

	mountNewInstance(t, s, "mem2")

	code, body = s.do(t, http.MethodGet, "/api/v1/instances", s.viewerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])
}

func TestAuthRefreshAndMe(t *testing.T) {
	s := newTestStack(t)

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: testSecret})
	require.NoError(t, err)
	pair, err := jwtService.GenerateTokenPair("operator", auth.RoleViewer)
	require.NoError(t, err)

	code, body := s.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		map[string]any{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["access_token"])

	code, body = s.do(t, http.MethodGet, "/api/v1/auth/me", body["access_token"].(string), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "operator", body["username"])
	assert.Equal(t, "viewer", body["role"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		map[string]any{"refresh_token": pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestNewServerRequiresSecret(t *testing.T) {
	s := newTestStack(t)

	_, err := NewServer(APIConfig{}, s.registry, s.table, nil)
	assert.Error(t, err)
}

func TestServerLifecycle(t *testing.T) {
	s := newTestStack(t)

	mountAPI, err := mountapi.New(mountapi.Options{Types: s.registry, Table: s.table})
	require.NoError(t, err)

	cfg := APIConfig{
		Port: 18080,
		JWT:  JWTConfig{Secret: testSecret},
	}
	server, err := NewServer(cfg, s.registry, s.table, mountAPI)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/health", cfg.Port))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Graceful shutdown
	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

// mountNewInstance drives a full open/configure/create cycle through the
// API; the create publishes the instance under source.
func mountNewInstance(t *testing.T, s *testStack, source string) {
	t.Helper()

	code, body := s.do(t, http.MethodPost, "/api/v1/contexts", s.adminToken,
		map[string]any{"fstype": "memfs"})
	require.Equal(t, http.StatusCreated, code)
	fd := int(body["fd"].(float64))
	base := fmt.Sprintf("/api/v1/contexts/%d", fd)

	code, _ = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "set_string", "key": "source", "value": source})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, base+"/config", s.adminToken,
		map[string]any{"command": "cmd_create"})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, base, s.adminToken, nil)
	require.Equal(t, http.StatusNoContent, code)
}
