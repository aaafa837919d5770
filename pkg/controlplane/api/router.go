package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/mountfd/internal/controlplane/api/handlers"
	apiMiddleware "github.com/marmos91/mountfd/internal/controlplane/api/middleware"
	"github.com/marmos91/mountfd/internal/logger"
	"github.com/marmos91/mountfd/pkg/controlplane/api/auth"
	"github.com/marmos91/mountfd/pkg/fsfd"
	"github.com/marmos91/mountfd/pkg/fstype"
	"github.com/marmos91/mountfd/pkg/mountapi"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - POST /api/v1/auth/refresh - Token refresh
//   - GET /api/v1/auth/me - Current bearer info
//   - GET /api/v1/contexts - List open contexts (admin + viewer)
//   - GET /api/v1/contexts/{fd} - Context snapshot (admin + viewer)
//   - GET /api/v1/contexts/{fd}/log - Drain diagnostics (admin only)
//   - POST /api/v1/contexts - Open a new-mount context (admin only)
//   - POST /api/v1/contexts/pick - Open a reconfiguration context (admin only)
//   - POST /api/v1/contexts/{fd}/config - Apply a configure command (admin only)
//   - DELETE /api/v1/contexts/{fd} - Close a descriptor (admin only)
//   - GET /api/v1/filesystems - Registered driver names (admin + viewer)
//   - GET /api/v1/instances - Live filesystem instances (admin + viewer)
func NewRouter(registry *fstype.Registry, table *fsfd.Table, mountAPI *mountapi.API, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(registry, table)

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	authHandler := handlers.NewAuthHandler(jwtService)
	contextHandler := handlers.NewContextHandler(mountAPI, table)
	filesystemHandler := handlers.NewFilesystemHandler(registry)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Route("/auth", func(r chi.Router) {
			// Public endpoint
			r.Post("/refresh", authHandler.Refresh)

			// Authenticated endpoint
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.JWTAuth(jwtService))
				r.Get("/me", authHandler.Me)
			})
		})

		// Protected routes - require authentication
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.JWTAuth(jwtService))

			// Read endpoints: admin + viewer
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireRole(auth.RoleAdmin, auth.RoleViewer))

				r.Get("/contexts", contextHandler.List)
				r.Get("/contexts/{fd}", contextHandler.Get)
				r.Get("/filesystems", filesystemHandler.List)
				r.Get("/instances", filesystemHandler.Instances)
			})

			// Mutating endpoints and log draining: admin only. Draining is
			// destructive - lines are consumed by the read.
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireAdmin())

				r.Post("/contexts", contextHandler.Open)
				r.Post("/contexts/pick", contextHandler.Pick)
				r.Post("/contexts/{fd}/config", contextHandler.Configure)
				r.Get("/contexts/{fd}/log", contextHandler.DrainLog)
				r.Delete("/contexts/{fd}", contextHandler.Close)
			})
		})
	})

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		// Log healthcheck requests at DEBUG to avoid polluting logs in k8s
		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
