package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/marmos91/mountfd/internal/controlplane/api/middleware"
	"github.com/marmos91/mountfd/pkg/controlplane/api/auth"
)

// AuthHandler handles token endpoints.
//
// There is no user store: access tokens are minted out-of-band with the
// mountfd token command. The handler only supports refreshing an existing
// pair and introspecting the current bearer.
type AuthHandler struct {
	jwtService *auth.JWTService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{jwtService: jwtService}
}

// refreshRequest is the body for POST /api/v1/auth/refresh.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/v1/auth/refresh - exchange a refresh token for
// a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		BadRequest(w, "refresh_token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid refresh token")
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(claims.Username, claims.Role)
	if err != nil {
		InternalServerError(w, "failed to generate tokens")
		return
	}

	WriteJSONOK(w, pair)
}

// Me handles GET /api/v1/auth/me - introspect the current bearer.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}

	WriteJSONOK(w, map[string]any{
		"username":   claims.Username,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt,
	})
}
