// Package auth provides JWT authentication for the mountfd control plane API.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenType indicates whether a token is an access token or refresh token.
type TokenType string

const (
	// TokenTypeAccess is a short-lived token used for API authorization.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is a long-lived token used to obtain new access tokens.
	TokenTypeRefresh TokenType = "refresh"
)

// Roles understood by the control plane.
const (
	// RoleAdmin may open, configure and close mount contexts.
	RoleAdmin = "admin"
	// RoleViewer may only inspect contexts and registered filesystem types.
	RoleViewer = "viewer"
)

// Claims represents JWT claims for mountfd control plane authentication.
//
// There is no user database: tokens are minted out-of-band (mountfd token)
// and carry the full authorization decision in the role claim.
type Claims struct {
	jwt.RegisteredClaims

	// Subject name the token was minted for.
	Username string `json:"username"`

	// Role is the bearer's role ("admin" or "viewer").
	Role string `json:"role"`

	// TokenType indicates whether this is an access or refresh token.
	TokenType TokenType `json:"token_type"`
}

// IsAccessToken returns true if this is an access token.
func (c *Claims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken returns true if this is a refresh token.
func (c *Claims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// IsAdmin returns true if the bearer has the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
