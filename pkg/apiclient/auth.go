package apiclient

import "time"

// unix seconds, as serialized by JWT NumericDate claims
type unixTime float64

// Time converts the claim to a time.Time.
func (u unixTime) Time() time.Time {
	return time.Unix(int64(u), 0)
}

// TokenPair is a freshly minted access/refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Identity describes the bearer of the current access token.
type Identity struct {
	Username  string   `json:"username"`
	Role      string   `json:"role"`
	ExpiresAt unixTime `json:"expires_at"`
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.post("/api/v1/auth/refresh", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Me introspects the current bearer token.
func (c *Client) Me() (*Identity, error) {
	var id Identity
	if err := c.get("/api/v1/auth/me", &id); err != nil {
		return nil, err
	}
	return &id, nil
}
