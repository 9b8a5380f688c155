package domain

import "time"

// TokenPair is what a successful login or refresh returns: a short-lived
// access token and a longer-lived refresh token, both signed JWTs.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresAt    time.Time `json:"expires_at"`           // access token expiry
}
