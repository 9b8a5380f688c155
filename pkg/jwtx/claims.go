package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token use markers. Access and refresh tokens share the signing secret, so
// the use claim is what keeps a refresh token from passing as an access
// token (and vice versa).
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Default token TTLs. Short access tokens limit the blast radius of a leak;
// refresh tokens are blacklisted on rotation anyway.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// RoleClaim is one role grant embedded in a token: the role kind plus the
// group ids the role is scoped to.
type RoleClaim struct {
	Role   string   `json:"role"`
	Groups []string `json:"groups,omitempty"`
}

// Claims are the token claims used across the service. Keep changes additive
// so already-issued tokens keep decoding.
type Claims struct {
	jwt.RegisteredClaims

	// Use distinguishes access from refresh tokens ("access"/"refresh").
	Use string `json:"use,omitempty"`

	// Name is the display name for the authenticated user.
	Name string `json:"name,omitempty"`

	// Roles carries the role grants as of issuance. Authorization uses the
	// role store as the source of truth on refresh; these claims cover the
	// access token's lifetime only.
	Roles []RoleClaim `json:"roles,omitempty"`
}

// NewClaims builds minimally-correct claims for the given token use.
func NewClaims(
	use, subject, name string,
	roles []RoleClaim,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Use:   use,
		Name:  name,
		Roles: roles,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateUse ensures the token was issued for the expected use.
func (c *Claims) ValidateUse(expected string) error {
	if c.Use != expected {
		return ErrWrongUse
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
