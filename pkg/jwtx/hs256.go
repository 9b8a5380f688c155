package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HS256 is a symmetric signer/verifier pair sharing one server secret.
// The whole deployment trusts a single issuer, so there is no key set or
// kid handling here.
type HS256 struct {
	secret []byte
	issuer string
}

// NewHS256 creates an HS256 codec from the raw signing secret.
// An empty secret is refused outright rather than producing tokens anyone
// can forge.
func NewHS256(secret, issuer string) (*HS256, error) {
	if secret == "" {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &HS256{secret: []byte(secret), issuer: issuer}, nil
}

func (h *HS256) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes claims and turns them into a signed JWT string.
func (h *HS256) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(h.secret)
}

// Verify validates the JWT string and returns its parsed Claims.
// Signature, issuer and expiry are all enforced; the caller still has to
// check the use claim and the blacklist.
func (h *HS256) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, fmt.Errorf("%w: %w", ErrExpired, err)
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrInvalidSig, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}

	if err := claims.ValidateIssuer(h.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
