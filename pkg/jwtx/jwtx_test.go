package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *HS256 {
	t.Helper()
	codec, err := NewHS256("unit-test-secret", "issuer-a")
	require.NoError(t, err)
	return codec
}

func TestNewHS256RejectsEmptySecret(t *testing.T) {
	_, err := NewHS256("", "issuer-a")
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	claims := NewClaims(UseAccess, "user-1", "Alex", []RoleClaim{
		{Role: "teacher", Groups: []string{"year7"}},
	}, time.Minute, "issuer-a", time.Now().UTC())

	token, err := codec.Sign(claims)
	require.NoError(t, err)

	got, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "Alex", got.Name)
	require.Equal(t, UseAccess, got.Use)
	require.Equal(t, claims.Roles, got.Roles)
	require.NotEmpty(t, got.ID, "jti is set")
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewHS256("another-secret", "issuer-a")
	require.NoError(t, err)

	token, err := other.Sign(NewClaims(UseAccess, "u", "", nil, time.Minute, "issuer-a", time.Now().UTC()))
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	codec := newTestCodec(t)
	otherIssuer, err := NewHS256("unit-test-secret", "issuer-b")
	require.NoError(t, err)

	token, err := otherIssuer.Sign(NewClaims(UseAccess, "u", "", nil, time.Minute, "issuer-b", time.Now().UTC()))
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Sign(NewClaims(
		UseAccess, "u", "", nil, time.Minute, "issuer-a",
		time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	codec := newTestCodec(t)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := codec.Verify(raw)
		require.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestValidateUse(t *testing.T) {
	c := NewClaims(UseRefresh, "u", "", nil, time.Minute, "issuer-a", time.Now().UTC())
	require.NoError(t, c.ValidateUse(UseRefresh))
	require.ErrorIs(t, c.ValidateUse(UseAccess), ErrWrongUse)
}
