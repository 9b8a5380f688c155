package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"Example.COM":      "example.com",
		"  example.com  ":  "example.com",
		"example.com.":     "example.com",
		" WWW.Example.ORG": "www.example.org",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeDomain(in))
	}
}

func TestValidateDomain(t *testing.T) {
	t.Run("accepts ordinary domains", func(t *testing.T) {
		for _, d := range []string{
			"example.com",
			"sub.example.com",
			"xn--bcher-kva.example",
			"a-b.example.co.uk",
			"123.example.com",
		} {
			require.NoError(t, ValidateDomain(d), d)
		}
	})

	t.Run("rejects malformed names", func(t *testing.T) {
		for _, d := range []string{
			"",
			"localhost",       // single label
			"bad_domain.com",  // underscore
			"-bad.example",    // leading hyphen
			"bad-.example",    // trailing hyphen
			"bad..example",    // empty label
			"exa mple.com",    // space
			"http://a.b",      // scheme leaked in
			strings.Repeat("a", 64) + ".com", // label too long
			strings.Repeat("abcdefgh.", 32) + "com", // name too long
		} {
			require.ErrorIs(t, ValidateDomain(d), ErrInvalidDomain, d)
		}
	})
}
