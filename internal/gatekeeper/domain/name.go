package domain

import (
	"errors"
	"strings"
)

// ErrInvalidDomain reports a name that fails RFC-1035-style validation.
var ErrInvalidDomain = errors.New("domain: invalid domain name")

const (
	maxDomainLength = 253
	maxLabelLength  = 63
)

// NormalizeDomain canonicalizes a domain name for storage and comparison:
// trimmed, lower-cased, trailing dot removed. It does not validate.
func NormalizeDomain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".")
}

// ValidateDomain checks a normalized name against RFC-1035-style rules:
// dotted labels of letters, digits and hyphens, no leading/trailing hyphen,
// label and total length limits, at least two labels. Single-label hosts
// are rejected on purpose; clients request public internet domains.
func ValidateDomain(name string) error {
	if name == "" || len(name) > maxDomainLength {
		return ErrInvalidDomain
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return ErrInvalidDomain
	}

	for _, label := range labels {
		if len(label) == 0 || len(label) > maxLabelLength {
			return ErrInvalidDomain
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return ErrInvalidDomain
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z':
			case c >= '0' && c <= '9':
			case c == '-':
			default:
				return ErrInvalidDomain
			}
		}
	}

	return nil
}
