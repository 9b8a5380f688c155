// Package tokenstore holds the blacklist of revoked token fingerprints.
// Entries carry the token's natural expiry; once a token would have expired
// anyway the entry is purged so the set never grows without bound.
package tokenstore

import (
	"context"
	"time"
)

// Store is the blacklist capability. Two implementations exist: an
// in-process map with a periodic sweep, and a redis-backed store where the
// server TTL does the purging. Nothing else in the system depends on which
// one is active.
//
// Individual key operations are atomic at the granularity of a single
// fingerprint; no cross-key transaction is ever required.
type Store interface {
	// Add blacklists a fingerprint until expiresAt.
	Add(ctx context.Context, fingerprint string, expiresAt time.Time) error

	// Contains reports whether the fingerprint is currently blacklisted.
	// An expired entry counts as absent even before the sweep removes it.
	Contains(ctx context.Context, fingerprint string) (bool, error)

	// Delete removes a fingerprint. Deleting an absent key is a no-op.
	Delete(ctx context.Context, fingerprint string) error

	// Close stops any background work and releases resources.
	Close() error
}
