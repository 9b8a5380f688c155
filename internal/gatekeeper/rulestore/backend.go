package rulestore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports a rule file that does not exist yet.
	ErrNotFound = errors.New("rulestore: file not found")

	// ErrStaleVersion reports a write whose supplied sha no longer matches
	// the stored content. The caller must re-read and retry; the store
	// never merges.
	ErrStaleVersion = errors.New("rulestore: stale version")
)

// Backend is the versioned blob protocol beneath the rule store: read a
// file and its content sha, write it back presenting the sha you read.
// A database row with a version column and a remote content-addressed file
// API are both valid implementations.
type Backend interface {
	// Get returns the file content and its current sha.
	Get(ctx context.Context, path string) (content []byte, sha string, err error)

	// Put writes content conditioned on sha: pass the sha from the Get
	// that produced content, or "" to create a new file. Returns the new
	// sha on success and ErrStaleVersion when the condition fails.
	Put(ctx context.Context, path string, content []byte, sha string) (string, error)

	// List returns all known file paths.
	List(ctx context.Context) ([]string, error)
}
