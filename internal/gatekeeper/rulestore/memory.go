package rulestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
)

// MemoryBackend keeps rule files in process memory with the same
// compare-and-swap semantics as the durable backends. Used by tests and
// throwaway dev setups.
type MemoryBackend struct {
	mu    sync.Mutex
	files map[string]memoryFile
}

type memoryFile struct {
	content []byte
	sha     string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{files: make(map[string]memoryFile)}
}

func (b *MemoryBackend) Get(_ context.Context, path string) ([]byte, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.files[path]
	if !ok {
		return nil, "", ErrNotFound
	}

	content := make([]byte, len(f.content))
	copy(content, f.content)
	return content, f.sha, nil
}

func (b *MemoryBackend) Put(_ context.Context, path string, content []byte, sha string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, exists := b.files[path]
	switch {
	case sha == "" && exists:
		// Create raced with another create.
		return "", ErrStaleVersion
	case sha != "" && !exists:
		return "", ErrNotFound
	case sha != "" && current.sha != sha:
		return "", ErrStaleVersion
	}

	stored := make([]byte, len(content))
	copy(stored, content)

	newSHA := ContentSHA(content)
	b.files[path] = memoryFile{content: stored, sha: newSHA}
	return newSHA, nil
}

func (b *MemoryBackend) List(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	paths := make([]string, 0, len(b.files))
	for p := range b.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// ContentSHA is the content-addressed version token: hex SHA-256 of the
// file bytes. Shared by the backends that compute versions locally.
func ContentSHA(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
