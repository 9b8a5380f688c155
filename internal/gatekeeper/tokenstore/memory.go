package tokenstore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Memory is the in-process blacklist. Contains checks expiry lazily, and a
// background sweep drops expired entries on an interval so memory is
// reclaimed even for fingerprints nobody asks about again.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time // fingerprint -> natural expiry

	logger   *slog.Logger
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMemory creates a memory blacklist and starts its sweep worker.
// If interval is 0 or negative, defaults to 5 minutes.
func NewMemory(logger *slog.Logger, interval time.Duration) *Memory {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	m := &Memory{
		entries:  make(map[string]time.Time),
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go m.run()
	return m
}

func (m *Memory) Add(_ context.Context, fingerprint string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[fingerprint] = expiresAt
	return nil
}

func (m *Memory) Contains(_ context.Context, fingerprint string) (bool, error) {
	m.mu.RLock()
	expiresAt, ok := m.entries[fingerprint]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		// Expired entry; the token it guarded is invalid by expiry anyway.
		m.mu.Lock()
		delete(m.entries, fingerprint)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, fingerprint)
	return nil
}

// Close stops the sweep worker. Blocks until the worker has exited.
func (m *Memory) Close() error {
	close(m.stopCh)
	<-m.doneCh
	return nil
}

func (m *Memory) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

// sweep removes entries whose natural expiry has passed. Runs concurrently
// with Add/Contains/Delete; the mutex keeps single-key consistency.
func (m *Memory) sweep() {
	now := time.Now()
	var removed int

	m.mu.Lock()
	for fp, expiresAt := range m.entries {
		if now.After(expiresAt) {
			delete(m.entries, fp)
			removed++
		}
	}
	remaining := len(m.entries)
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Debug("token blacklist sweep",
			"removed", removed,
			"remaining", remaining,
		)
	}
}
