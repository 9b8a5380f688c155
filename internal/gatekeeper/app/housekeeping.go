package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
)

// housekeeper periodically purges machine reports older than the retention
// window. Runs until Stop.
type housekeeper struct {
	store     store.Store
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

func newHousekeeper(s store.Store, logger *slog.Logger, interval, retention time.Duration) *housekeeper {
	return &housekeeper{
		store:     s,
		logger:    logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (h *housekeeper) Start() {
	go func() {
		defer close(h.doneCh)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.sweep()
			}
		}
	}()
}

// Stop signals the worker and blocks until the in-flight sweep finishes.
func (h *housekeeper) Stop() {
	close(h.stopCh)
	<-h.doneCh
}

func (h *housekeeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-h.retention)
	n, err := h.store.Reports().DeleteReportsBefore(ctx, cutoff)
	if err != nil {
		h.logger.Error("report sweep failed", "error", err)
		return
	}
	if n > 0 {
		h.logger.Info("purged old machine reports", "count", n, "cutoff", cutoff)
	}
}
