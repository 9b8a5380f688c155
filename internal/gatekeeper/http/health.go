package http

import (
	"net/http"

	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/pkg/httpx"
)

// HealthHandlers serves the probe endpoints. Livez answers as long as the
// process is up; readyz additionally pings the database.
type HealthHandlers struct {
	Store store.Store
}

func (h *HealthHandlers) Livez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, codeInternal, "database unavailable")
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"status": "ready"})
}
