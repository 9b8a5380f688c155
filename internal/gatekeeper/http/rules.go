package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/openpath/gatekeeper/internal/gatekeeper/rulestore"
	"github.com/openpath/gatekeeper/pkg/httpx"
)

// RuleHandlers exposes read-only projections of the rule store. All writes
// go through the approval workflow; there is deliberately no PUT here.
type RuleHandlers struct {
	Rules *rulestore.Service
}

func (h *RuleHandlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Rules.ListGroups(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, codeUpstream, "rule store unavailable, retry later")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"groups": groups,
	})
}

func (h *RuleHandlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	file, err := h.Rules.Read(r.Context(), r.PathValue("group"))
	if err != nil {
		if errors.Is(err, rulestore.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, codeNotFound, "no rule file for group")
			return
		}
		httpx.WriteError(w, http.StatusBadGateway, codeUpstream, "rule store unavailable, retry later")
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"rules": file,
	})
}

// Export serves the plain-text whitelist that client machines poll, one
// domain per line. A disabled group exports empty rather than 404 so
// clients fail open to "nothing whitelisted".
func (h *RuleHandlers) Export(w http.ResponseWriter, r *http.Request) {
	domains, err := h.Rules.Export(r.Context(), r.PathValue("group"))
	if err != nil {
		if errors.Is(err, rulestore.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, codeNotFound, "no rule file for group")
			return
		}
		httpx.WriteError(w, http.StatusBadGateway, codeUpstream, "rule store unavailable, retry later")
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if len(domains) > 0 {
		_, _ = w.Write([]byte(strings.Join(domains, "\n") + "\n"))
	}
}
