// Package http wires the service layer onto the public API surface. Route
// patterns use the stdlib mux method syntax; cross-cutting concerns
// (request logging, rate limits, authentication) are middleware chains
// composed per route class.
package http

import (
	"log/slog"
	"net/http"

	"github.com/openpath/gatekeeper/internal/gatekeeper/rulestore"
	"github.com/openpath/gatekeeper/internal/gatekeeper/service"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/pkg/httpx"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// RouterConfig carries everything the router needs; the app layer builds
// it once at startup.
type RouterConfig struct {
	Logger *slog.Logger

	Store    store.Store
	Tokens   *service.TokenService
	Users    *service.UserService
	Roles    *service.RolesService
	Workflow *service.RequestWorkflow
	Rules    *rulestore.Service

	AdminToken   string // legacy shared admin token, empty disables
	SharedSecret string // machine endpoint secret, empty disables
}

// NewRouter assembles the full API surface.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	auth := &Authenticator{Tokens: cfg.Tokens, AdminToken: cfg.AdminToken}

	authH := &AuthHandlers{Tokens: cfg.Tokens, Users: cfg.Users}
	reqH := &RequestHandlers{Workflow: cfg.Workflow}
	roleH := &RoleHandlers{Roles: cfg.Roles}
	ruleH := &RuleHandlers{Rules: cfg.Rules}
	machineH := &MachineHandlers{Store: cfg.Store}
	healthH := &HealthHandlers{Store: cfg.Store}

	sharedSecret := httpx.Middleware(RequireSharedSecret(cfg.SharedSecret))

	// Auth. Credential endpoints carry the tightest budgets.
	handle(mux, "POST /v1/auth/login", authH.Login, httpx.RateLimitByIP(httpx.LoginLimit))
	handle(mux, "POST /v1/auth/register", authH.Register, httpx.RateLimitByIP(httpx.RegisterLimit))
	handle(mux, "POST /v1/auth/refresh", authH.Refresh, httpx.RateLimitByIP(httpx.LoginLimit))
	handle(mux, "POST /v1/auth/logout", authH.Logout, httpx.RateLimitByIP(httpx.DefaultLimit))

	// Domain requests. Submission is public; the rest needs a principal.
	handle(mux, "POST /v1/requests", reqH.Submit, httpx.RateLimitByIP(httpx.SubmitLimit))
	handle(mux, "GET /v1/requests", reqH.List, auth.Require, httpx.RateLimitByUser(httpx.DefaultLimit))
	handle(mux, "POST /v1/requests/{id}/approve", reqH.Approve, auth.Require, httpx.RateLimitByUser(httpx.DefaultLimit))
	handle(mux, "POST /v1/requests/{id}/reject", reqH.Reject, auth.Require, httpx.RateLimitByUser(httpx.DefaultLimit))
	handle(mux, "DELETE /v1/requests/{id}", reqH.Delete, auth.Require, httpx.RateLimitByUser(httpx.DefaultLimit))

	// Role administration, admin only.
	handle(mux, "POST /v1/roles", roleH.Assign, auth.RequireAdmin, httpx.RateLimitByUser(httpx.DefaultLimit))
	handle(mux, "DELETE /v1/roles/{id}", roleH.Revoke, auth.RequireAdmin, httpx.RateLimitByUser(httpx.DefaultLimit))
	handle(mux, "GET /v1/users/{user_id}/roles", roleH.ListForUser, auth.RequireAdmin, httpx.RateLimitByUser(httpx.DefaultLimit))

	// Rule projections. The export is what client machines poll, so it
	// gets the generous public budget rather than a per-user one.
	handle(mux, "GET /v1/rules", ruleH.ListGroups, auth.Require, httpx.RateLimitByUser(httpx.DefaultLimit))
	handle(mux, "GET /v1/rules/{group}", ruleH.GetGroup, auth.Require, httpx.RateLimitByUser(httpx.DefaultLimit))
	handle(mux, "GET /v1/rules/{group}/export", ruleH.Export, httpx.RateLimitByIP(httpx.PublicLimit), sharedSecret)

	// Machine registry and report ingestion, shared-secret only.
	handle(mux, "POST /v1/machines", machineH.Register, httpx.RateLimitByIP(httpx.PublicLimit), sharedSecret)
	handle(mux, "GET /v1/machines", machineH.List, auth.RequireAdmin, httpx.RateLimitByUser(httpx.DefaultLimit))
	handle(mux, "POST /v1/reports", machineH.SubmitReport, httpx.RateLimitByIP(httpx.PublicLimit), sharedSecret)

	mux.HandleFunc("GET /livez", healthH.Livez)
	mux.HandleFunc("GET /readyz", healthH.Readyz)

	return httpx.Chain(mux, slogx.HTTPMiddleware(cfg.Logger))
}

func handle(mux *http.ServeMux, pattern string, h http.HandlerFunc, mws ...httpx.Middleware) {
	mux.Handle(pattern, httpx.Chain(h, mws...))
}
