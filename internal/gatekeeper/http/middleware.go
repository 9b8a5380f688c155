package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/openpath/gatekeeper/internal/gatekeeper/authz"
	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/service"
	"github.com/openpath/gatekeeper/pkg/cryptox"
	"github.com/openpath/gatekeeper/pkg/httpx"
)

type principalKey struct{}

func principalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// Authenticator builds per-request principals. A bearer token is first
// tried as a signed access token; if that fails and the deployment still
// carries a shared admin token, a constant-time comparison against it
// yields the legacy admin principal. An empty AdminToken disables the
// legacy path entirely.
type Authenticator struct {
	Tokens     *service.TokenService
	AdminToken string
}

// Require rejects unauthenticated requests and attaches the principal to
// the context for handlers downstream.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		ctx := r.Context()

		if claims, err := a.Tokens.VerifyAccess(ctx, raw); err == nil {
			p := service.PrincipalFromClaims(claims)
			ctx = context.WithValue(ctx, principalKey{}, p)
			ctx = httpx.ContextWithUserID(ctx, p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if a.AdminToken != "" && cryptox.ConstantTimeEquals(raw, a.AdminToken) {
			p := domain.NewLegacyAdminPrincipal()
			ctx = context.WithValue(ctx, principalKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		httpx.WriteError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
	})
}

// RequireAdmin is Require plus an admin check.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalFromContext(r.Context())
		if !authz.IsAdmin(p) {
			httpx.WriteError(w, http.StatusForbidden, codeForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireSharedSecret guards the machine-facing endpoints with the static
// deployment secret. Machines present it as `Authorization: Bearer
// <secret>`; the older X-Shared-Secret header is still accepted. When no
// secret is configured the endpoints are open; fine on a closed network,
// which is the only place these endpoints should be exposed anyway.
func RequireSharedSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented, ok := bearerToken(r)
			if !ok {
				presented = r.Header.Get("X-Shared-Secret")
			}
			if !cryptox.ConstantTimeEquals(presented, secret) {
				httpx.WriteError(w, http.StatusUnauthorized, codeUnauthorized, "invalid shared secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
