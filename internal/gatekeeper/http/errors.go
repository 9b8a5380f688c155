package http

import (
	"errors"
	"net/http"

	"github.com/openpath/gatekeeper/internal/gatekeeper/service"
	"github.com/openpath/gatekeeper/pkg/httpx"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// Machine-readable error codes carried in the response envelope. Client
// machines branch on these, not on HTTP status alone.
const (
	codeValidation   = "VALIDATION"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeBadRequest   = "BAD_REQUEST"
	codeConflict     = "CONFLICT"
	codeNotFound     = "NOT_FOUND"
	codeUpstream     = "UPSTREAM_FAILURE"
	codeInternal     = "INTERNAL"
)

// writeServiceError maps the service sentinel errors onto status codes and
// envelope codes. Anything unrecognized is a 500 with the detail kept out
// of the response body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, service.ErrDomainBlocked):
		httpx.WriteError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, service.ErrNotPending):
		httpx.WriteError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, service.ErrUpstream):
		httpx.WriteError(w, http.StatusBadGateway, codeUpstream, "rule store unavailable, retry later")
	default:
		reqID := slogx.RequestIDFromContext(r.Context())
		slogx.FromContext(r.Context()).Error("unhandled service error", "error", err)
		// Carry the correlation id so the caller can quote it against the
		// server logs; the error detail itself stays out of the body.
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success":    false,
			"error":      "internal error",
			"code":       codeInternal,
			"request_id": reqID,
		})
	}
}
