package service

import "errors"

// Sentinel errors shared across the services. The HTTP layer maps these
// onto the response envelope's machine-readable codes; services themselves
// never know about status codes.
var (
	// ErrValidation reports malformed input (bad domain syntax, missing
	// fields). Nothing has been touched when it is returned.
	ErrValidation = errors.New("invalid_input")

	// ErrInvalidCredentials reports a failed login.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidToken reports a token that failed signature, expiry, use
	// or blacklist checks. Malformed input lands here too; there is no
	// panic path out of token verification.
	ErrInvalidToken = errors.New("invalid_token")

	// ErrForbidden reports an authenticated caller without the group scope
	// for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrDomainBlocked reports an approval refused because an explicit
	// block rule matches the domain. Non-admin approvers cannot override
	// an administrator's block.
	ErrDomainBlocked = errors.New("domain_blocked")

	// ErrNotPending reports an approve/reject against a request that has
	// already been resolved.
	ErrNotPending = errors.New("request_not_pending")

	// ErrConflict reports a duplicate pending request or an exhausted
	// optimistic-write retry budget.
	ErrConflict = errors.New("conflict")

	// ErrNotFound reports an unknown request, user or role id.
	ErrNotFound = errors.New("not_found")

	// ErrUpstream reports a rule store that is unreachable or answered
	// with something unexpected. Always retryable from the caller's side.
	ErrUpstream = errors.New("upstream_failure")
)
