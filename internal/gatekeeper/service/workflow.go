package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/authz"
	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/rulestore"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/pkg/idx"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// RequestWorkflow drives domain requests through their lifecycle:
// submission, approval (which also edits the group's rule file) and
// rejection. Approvals are where the authorization predicates, the block
// rules and the versioned rule store all meet.
type RequestWorkflow struct {
	Store    store.Store
	Rules    *rulestore.Service
	Notifier Notifier
}

// SubmitInput carries the fields of an unauthenticated submission.
type SubmitInput struct {
	Domain         string
	Reason         string
	RequesterEmail string
	GroupID        string
	Priority       domain.RequestPriority
}

func (in *SubmitInput) validate() error {
	in.Domain = domain.NormalizeDomain(in.Domain)
	in.Reason = strings.TrimSpace(in.Reason)
	in.RequesterEmail = strings.TrimSpace(strings.ToLower(in.RequesterEmail))
	in.GroupID = strings.TrimSpace(in.GroupID)

	if err := domain.ValidateDomain(in.Domain); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if in.GroupID == "" {
		return fmt.Errorf("%w: group_id is required", ErrValidation)
	}
	if in.RequesterEmail == "" || !strings.Contains(in.RequesterEmail, "@") {
		return fmt.Errorf("%w: a valid requester email is required", ErrValidation)
	}

	if in.Priority == "" {
		in.Priority = domain.PriorityNormal
	}
	if !domain.ValidRequestPriority(in.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}
	return nil
}

// Submit creates a pending request. Validation happens before any storage
// is touched; a pending request for the same normalized domain is a
// conflict whether it is found by lookup or by losing the insert race.
// Approver notification is fired asynchronously and never fails a submit.
func (w *RequestWorkflow) Submit(ctx context.Context, in SubmitInput) (domain.DomainRequest, error) {
	if err := in.validate(); err != nil {
		return domain.DomainRequest{}, err
	}

	if _, err := w.Store.Requests().GetPendingRequestByDomain(ctx, in.Domain); err == nil {
		return domain.DomainRequest{}, fmt.Errorf("%w: a pending request for %s already exists", ErrConflict, in.Domain)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.DomainRequest{}, err
	}

	req := domain.DomainRequest{
		ID:             idx.New().String(),
		Domain:         in.Domain,
		Reason:         in.Reason,
		RequesterEmail: in.RequesterEmail,
		GroupID:        in.GroupID,
		Priority:       in.Priority,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := w.Store.Requests().CreateRequest(ctx, req); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.DomainRequest{}, fmt.Errorf("%w: a pending request for %s already exists", ErrConflict, in.Domain)
		}
		return domain.DomainRequest{}, err
	}

	log := slogx.FromContext(ctx)
	log.Info("domain request created",
		"request_id", req.ID,
		"domain", req.Domain,
		"group_id", req.GroupID,
	)

	if w.Notifier != nil {
		// Detach from the request context so the notification survives the
		// response being written.
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		go func() {
			defer cancel()
			if err := w.Notifier.RequestSubmitted(notifyCtx, req); err != nil {
				log.Warn("approver notification failed",
					"request_id", req.ID,
					"error", err,
				)
			}
		}()
	}

	return req, nil
}

// Approve resolves a pending request and adds its domain to the target
// group's whitelist. overrideGroupID, when non-empty, redirects the
// approval to a different group than the one requested.
//
// The rule-file write happens before the status flip. If the write fails
// the request stays pending and can be retried; if the flip then loses a
// race the whitelist holds a domain its request doesn't record as
// approved, which is the safe side of that crash window and heals on the
// winning resolver's path.
func (w *RequestWorkflow) Approve(ctx context.Context, id, overrideGroupID string, p domain.Principal) (domain.DomainRequest, error) {
	req, err := w.Store.Requests().GetRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DomainRequest{}, fmt.Errorf("%w: request %s", ErrNotFound, id)
		}
		return domain.DomainRequest{}, err
	}

	if req.Status != domain.StatusPending {
		return domain.DomainRequest{}, fmt.Errorf("%w: request is %s", ErrNotPending, req.Status)
	}

	targetGroup := req.GroupID
	if overrideGroupID != "" {
		targetGroup = overrideGroupID
	}

	if !authz.CanApproveGroup(p, targetGroup) {
		return domain.DomainRequest{}, fmt.Errorf("%w: no approval scope for group %s", ErrForbidden, targetGroup)
	}

	if !authz.IsAdmin(p) {
		match, err := w.Rules.IsDomainBlocked(ctx, targetGroup, req.Domain)
		if err != nil {
			return domain.DomainRequest{}, fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		if match.Blocked {
			return domain.DomainRequest{}, fmt.Errorf("%w: %s matches block rule %q", ErrDomainBlocked, req.Domain, match.MatchedRule)
		}
	}

	if err := w.Rules.AddDomain(ctx, targetGroup, req.Domain); err != nil {
		if errors.Is(err, rulestore.ErrConflict) {
			return domain.DomainRequest{}, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return domain.DomainRequest{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	now := time.Now().UTC()
	note := ""
	if targetGroup != req.GroupID {
		note = "approved into group " + targetGroup
	}
	flipped, err := w.Store.Requests().ResolveRequestIfPending(
		ctx, req.ID, domain.StatusApproved, p.ResolverID(), note, now)
	if err != nil {
		return domain.DomainRequest{}, err
	}
	if !flipped {
		// Another resolver won between our read and the flip. The rule-file
		// add above was idempotent, so nothing to undo.
		return domain.DomainRequest{}, fmt.Errorf("%w: request resolved concurrently", ErrNotPending)
	}

	slogx.FromContext(ctx).Info("domain request approved",
		"request_id", req.ID,
		"domain", req.Domain,
		"group_id", targetGroup,
		"resolved_by", p.ResolverID(),
	)

	return w.Store.Requests().GetRequestByID(ctx, req.ID)
}

// Reject resolves a pending request without touching any rule file.
func (w *RequestWorkflow) Reject(ctx context.Context, id, note string, p domain.Principal) (domain.DomainRequest, error) {
	req, err := w.Store.Requests().GetRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DomainRequest{}, fmt.Errorf("%w: request %s", ErrNotFound, id)
		}
		return domain.DomainRequest{}, err
	}

	if req.Status != domain.StatusPending {
		return domain.DomainRequest{}, fmt.Errorf("%w: request is %s", ErrNotPending, req.Status)
	}

	if !authz.CanApproveGroup(p, req.GroupID) {
		return domain.DomainRequest{}, fmt.Errorf("%w: no approval scope for group %s", ErrForbidden, req.GroupID)
	}

	flipped, err := w.Store.Requests().ResolveRequestIfPending(
		ctx, req.ID, domain.StatusRejected, p.ResolverID(), strings.TrimSpace(note), time.Now().UTC())
	if err != nil {
		return domain.DomainRequest{}, err
	}
	if !flipped {
		return domain.DomainRequest{}, fmt.Errorf("%w: request resolved concurrently", ErrNotPending)
	}

	slogx.FromContext(ctx).Info("domain request rejected",
		"request_id", req.ID,
		"domain", req.Domain,
		"resolved_by", p.ResolverID(),
	)

	return w.Store.Requests().GetRequestByID(ctx, req.ID)
}

// List returns requests visible to the principal, optionally filtered by
// status. Admins see everything; teachers see only requests targeting
// groups inside their approval scope.
func (w *RequestWorkflow) List(ctx context.Context, status *domain.RequestStatus, p domain.Principal) ([]domain.DomainRequest, error) {
	if status != nil {
		switch *status {
		case domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *status)
		}
	}

	reqs, err := w.Store.Requests().ListRequests(ctx, status)
	if err != nil {
		return nil, err
	}

	if authz.IsAdmin(p) {
		return reqs, nil
	}

	scope := authz.ApprovalGroups(p)
	visible := make([]domain.DomainRequest, 0, len(reqs))
	for _, r := range reqs {
		if slices.Contains(scope, r.GroupID) {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

// Delete hard-deletes a request regardless of status. Admin only; the
// request's effect on rule files, if any, is left intact.
func (w *RequestWorkflow) Delete(ctx context.Context, id string, p domain.Principal) error {
	if !authz.IsAdmin(p) {
		return fmt.Errorf("%w: delete is admin only", ErrForbidden)
	}

	deleted, err := w.Store.Requests().DeleteRequest(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: request %s", ErrNotFound, id)
	}

	slogx.FromContext(ctx).Info("domain request deleted", "request_id", id)
	return nil
}
