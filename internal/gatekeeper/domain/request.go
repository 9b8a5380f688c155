package domain

import "time"

// RequestStatus is the state of a domain request. Pending is the only
// non-terminal state; a resolved request never reverts.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// RequestPriority is advisory ordering for the approval queue.
type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityNormal RequestPriority = "normal"
	PriorityHigh   RequestPriority = "high"
)

// ValidRequestPriority reports whether p is a known priority.
func ValidRequestPriority(p RequestPriority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// DomainRequest is a student's request to whitelist a domain for a group.
// Domain is stored normalized (trimmed, lower-cased); at most one pending
// request may exist per normalized domain at a time.
type DomainRequest struct {
	ID             string          `json:"id"`
	Domain         string          `json:"domain"`
	Reason         string          `json:"reason"`
	RequesterEmail string          `json:"requester_email"`
	GroupID        string          `json:"group_id"`
	Priority       RequestPriority `json:"priority"`
	Status         RequestStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy     string          `json:"resolved_by,omitempty"`
	ResolutionNote string          `json:"resolution_note,omitempty"`
}
