package domain

import "time"

// RoleKind enumerates the three role levels.
type RoleKind string

const (
	RoleAdmin   RoleKind = "admin"
	RoleTeacher RoleKind = "teacher"
	RoleStudent RoleKind = "student"
)

// ValidRoleKind reports whether k is one of the known role kinds.
func ValidRoleKind(k RoleKind) bool {
	switch k {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Role is one role assignment for a user. A user has at most one active
// role of a given kind; re-assigning merges the group sets instead of
// creating a duplicate row. Revoked roles are kept for audit and excluded
// from every authorization decision.
type Role struct {
	ID        string
	UserID    string
	Kind      RoleKind
	GroupIDs  []string // groups a teacher may approve for; unused otherwise
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the role still counts for authorization.
func (r Role) Active() bool { return r.RevokedAt == nil }

// Grant converts an active role into the claim shape embedded in tokens
// and principals. The group slice is copied so callers can't mutate the
// stored snapshot.
func (r Role) Grant() RoleGrant {
	groups := make([]string, len(r.GroupIDs))
	copy(groups, r.GroupIDs)
	return RoleGrant{Kind: r.Kind, GroupIDs: groups}
}
