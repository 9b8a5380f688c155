// Package authz centralizes the authorization predicates so group-scope
// logic exists exactly once. Everything here is a pure function over an
// already-decoded principal; nothing is mutated or persisted.
package authz

import (
	"slices"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
)

// GroupAll is the wildcard group scope granted to admins.
const GroupAll = "all"

// IsAdmin reports whether the principal has an active admin role or is the
// synthetic legacy-admin identity.
func IsAdmin(p domain.Principal) bool {
	if p.Kind == domain.PrincipalLegacyAdmin {
		return true
	}
	for _, grant := range p.Roles {
		if grant.Kind == domain.RoleAdmin {
			return true
		}
	}
	return false
}

// ApprovalGroups returns the group ids the principal may approve requests
// for: the wildcard for admins, otherwise the union of group ids across the
// principal's teacher roles. The result is a fresh slice on every call.
func ApprovalGroups(p domain.Principal) []string {
	if IsAdmin(p) {
		return []string{GroupAll}
	}

	var groups []string
	for _, grant := range p.Roles {
		if grant.Kind != domain.RoleTeacher {
			continue
		}
		for _, g := range grant.GroupIDs {
			if !slices.Contains(groups, g) {
				groups = append(groups, g)
			}
		}
	}
	return groups
}

// CanApproveGroup reports whether the principal may approve requests
// targeting the given group.
func CanApproveGroup(p domain.Principal, groupID string) bool {
	groups := ApprovalGroups(p)
	return slices.Contains(groups, GroupAll) || slices.Contains(groups, groupID)
}
