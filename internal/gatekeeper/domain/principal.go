package domain

// PrincipalKind tags the two ways a caller can be authenticated.
type PrincipalKind string

const (
	// PrincipalUser is a user authenticated with a verified access token.
	PrincipalUser PrincipalKind = "user"

	// PrincipalLegacyAdmin is the shared admin-token identity kept for
	// older client machines. It carries wildcard group scope and no user id.
	PrincipalLegacyAdmin PrincipalKind = "legacy_admin"
)

// RoleGrant is one active role attached to a principal: the role kind plus
// the group ids it is scoped to. Group ids are meaningful for teachers only.
type RoleGrant struct {
	Kind     RoleKind
	GroupIDs []string
}

// Principal is the authenticated actor attached to a request. It is built
// per-request from a bearer token or the legacy admin token and never
// persisted. Exactly one of the two kinds applies.
type Principal struct {
	Kind   PrincipalKind
	UserID string
	Name   string
	Roles  []RoleGrant
}

// ResolverID is the identity recorded on requests this principal resolves:
// the user id for token-authenticated users, the synthetic name otherwise.
func (p Principal) ResolverID() string {
	if p.Kind == PrincipalUser {
		return p.UserID
	}
	return p.Name
}

// NewUserPrincipal builds a user principal from decoded token claims.
func NewUserPrincipal(userID, name string, roles []RoleGrant) Principal {
	return Principal{
		Kind:   PrincipalUser,
		UserID: userID,
		Name:   name,
		Roles:  roles,
	}
}

// NewLegacyAdminPrincipal builds the synthetic admin identity used when a
// caller presents the configured shared admin token.
func NewLegacyAdminPrincipal() Principal {
	return Principal{
		Kind: PrincipalLegacyAdmin,
		Name: "legacy-admin",
	}
}
