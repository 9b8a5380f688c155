package store

import (
	"context"
	"errors"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Users() Users
	Roles() Roles
	Requests() Requests
	Machines() Machines
	Reports() Reports

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store scope.
type Tx interface {
	Users() Users
	Roles() Roles
	Requests() Requests
	Machines() Machines
	Reports() Reports
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error
}

type Roles interface {
	// GetRoleByID fetches a role by its id, revoked or not.
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)

	// GetActiveRole returns the single active role of the given kind for a
	// user, or ErrNotFound.
	GetActiveRole(ctx context.Context, userID string, kind domain.RoleKind) (domain.Role, error)

	// ListActiveRolesByUser returns the user's non-revoked roles.
	ListActiveRolesByUser(ctx context.Context, userID string) ([]domain.Role, error)

	// ListRolesByUser returns all of the user's roles including revoked
	// ones, newest first. Kept for audit views.
	ListRolesByUser(ctx context.Context, userID string) ([]domain.Role, error)

	// CreateRole inserts a new role (id is ULID).
	CreateRole(ctx context.Context, r domain.Role) error

	// UpdateRoleGroups replaces the group set of a role and bumps updated_at.
	UpdateRoleGroups(ctx context.Context, roleID string, groupIDs []string) error

	// RevokeRole stamps revoked_at on an active role. Revoking an already
	// revoked role is a no-op returning ErrNotFound.
	RevokeRole(ctx context.Context, roleID string, at time.Time) error
}

type Requests interface {
	// CreateRequest inserts a new pending request. Returns ErrAlreadyExists
	// if a pending request for the same normalized domain slips in
	// concurrently (enforced by a partial unique index).
	CreateRequest(ctx context.Context, r domain.DomainRequest) error

	// GetRequestByID fetches a request by id.
	GetRequestByID(ctx context.Context, id string) (domain.DomainRequest, error)

	// GetPendingRequestByDomain returns the pending request for a
	// normalized domain, or ErrNotFound.
	GetPendingRequestByDomain(ctx context.Context, dom string) (domain.DomainRequest, error)

	// ListRequests returns requests, optionally filtered by status,
	// newest first.
	ListRequests(ctx context.Context, status *domain.RequestStatus) ([]domain.DomainRequest, error)

	// ResolveRequestIfPending flips a pending request to a terminal status.
	// The WHERE status='pending' guard makes the flip a compare-and-set:
	// it reports false when another resolver already won.
	ResolveRequestIfPending(
		ctx context.Context,
		id string,
		status domain.RequestStatus,
		resolvedBy, note string,
		at time.Time,
	) (bool, error)

	// DeleteRequest hard-deletes a request; reports whether a row existed.
	DeleteRequest(ctx context.Context, id string) (bool, error)
}

type Machines interface {
	// UpsertMachine registers a machine by hostname or refreshes its
	// last-seen timestamp.
	UpsertMachine(ctx context.Context, m domain.Machine) error

	// ListMachines returns all registered machines.
	ListMachines(ctx context.Context) ([]domain.Machine, error)
}

type Reports interface {
	// CreateReport stores a raw health report payload from a machine.
	CreateReport(ctx context.Context, r domain.Report) error

	// DeleteReportsBefore purges reports received before the cutoff,
	// returning the number removed. Housekeeping only.
	DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
