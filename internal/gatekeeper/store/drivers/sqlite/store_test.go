package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	// One in-memory database, not one per pooled connection.
	st.DB().SetMaxOpenConns(1)

	require.NoError(t, st.ApplyMigrations())
	return st
}

func makeUser(t *testing.T, st *Store) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     "u-" + idx.New().String(),
		DisplayName:  "User",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func makePendingRequest(dom string) domain.DomainRequest {
	return domain.DomainRequest{
		ID:             idx.New().String(),
		Domain:         dom,
		Reason:         "r",
		RequesterEmail: "s@example.com",
		GroupID:        "year7",
		Priority:       domain.PriorityNormal,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	u := makeUser(t, st)

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Username, got.Username)

	got, err = st.Users().GetUserByUsername(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = st.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("duplicate username", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})
}

func TestOneActiveRolePerKind(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := makeUser(t, st)

	now := time.Now().UTC()
	first := domain.Role{
		ID: idx.New().String(), UserID: u.ID, Kind: domain.RoleTeacher,
		GroupIDs: []string{"year7"}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.Roles().CreateRole(ctx, first))

	// A second active teacher role violates the partial unique index.
	second := first
	second.ID = idx.New().String()
	require.ErrorIs(t, st.Roles().CreateRole(ctx, second), store.ErrAlreadyExists)

	// After revoking, a fresh grant of the same kind is allowed.
	require.NoError(t, st.Roles().RevokeRole(ctx, first.ID, now))
	require.NoError(t, st.Roles().CreateRole(ctx, second))

	active, err := st.Roles().ListActiveRolesByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, second.ID, active[0].ID)
}

func TestRoleGroupRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := makeUser(t, st)

	now := time.Now().UTC()
	r := domain.Role{
		ID: idx.New().String(), UserID: u.ID, Kind: domain.RoleTeacher,
		GroupIDs: []string{"year7", "year8"}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.Roles().CreateRole(ctx, r))

	got, err := st.Roles().GetActiveRole(ctx, u.ID, domain.RoleTeacher)
	require.NoError(t, err)
	require.Equal(t, []string{"year7", "year8"}, got.GroupIDs)

	require.NoError(t, st.Roles().UpdateRoleGroups(ctx, r.ID, []string{"year9"}))
	got, err = st.Roles().GetRoleByID(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"year9"}, got.GroupIDs)

	t.Run("empty group set", func(t *testing.T) {
		require.NoError(t, st.Roles().UpdateRoleGroups(ctx, r.ID, nil))
		got, err := st.Roles().GetRoleByID(ctx, r.ID)
		require.NoError(t, err)
		require.Empty(t, got.GroupIDs)
	})
}

func TestOnePendingRequestPerDomain(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	first := makePendingRequest("example.com")
	require.NoError(t, st.Requests().CreateRequest(ctx, first))

	// Second pending request for the same domain is refused by the index.
	second := makePendingRequest("example.com")
	require.ErrorIs(t, st.Requests().CreateRequest(ctx, second), store.ErrAlreadyExists)

	// Once resolved, a new pending request for the domain is fine.
	flipped, err := st.Requests().ResolveRequestIfPending(
		ctx, first.ID, domain.StatusRejected, "admin", "", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, flipped)

	require.NoError(t, st.Requests().CreateRequest(ctx, second))
}

func TestResolveRequestIfPendingIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	req := makePendingRequest("example.com")
	require.NoError(t, st.Requests().CreateRequest(ctx, req))

	at := time.Now().UTC()
	flipped, err := st.Requests().ResolveRequestIfPending(
		ctx, req.ID, domain.StatusApproved, "teacher-1", "", at)
	require.NoError(t, err)
	require.True(t, flipped)

	// The loser of the race sees false, and the winner's resolution stays.
	flipped, err = st.Requests().ResolveRequestIfPending(
		ctx, req.ID, domain.StatusRejected, "teacher-2", "changed my mind", at)
	require.NoError(t, err)
	require.False(t, flipped)

	got, err := st.Requests().GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, got.Status)
	require.Equal(t, "teacher-1", got.ResolvedBy)
	require.NotNil(t, got.ResolvedAt)
}

func TestListRequestsFilter(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := makePendingRequest("a.example")
	b := makePendingRequest("b.example")
	require.NoError(t, st.Requests().CreateRequest(ctx, a))
	require.NoError(t, st.Requests().CreateRequest(ctx, b))

	_, err := st.Requests().ResolveRequestIfPending(
		ctx, a.ID, domain.StatusApproved, "x", "", time.Now().UTC())
	require.NoError(t, err)

	pending := domain.StatusPending
	got, err := st.Requests().ListRequests(ctx, &pending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, b.ID, got[0].ID)

	got, err = st.Requests().ListRequests(ctx, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestMachinesUpsert(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	now := time.Now().UTC()
	m := domain.Machine{
		ID: idx.New().String(), Hostname: "lab-01", Classroom: "D12",
		RegisteredAt: now, LastSeenAt: now,
	}
	require.NoError(t, st.Machines().UpsertMachine(ctx, m))

	// Re-registering the same hostname refreshes, not duplicates.
	later := now.Add(time.Hour)
	m2 := domain.Machine{
		ID: idx.New().String(), Hostname: "lab-01", Classroom: "D13",
		RegisteredAt: later, LastSeenAt: later,
	}
	require.NoError(t, st.Machines().UpsertMachine(ctx, m2))

	machines, err := st.Machines().ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	require.Equal(t, "D13", machines[0].Classroom)
	require.Equal(t, m.ID, machines[0].ID, "original id survives re-registration")
}

func TestReportsPurge(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	old := domain.Report{
		ID: idx.New().String(), Hostname: "lab-01",
		Payload: []byte(`{"ok":true}`), ReceivedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	fresh := domain.Report{
		ID: idx.New().String(), Hostname: "lab-01",
		Payload: []byte(`{"ok":true}`), ReceivedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Reports().CreateReport(ctx, old))
	require.NoError(t, st.Reports().CreateReport(ctx, fresh))

	n, err := st.Reports().DeleteReportsBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Requests().CreateRequest(ctx, makePendingRequest("txn.example")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Requests().GetPendingRequestByDomain(ctx, "txn.example")
	require.ErrorIs(t, err, store.ErrNotFound)
}
