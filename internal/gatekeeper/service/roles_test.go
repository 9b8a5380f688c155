package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
)

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &RolesService{Store: st}

	user := seedUser(t, st, "pw123456")

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.Assign(ctx, user.ID, "superuser", nil)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Assign(ctx, "missing", domain.RoleTeacher, []string{"year7"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("creates a role", func(t *testing.T) {
		role, err := svc.Assign(ctx, user.ID, domain.RoleTeacher, []string{"year7"})
		require.NoError(t, err)
		require.Equal(t, []string{"year7"}, role.GroupIDs)
	})

	t.Run("reassignment merges group sets", func(t *testing.T) {
		role, err := svc.Assign(ctx, user.ID, domain.RoleTeacher, []string{"year8", "year7"})
		require.NoError(t, err)
		require.Equal(t, []string{"year7", "year8"}, role.GroupIDs)

		// Still exactly one active teacher role, not a duplicate row.
		active, err := st.Roles().ListActiveRolesByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)
	})

	t.Run("different kinds coexist", func(t *testing.T) {
		_, err := svc.Assign(ctx, user.ID, domain.RoleAdmin, nil)
		require.NoError(t, err)

		active, err := st.Roles().ListActiveRolesByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, active, 2)
	})
}

func TestRevokeRole(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &RolesService{Store: st}

	user := seedUser(t, st, "pw123456")
	role := seedRole(t, st, user.ID, domain.RoleTeacher, "year7")

	require.NoError(t, svc.Revoke(ctx, role.ID))

	active, err := st.Roles().ListActiveRolesByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, active)

	t.Run("revoked role stays in the audit trail", func(t *testing.T) {
		all, err := svc.ListForUser(ctx, user.ID, true)
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.NotNil(t, all[0].RevokedAt)
	})

	t.Run("double revoke", func(t *testing.T) {
		require.ErrorIs(t, svc.Revoke(ctx, role.ID), ErrNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		require.ErrorIs(t, svc.Revoke(ctx, "missing"), ErrNotFound)
	})

	t.Run("revoked kind can be granted again", func(t *testing.T) {
		_, err := svc.Assign(ctx, user.ID, domain.RoleTeacher, []string{"year8"})
		require.NoError(t, err)

		active, err := st.Roles().ListActiveRolesByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		require.Equal(t, []string{"year8"}, active[0].GroupIDs)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &UserService{Store: st}

	t.Run("short password", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Username: "newbie", Password: "short"})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("creates user with student role", func(t *testing.T) {
		user, err := svc.Register(ctx, RegisterInput{
			Username: "Newbie",
			Password: "long enough now",
			Email:    "newbie@example.com",
		})
		require.NoError(t, err)
		require.Equal(t, "newbie", user.Username, "username is normalized")

		roles, err := st.Roles().ListActiveRolesByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, roles, 1)
		require.Equal(t, domain.RoleStudent, roles[0].Kind)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{
			Username: "newbie",
			Password: "long enough now",
		})
		require.ErrorIs(t, err, ErrConflict)
	})
}
