package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/pkg/idx"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// RolesService manages role assignments. Admin-only at the HTTP layer; the
// service itself assumes the caller is already authorized.
type RolesService struct {
	Store store.Store
}

// Assign grants a role to a user. If the user already holds an active role
// of the same kind the group sets are merged into the existing row instead
// of creating a duplicate, so assignment is idempotent and additive. Tokens
// issued before the change keep their old grants until refresh.
func (s *RolesService) Assign(ctx context.Context, userID string, kind domain.RoleKind, groupIDs []string) (domain.Role, error) {
	if !domain.ValidRoleKind(kind) {
		return domain.Role{}, fmt.Errorf("%w: unknown role kind %q", ErrValidation, kind)
	}

	now := time.Now().UTC()
	var out domain.Role

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByID(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: user %s", ErrNotFound, userID)
			}
			return err
		}

		existing, err := tx.Roles().GetActiveRole(ctx, userID, kind)
		switch {
		case err == nil:
			merged := mergeGroups(existing.GroupIDs, groupIDs)
			if err := tx.Roles().UpdateRoleGroups(ctx, existing.ID, merged); err != nil {
				return err
			}
			existing.GroupIDs = merged
			existing.UpdatedAt = now
			out = existing
			return nil

		case errors.Is(err, store.ErrNotFound):
			out = domain.Role{
				ID:        idx.New().String(),
				UserID:    userID,
				Kind:      kind,
				GroupIDs:  slices.Clone(groupIDs),
				CreatedAt: now,
				UpdatedAt: now,
			}
			return tx.Roles().CreateRole(ctx, out)

		default:
			return err
		}
	})
	if err != nil {
		return domain.Role{}, err
	}

	slogx.FromContext(ctx).Info("role assigned",
		"user_id", userID,
		"role_id", out.ID,
		"kind", string(kind),
		"groups", out.GroupIDs,
	)
	return out, nil
}

// Revoke stamps revoked_at on a role. The row is kept for audit; revoking
// an unknown or already-revoked role returns ErrNotFound.
func (s *RolesService) Revoke(ctx context.Context, roleID string) error {
	err := s.Store.Roles().RevokeRole(ctx, roleID, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: role %s", ErrNotFound, roleID)
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("role revoked", "role_id", roleID)
	return nil
}

// ListForUser returns a user's roles, active only or the full audit trail.
func (s *RolesService) ListForUser(ctx context.Context, userID string, includeRevoked bool) ([]domain.Role, error) {
	if includeRevoked {
		return s.Store.Roles().ListRolesByUser(ctx, userID)
	}
	return s.Store.Roles().ListActiveRolesByUser(ctx, userID)
}

func mergeGroups(a, b []string) []string {
	merged := slices.Clone(a)
	for _, g := range b {
		if !slices.Contains(merged, g) {
			merged = append(merged, g)
		}
	}
	slices.Sort(merged)
	return merged
}
