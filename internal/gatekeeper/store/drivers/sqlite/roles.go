package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
)

type rolesRepo struct {
	q querier
}

const roleColumns = `id, user_id, kind, group_ids, revoked_at, created_at, updated_at`

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	return scanRole(row)
}

func (r *rolesRepo) GetActiveRole(
	ctx context.Context,
	userID string,
	kind domain.RoleKind,
) (domain.Role, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE user_id = ? AND kind = ? AND revoked_at IS NULL`,
		userID, string(kind))
	return scanRole(row)
}

func (r *rolesRepo) ListActiveRolesByUser(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE user_id = ? AND revoked_at IS NULL
		 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *rolesRepo) ListRolesByUser(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE user_id = ?
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO roles (id, user_id, kind, group_ids, revoked_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULL, ?, ?)`,
		role.ID, role.UserID, string(role.Kind), joinGroups(role.GroupIDs),
		role.CreatedAt, role.UpdatedAt)
	return mapConstraint(err)
}

func (r *rolesRepo) UpdateRoleGroups(ctx context.Context, roleID string, groupIDs []string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE roles SET group_ids = ?, updated_at = ? WHERE id = ?`,
		joinGroups(groupIDs), time.Now().UTC(), roleID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *rolesRepo) RevokeRole(ctx context.Context, roleID string, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE roles SET revoked_at = ?, updated_at = ?
		 WHERE id = ? AND revoked_at IS NULL`,
		at, at, roleID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanRole(row rowScanner) (domain.Role, error) {
	var (
		role      domain.Role
		kind      string
		groups    string
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&role.ID, &role.UserID, &kind, &groups, &revokedAt,
		&role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}

	role.Kind = domain.RoleKind(kind)
	role.GroupIDs = splitGroups(groups)
	if revokedAt.Valid {
		t := revokedAt.Time
		role.RevokedAt = &t
	}
	return role, nil
}

func collectRoles(rows *sql.Rows) ([]domain.Role, error) {
	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
