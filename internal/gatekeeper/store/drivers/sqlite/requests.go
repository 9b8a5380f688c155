package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
)

type requestsRepo struct {
	q querier
}

const requestColumns = `id, domain, reason, requester_email, group_id, priority,
	status, resolved_at, resolved_by, resolution_note, created_at`

func (r *requestsRepo) CreateRequest(ctx context.Context, req domain.DomainRequest) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO requests
		 (id, domain, reason, requester_email, group_id, priority, status,
		  resolved_at, resolved_by, resolution_note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, '', '', ?)`,
		req.ID, req.Domain, req.Reason, req.RequesterEmail, req.GroupID,
		string(req.Priority), string(req.Status), req.CreatedAt)
	return mapConstraint(err)
}

func (r *requestsRepo) GetRequestByID(ctx context.Context, id string) (domain.DomainRequest, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	return scanRequest(row)
}

func (r *requestsRepo) GetPendingRequestByDomain(
	ctx context.Context,
	dom string,
) (domain.DomainRequest, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests
		 WHERE domain = ? AND status = 'pending'`, dom)
	return scanRequest(row)
}

func (r *requestsRepo) ListRequests(
	ctx context.Context,
	status *domain.RequestStatus,
) ([]domain.DomainRequest, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status != nil {
		rows, err = r.q.QueryContext(ctx,
			`SELECT `+requestColumns+` FROM requests
			 WHERE status = ? ORDER BY created_at DESC`, string(*status))
	} else {
		rows, err = r.q.QueryContext(ctx,
			`SELECT `+requestColumns+` FROM requests ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DomainRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *requestsRepo) ResolveRequestIfPending(
	ctx context.Context,
	id string,
	status domain.RequestStatus,
	resolvedBy, note string,
	at time.Time,
) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE requests
		 SET status = ?, resolved_by = ?, resolution_note = ?, resolved_at = ?
		 WHERE id = ? AND status = 'pending'`,
		string(status), resolvedBy, note, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *requestsRepo) DeleteRequest(ctx context.Context, id string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanRequest(row rowScanner) (domain.DomainRequest, error) {
	var (
		req        domain.DomainRequest
		priority   string
		status     string
		resolvedAt sql.NullTime
	)
	err := row.Scan(
		&req.ID, &req.Domain, &req.Reason, &req.RequesterEmail, &req.GroupID,
		&priority, &status, &resolvedAt, &req.ResolvedBy, &req.ResolutionNote,
		&req.CreatedAt,
	)
	if err != nil {
		return domain.DomainRequest{}, mapNotFound(err)
	}

	req.Priority = domain.RequestPriority(priority)
	req.Status = domain.RequestStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	return req, nil
}
