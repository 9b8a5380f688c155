package sqlite

import (
	"context"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
)

type machinesRepo struct {
	q querier
}

func (r *machinesRepo) UpsertMachine(ctx context.Context, m domain.Machine) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO machines (id, hostname, classroom, registered_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(hostname) DO UPDATE SET
		   classroom = excluded.classroom,
		   last_seen_at = excluded.last_seen_at`,
		m.ID, m.Hostname, m.Classroom, m.RegisteredAt, m.LastSeenAt)
	return err
}

func (r *machinesRepo) ListMachines(ctx context.Context) ([]domain.Machine, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, hostname, classroom, registered_at, last_seen_at
		 FROM machines ORDER BY hostname ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Machine
	for rows.Next() {
		var m domain.Machine
		if err := rows.Scan(&m.ID, &m.Hostname, &m.Classroom, &m.RegisteredAt, &m.LastSeenAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type reportsRepo struct {
	q querier
}

func (r *reportsRepo) CreateReport(ctx context.Context, rep domain.Report) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO reports (id, hostname, payload, received_at) VALUES (?, ?, ?, ?)`,
		rep.ID, rep.Hostname, rep.Payload, rep.ReceivedAt)
	return err
}

func (r *reportsRepo) DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM reports WHERE received_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
