package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed implementation of store.Store. All queries are
// hand-written; the schema lives in the embedded migrations.
type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle so sibling components (the local rule
// file backend) can share the connection and migrations.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx executes fn within a transaction, automatically handling
// commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Safe to call even after commit.
	defer func() { _ = tx.Rollback() }()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Users() store.Users       { return &usersRepo{q: s.db} }
func (s *Store) Roles() store.Roles       { return &rolesRepo{q: s.db} }
func (s *Store) Requests() store.Requests { return &requestsRepo{q: s.db} }
func (s *Store) Machines() store.Machines { return &machinesRepo{q: s.db} }
func (s *Store) Reports() store.Reports   { return &reportsRepo{q: s.db} }

// querier is the subset of *sql.DB / *sql.Tx the repos need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Users() store.Users       { return &usersRepo{q: t.tx} }
func (t *txStore) Roles() store.Roles       { return &rolesRepo{q: t.tx} }
func (t *txStore) Requests() store.Requests { return &requestsRepo{q: t.tx} }
func (t *txStore) Machines() store.Machines { return &machinesRepo{q: t.tx} }
func (t *txStore) Reports() store.Reports   { return &reportsRepo{q: t.tx} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint converts unique-constraint violations into
// store.ErrAlreadyExists so services don't have to know driver error codes.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// joinGroups / splitGroups store group id sets space-delimited.
func joinGroups(groups []string) string {
	return strings.Join(groups, " ")
}

func splitGroups(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Fields(s)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
