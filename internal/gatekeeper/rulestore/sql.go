package rulestore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// SQLBackend stores rule files in the rule_files table, using the sha
// column as the compare-and-swap condition. It shares the service's sqlite
// handle and schema migrations.
type SQLBackend struct {
	db *sql.DB
}

func NewSQLBackend(db *sql.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) Get(ctx context.Context, path string) ([]byte, string, error) {
	var (
		content []byte
		sha     string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT content, sha FROM rule_files WHERE path = ?`, path).
		Scan(&content, &sha)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return content, sha, nil
}

func (b *SQLBackend) Put(ctx context.Context, path string, content []byte, sha string) (string, error) {
	newSHA := ContentSHA(content)
	now := time.Now().UTC()

	if sha == "" {
		_, err := b.db.ExecContext(ctx,
			`INSERT INTO rule_files (path, content, sha, updated_at) VALUES (?, ?, ?, ?)`,
			path, content, newSHA, now)
		if err != nil {
			// A duplicate path means another writer created the file
			// first; the caller must re-read and write against the real
			// version. Anything else is a genuine database failure.
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return "", ErrStaleVersion
			}
			return "", err
		}
		return newSHA, nil
	}

	res, err := b.db.ExecContext(ctx,
		`UPDATE rule_files SET content = ?, sha = ?, updated_at = ?
		 WHERE path = ? AND sha = ?`,
		content, newSHA, now, path, sha)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrStaleVersion
	}
	return newSHA, nil
}

func (b *SQLBackend) List(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT path FROM rule_files ORDER BY path ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
