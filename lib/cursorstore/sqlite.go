// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cursorstore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/matrixbot/lib/sqlitepool"
)

var migrations = []string{
	`CREATE TABLE sync_cursor (
		account    TEXT PRIMARY KEY,
		next_batch TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (unixepoch())
	);`,
}

// SQLite stores cursors in a SQLite database file.
type SQLite struct {
	pool *sqlitepool.Pool
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       path,
		Migrations: migrations,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening cursor store: %w", err)
	}
	return &SQLite{pool: pool}, nil
}

// LoadCursor returns the cursor saved for account, or "".
func (s *SQLite) LoadCursor(ctx context.Context, account string) (string, error) {
	var cursor string
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT next_batch FROM sync_cursor WHERE account = ?",
			&sqlitex.ExecOptions{
				Args: []any{account},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					cursor = stmt.ColumnText(0)
					return nil
				},
			})
	})
	if err != nil {
		return "", fmt.Errorf("loading cursor for %s: %w", account, err)
	}
	return cursor, nil
}

// SaveCursor replaces the cursor for account. An empty cursor clears it.
func (s *SQLite) SaveCursor(ctx context.Context, account, cursor string) error {
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		if cursor == "" {
			return sqlitex.Execute(conn,
				"DELETE FROM sync_cursor WHERE account = ?",
				&sqlitex.ExecOptions{Args: []any{account}})
		}
		return sqlitex.Execute(conn, `
			INSERT INTO sync_cursor (account, next_batch) VALUES (?, ?)
			ON CONFLICT (account) DO UPDATE SET
				next_batch = excluded.next_batch,
				updated_at = unixepoch()`,
			&sqlitex.ExecOptions{Args: []any{account, cursor}})
	})
	if err != nil {
		return fmt.Errorf("saving cursor for %s: %w", account, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.pool.Close()
}
