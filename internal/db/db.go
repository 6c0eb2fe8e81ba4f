package db

import (
	"context"
	"database/sql"
	_ "embed"

	_ "modernc.org/sqlite"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a sqlite connection and applies the schema idempotently on
// open. All persisted state lives in one relational file per user.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and
// applies schema.sql. Foreign keys are enabled per-connection since
// sqlite defaults them off.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: open %s", path)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway; avoid SQLITE_BUSY races

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, apperr.Wrap(apperr.Persistence, err, "db: enable foreign keys")
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, apperr.Wrap(apperr.Persistence, err, "db: apply schema")
	}

	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn exposes the underlying *sql.DB for packages (memory, question)
// that own their own table-specific queries against the same file.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Exec runs a statement, translating sqlite errors to apperr.Persistence.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, err, "db: exec")
	}
	return res, nil
}
