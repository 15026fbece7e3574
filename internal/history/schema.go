// Package history provides a SQLite-backed record of compilations with
// optional FTS5 full-text search over titles, criteria and emitted queries.
package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS compilations (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL DEFAULT '',
	document   TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	criteria   TEXT NOT NULL DEFAULT '',
	categories TEXT NOT NULL DEFAULT '[]',
	user_name  TEXT NOT NULL DEFAULT '',
	folder     TEXT NOT NULL DEFAULT '',
	reference  DATETIME,
	query      TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_compilations_created ON compilations(created_at);
CREATE INDEX IF NOT EXISTS idx_compilations_checksum ON compilations(checksum);

CREATE TABLE IF NOT EXISTS compilation_categories (
	compilation_id TEXT NOT NULL,
	category       TEXT NOT NULL,
	UNIQUE(compilation_id, category)
);

CREATE INDEX IF NOT EXISTS idx_categories_category ON compilation_categories(category);

CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with history-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
