//go:build sqlite_fts5

package history

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS compilations_fts USING fts5(
			id UNINDEXED,
			title,
			query,
			criteria,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, query, criteria string) error {
	_, _ = tx.Exec(`DELETE FROM compilations_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO compilations_fts (id, title, query, criteria) VALUES (?, ?, ?, ?)`,
		id, title, query, criteria)
	if err != nil {
		return fmt.Errorf("history: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching compilations
// with snippets of the emitted query.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       title,
		       snippet(compilations_fts, 2, '<b>', '</b>', '...', 64)
		FROM compilations_fts
		WHERE compilations_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
