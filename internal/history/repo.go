package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// List status filters.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const defaultLimit = 50

var sortColumns = map[string]string{
	"":           "created_at DESC",
	"created_at": "created_at DESC",
	"title":      "title ASC, created_at DESC",
	"source":     "source ASC, created_at DESC",
}

// ListOptions filters and pages List results.
type ListOptions struct {
	Limit    int
	Offset   int
	Category string
	Status   string
	Source   string
	Sort     string
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const selectColumns = `id, source, document, title, checksum, criteria, categories,
	user_name, folder, reference, query, error, created_at`

// Record inserts a compilation, its categories and its FTS entry within a
// transaction.
func (db *DB) Record(c models.Compilation) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if c.Categories == nil {
		c.Categories = []string{}
	}
	categoriesJSON, _ := json.Marshal(c.Categories)

	var reference any
	if !c.Reference.IsZero() {
		reference = c.Reference.UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO compilations (id, source, document, title, checksum, criteria, categories,
			user_name, folder, reference, query, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Source, c.Document, c.Title, c.Checksum, c.Criteria, string(categoriesJSON),
		c.User, c.Folder, reference, c.Query, c.Error, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("history: insert compilation: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, c.ID, c.Title, c.Query, c.Criteria); err != nil {
		return err
	}

	if len(c.Categories) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO compilation_categories (compilation_id, category) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("history: prepare category insert: %w", err)
		}
		defer stmt.Close()
		for _, cat := range c.Categories {
			if _, err := stmt.Exec(c.ID, cat); err != nil {
				return fmt.Errorf("history: insert category: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Get returns the compilation with the given id, or apperr.ErrNotFound.
func (db *DB) Get(id string) (*models.Compilation, error) {
	row := db.conn.QueryRow(`SELECT `+selectColumns+` FROM compilations WHERE id = ?`, id)
	c, err := scanCompilation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get: %w", err)
	}
	return c, nil
}

// List returns a page of compilations matching opts and the total number of
// matches.
func (db *DB) List(opts ListOptions) ([]models.Compilation, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := max(opts.Offset, 0)
	order, ok := sortColumns[opts.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("history: unknown sort %q: %w", opts.Sort, apperr.ErrValidation)
	}

	var (
		where []string
		args  []any
	)
	if opts.Category != "" {
		where = append(where, `id IN (SELECT compilation_id FROM compilation_categories WHERE category = ?)`)
		args = append(args, opts.Category)
	}
	if opts.Source != "" {
		where = append(where, `source = ?`)
		args = append(args, opts.Source)
	}
	switch opts.Status {
	case "":
	case StatusOK:
		where = append(where, `error = ''`)
	case StatusFailed:
		where = append(where, `error <> ''`)
	default:
		return nil, 0, fmt.Errorf("history: unknown status %q: %w", opts.Status, apperr.ErrValidation)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM compilations`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("history: count: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+selectColumns+` FROM compilations`+clause+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := []models.Compilation{}
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// MarkDocument stores the checksum of an inbox document that has been
// compiled, so unchanged documents are skipped on the next sync.
func (db *DB) MarkDocument(path, checksum string) error {
	_, err := db.conn.Exec(`
		INSERT INTO documents (path, checksum, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, path, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("history: mark document: %w", err)
	}
	return nil
}

// ForgetDocument drops the tracking entry for an inbox document. Recorded
// compilations are kept.
func (db *DB) ForgetDocument(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("history: forget document: %w", err)
	}
	return nil
}

// DocumentChecksums returns the last compiled checksum of every tracked
// inbox document.
func (db *DB) DocumentChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("history: document checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompilation(s scanner) (*models.Compilation, error) {
	var (
		c          models.Compilation
		categories string
		reference  sql.NullTime
	)
	err := s.Scan(&c.ID, &c.Source, &c.Document, &c.Title, &c.Checksum, &c.Criteria, &categories,
		&c.User, &c.Folder, &reference, &c.Query, &c.Error, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(categories), &c.Categories); err != nil {
		return nil, fmt.Errorf("history: decode categories: %w", err)
	}
	if reference.Valid {
		c.Reference = reference.Time.UTC()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
