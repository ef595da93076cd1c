package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id          TEXT PRIMARY KEY,
	x           REAL NOT NULL,
	e           REAL NOT NULL,
	value       REAL NOT NULL,
	terms       INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
`

// Evaluation history in SQLite. Safe for concurrent use.
type History struct {
	db *sql.DB
}

// Opens (creates) the database and runs migrations. Use ":memory:" for a transient history.
func Open(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// single writer; in-memory databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// Stores record and returns its generated ID. Zero record time is replaced with now.
func (h *History) Add(ctx context.Context, rec Record) (string, error) {
	id := uuid.New().String()
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, x, e, value, terms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.X, rec.E, rec.Value, rec.Terms, rec.Time.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert evaluation: %w", err)
	}
	return id, nil
}

// Latest records, newest first
func (h *History) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, x, e, value, terms, created_at FROM evaluations ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	ret := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.X, &rec.E, &rec.Value, &rec.Terms, &createdAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		if rec.Time, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse time of %s: %w", rec.ID, err)
		}
		ret = append(ret, rec)
	}
	return ret, rows.Err()
}

// Number of stored records
func (h *History) Count(ctx context.Context) (int, error) {
	var count int
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count evaluations: %w", err)
	}
	return count, nil
}
