package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal persists entries in a local SQLite database.
type SQLiteJournal struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLite opens (or creates) a SQLite journal at the given path.
func NewSQLite(path string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteJournal{
		db:     db,
		dbPath: path,
	}, nil
}

func createTables(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			sighting_value TEXT NOT NULL,
			sighting_title TEXT NOT NULL,
			sighting_type TEXT NOT NULL,
			outcome TEXT NOT NULL,
			upstream_status INTEGER NOT NULL DEFAULT 0,
			entity_id TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_submissions_outcome ON submissions(outcome);
		CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record persists a new entry.
func (j *SQLiteJournal) Record(ctx context.Context, entry *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO submissions (id, sighting_value, sighting_title, sighting_type,
			outcome, upstream_status, entity_id, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(ctx, query,
		entry.ID, entry.SightingValue, entry.SightingTitle, entry.SightingType,
		entry.Outcome, entry.UpstreamStatus, entry.EntityID, entry.Error,
		entry.Duration.Milliseconds(), createdAt)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	return nil
}

// Get returns an entry by ID.
func (j *SQLiteJournal) Get(ctx context.Context, id string) (*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	query := `
		SELECT id, sighting_value, sighting_title, sighting_type,
			outcome, upstream_status, entity_id, error, duration_ms, created_at
		FROM submissions
		WHERE id = ?
	`

	entry, err := scanEntry(j.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return entry, nil
}

// List returns the most recent entries, newest first.
func (j *SQLiteJournal) List(ctx context.Context, limit int) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, sighting_value, sighting_title, sighting_type,
			outcome, upstream_status, entity_id, error, duration_ms, created_at
		FROM submissions
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// Cleanup removes entries older than maxAge.
func (j *SQLiteJournal) Cleanup(ctx context.Context, maxAge time.Duration) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)
	_, err := j.db.ExecContext(ctx, "DELETE FROM submissions WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old submissions: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var durationMS int64

	err := row.Scan(&entry.ID, &entry.SightingValue, &entry.SightingTitle,
		&entry.SightingType, &entry.Outcome, &entry.UpstreamStatus,
		&entry.EntityID, &entry.Error, &durationMS, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	entry.Duration = time.Duration(durationMS) * time.Millisecond
	return &entry, nil
}
