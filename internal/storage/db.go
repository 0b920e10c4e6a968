package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors surfaced by store operations.
var (
	// ErrDuplicateURL reports a uniqueness-constraint violation on items.url.
	ErrDuplicateURL = errors.New("url already exists")
	// ErrItemNotFound reports a summary write against a nonexistent item.
	ErrItemNotFound = errors.New("item not found")
	// ErrNoReport reports an empty reports table.
	ErrNoReport = errors.New("no reports recorded")
	// ErrInvalidScore reports a relevance score outside the 1-5 range.
	ErrInvalidScore = errors.New("relevance score must be between 1 and 5")
)

// DB wraps SQLite database operations for the news metadata store.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the SQLite database at path, creating parent
// directories as needed. A nil logger falls back to slog.Default().
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode plus a busy timeout so concurrent ingest runs queue on the
	// file lock instead of failing immediately.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &DB{db: db, logger: logger}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Init creates all relations and indexes if they don't exist. Safe to call
// repeatedly; never touches existing data.
func (d *DB) Init(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		published_at TEXT,
		discovered_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE TABLE IF NOT EXISTS summaries (
		item_id INTEGER PRIMARY KEY REFERENCES items(id),
		summary TEXT NOT NULL,
		relevance_score INTEGER,
		relevance_reason TEXT,
		keywords TEXT NOT NULL DEFAULT '[]',
		summarized_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL UNIQUE,
		item_count INTEGER NOT NULL,
		high_relevance_count INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		file_path TEXT
	);

	CREATE TABLE IF NOT EXISTS source_sync_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		sync_date TEXT NOT NULL,
		items_fetched INTEGER NOT NULL,
		items_new INTEGER NOT NULL,
		items_duplicate INTEGER NOT NULL,
		latest_item_date TEXT NOT NULL DEFAULT '',
		date_range_start TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS source_status (
		source_id TEXT PRIMARY KEY,
		last_fetched_date TEXT NOT NULL,
		last_fetched_count INTEGER NOT NULL,
		total_items_fetched INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
	CREATE INDEX IF NOT EXISTS idx_items_source ON items(source_id);
	CREATE INDEX IF NOT EXISTS idx_items_discovered ON items(discovered_at);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite uniqueness-constraint
// failure.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
