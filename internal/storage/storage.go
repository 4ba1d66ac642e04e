// Package storage keeps dictation history and the custom-term dictionary
// in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBFileName is the database file created in the application directory.
const DBFileName = "ezdictate.db"

// Store wraps the SQLite database holding history and dictionary tables.
type Store struct {
	db         *sql.DB
	clock      func() time.Time
	maxHistory int
}

// Open creates or opens the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps pruning and inserts serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, clock: time.Now, maxHistory: MaxHistoryEntries}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    app_name TEXT NOT NULL DEFAULT '',
    app_type TEXT NOT NULL DEFAULT '',
    raw_text TEXT NOT NULL DEFAULT '',
    polished_text TEXT NOT NULL DEFAULT '',
    language TEXT,
    duration_ms INTEGER
);
CREATE TABLE IF NOT EXISTS dictionary (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    word TEXT NOT NULL,
    pronunciation TEXT
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	return s.db.Close()
}
