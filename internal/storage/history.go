package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MaxHistoryEntries is the number of entries kept; older ones are pruned
// on insert.
const MaxHistoryEntries = 5000

// HistoryEntry is one completed dictation. Language and DurationMs are
// nil when unknown.
type HistoryEntry struct {
	ID           int64   `json:"id"`
	CreatedAt    string  `json:"created_at"`
	AppName      string  `json:"app_name"`
	AppType      string  `json:"app_type"`
	RawText      string  `json:"raw_text"`
	PolishedText string  `json:"polished_text"`
	Language     *string `json:"language"`
	DurationMs   *int64  `json:"duration_ms"`
}

// AddHistory inserts e and prunes the table to MaxHistoryEntries. An
// empty CreatedAt is filled with the current time in RFC 3339.
func (s *Store) AddHistory(ctx context.Context, e HistoryEntry) error {
	if e.CreatedAt == "" {
		e.CreatedAt = s.clock().UTC().Format(time.RFC3339)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (created_at, app_name, app_type, raw_text, polished_text, language, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.CreatedAt, e.AppName, e.AppType, e.RawText, e.PolishedText, e.Language, e.DurationMs)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
		s.maxHistory)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return tx.Commit()
}

// ListHistory returns entries newest first.
func (s *Store) ListHistory(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, app_name, app_type, raw_text, polished_text, language, duration_ms
		 FROM history ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var lang sql.NullString
		var dur sql.NullInt64
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.AppName, &e.AppType, &e.RawText, &e.PolishedText, &lang, &dur); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if lang.Valid {
			e.Language = &lang.String
		}
		if dur.Valid {
			e.DurationMs = &dur.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearHistory deletes every entry.
func (s *Store) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// CountHistory returns the number of stored entries.
func (s *Store) CountHistory(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n)
	return n, err
}
