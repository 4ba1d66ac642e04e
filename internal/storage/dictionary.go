package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTermLength bounds words and pronunciations, in characters.
const MaxTermLength = 100

var (
	ErrEmptyWord            = errors.New("Word cannot be empty")
	ErrWordTooLong          = errors.New("Word is too long (max 100 characters)")
	ErrPronunciationTooLong = errors.New("Pronunciation is too long (max 100 characters)")
)

// DictionaryEntry is a custom term. Pronunciation is nil when not set.
type DictionaryEntry struct {
	ID            int64   `json:"id"`
	Word          string  `json:"word"`
	Pronunciation *string `json:"pronunciation"`
}

// AddWord validates and stores a term. The word is trimmed first.
func (s *Store) AddWord(ctx context.Context, word string, pronunciation *string) (int64, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return 0, ErrEmptyWord
	}
	if utf8.RuneCountInString(word) > MaxTermLength {
		return 0, ErrWordTooLong
	}
	if pronunciation != nil && utf8.RuneCountInString(*pronunciation) > MaxTermLength {
		return 0, ErrPronunciationTooLong
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dictionary (word, pronunciation) VALUES (?, ?)`, word, pronunciation)
	if err != nil {
		return 0, fmt.Errorf("insert word: %w", err)
	}
	return res.LastInsertId()
}

// RemoveWord deletes the term with id. Unknown ids are not an error.
func (s *Store) RemoveWord(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dictionary WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	return nil
}

// ListWords returns all terms in insertion order.
func (s *Store) ListWords(ctx context.Context) ([]DictionaryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, word, pronunciation FROM dictionary ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query dictionary: %w", err)
	}
	defer rows.Close()

	entries := []DictionaryEntry{}
	for rows.Next() {
		var e DictionaryEntry
		var p sql.NullString
		if err := rows.Scan(&e.ID, &e.Word, &p); err != nil {
			return nil, fmt.Errorf("scan dictionary: %w", err)
		}
		if p.Valid {
			e.Pronunciation = &p.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Words returns just the terms. Read errors yield an empty list so a
// broken dictionary never blocks dictation.
func (s *Store) Words(ctx context.Context) []string {
	entries, err := s.ListWords(ctx)
	if err != nil {
		return nil
	}
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		words = append(words, e.Word)
	}
	return words
}
