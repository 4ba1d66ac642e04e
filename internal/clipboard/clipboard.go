package clipboard

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Keyboard is the OS input surface: the text clipboard plus synthetic key
// presses. Robot implements it with robotgo.
type Keyboard interface {
	ReadText() (string, error)
	WriteText(text string) error
	KeyTap(key string, modifiers ...string) error
	TypeText(text string)
}

// Config holds clipboard manager timings.
type Config struct {
	PasteSettle  time.Duration // after writing the clipboard, before pasting (default: 20ms)
	RestoreDelay time.Duration // after pasting, before restoring (default: 50ms)
	CopySettle   time.Duration // after the copy shortcut, before reading (default: 100ms)
	ChunkDelay   time.Duration // after each streamed chunk paste (default: 30ms)
}

// DefaultConfig returns the default clipboard configuration
func DefaultConfig() Config {
	return Config{
		PasteSettle:  20 * time.Millisecond,
		RestoreDelay: 50 * time.Millisecond,
		CopySettle:   100 * time.Millisecond,
		ChunkDelay:   30 * time.Millisecond,
	}
}

// Manager pastes through the clipboard and puts the user's content back
// afterwards.
type Manager struct {
	kb     Keyboard
	config Config
	sleep  func(time.Duration)
}

// NewManager creates a new clipboard manager
func NewManager(kb Keyboard, config Config) *Manager {
	return &Manager{kb: kb, config: config, sleep: time.Sleep}
}

// Snapshot is a saved clipboard. Valid is false when the clipboard could
// not be read (empty or non-text); such a snapshot restores nothing.
type Snapshot struct {
	Text  string
	Valid bool
}

// ShortcutModifier is Cmd on macOS and Ctrl elsewhere.
func ShortcutModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Backup saves the current clipboard text.
func (m *Manager) Backup() Snapshot {
	text, err := m.kb.ReadText()
	if err != nil {
		return Snapshot{}
	}
	return Snapshot{Text: text, Valid: true}
}

// Restore writes a snapshot back. Invalid snapshots are ignored.
func (m *Manager) Restore(s Snapshot) {
	if s.Valid {
		m.kb.WriteText(s.Text)
	}
}

// Paste sends text to the focused application via the clipboard and
// restores the previous clipboard text.
func (m *Manager) Paste(text string) error {
	backup := m.Backup()
	defer m.Restore(backup)

	if err := m.kb.WriteText(text); err != nil {
		return fmt.Errorf("failed to set clipboard: %w", err)
	}
	m.sleep(m.config.PasteSettle)

	if err := m.kb.KeyTap("v", ShortcutModifier()); err != nil {
		return fmt.Errorf("failed to send paste shortcut: %w", err)
	}
	m.sleep(m.config.RestoreDelay)
	return nil
}

// PasteChunk pastes one streamed increment without touching the backup.
// Callers wrap a run of chunks with Backup and Restore.
func (m *Manager) PasteChunk(chunk string) error {
	if err := m.kb.WriteText(chunk); err != nil {
		return fmt.Errorf("failed to set clipboard: %w", err)
	}
	if err := m.kb.KeyTap("v", ShortcutModifier()); err != nil {
		return fmt.Errorf("failed to send paste shortcut: %w", err)
	}
	m.sleep(m.config.ChunkDelay)
	return nil
}

// CaptureSelection copies the selection of the focused application and
// returns it. The clipboard is always restored. Blank selections report
// false. Must be called with no hotkey modifiers physically held.
func (m *Manager) CaptureSelection() (string, bool) {
	backup := m.Backup()

	// Cleared first so an empty selection is not mistaken for stale content.
	m.kb.WriteText("")
	m.kb.KeyTap("c", ShortcutModifier())
	m.sleep(m.config.CopySettle)

	selected, err := m.kb.ReadText()
	m.Restore(backup)

	if err != nil || strings.TrimSpace(selected) == "" {
		return "", false
	}
	return selected, true
}
