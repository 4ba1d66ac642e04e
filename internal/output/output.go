// Package output delivers final text into the focused application, either
// as synthetic keystrokes or through the clipboard.
package output

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yok-tottii/ezdictate/internal/clipboard"
)

// Mode selects how text reaches the focused application.
type Mode string

const (
	ModeKeyboard  Mode = "keyboard"
	ModeClipboard Mode = "clipboard"
)

// ParseMode maps a config value to a Mode. Anything unknown is keyboard.
func ParseMode(s string) Mode {
	if Mode(s) == ModeClipboard {
		return ModeClipboard
	}
	return ModeKeyboard
}

const (
	// TypeChunkSize bounds each synthetic typing call to keep input
	// buffers from overflowing.
	TypeChunkSize = 200
	typeChunkWait = 5 * time.Millisecond
)

// Sink writes text to the focused application.
type Sink interface {
	Output(ctx context.Context, text string) error
	Mode() Mode
}

// New returns the sink for mode.
func New(mode Mode, kb clipboard.Keyboard, cb *clipboard.Manager) Sink {
	if mode == ModeClipboard {
		return &clipboardSink{cb: cb}
	}
	return &keyboardSink{kb: kb, sleep: time.Sleep}
}

type keyboardSink struct {
	kb    clipboard.Keyboard
	sleep func(time.Duration)
}

func (s *keyboardSink) Mode() Mode { return ModeKeyboard }

// Output types each line in chunks and separates lines with Shift+Enter so
// chat apps do not send the message early.
func (s *keyboardSink) Output(ctx context.Context, text string) error {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, chunk := range clipboard.SplitRunes(line, TypeChunkSize) {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.kb.TypeText(chunk)
			s.sleep(typeChunkWait)
		}
		if i < len(lines)-1 {
			if err := s.kb.KeyTap("enter", "shift"); err != nil {
				return fmt.Errorf("failed to send newline: %w", err)
			}
		}
	}
	return nil
}

type clipboardSink struct {
	cb *clipboard.Manager
}

func (s *clipboardSink) Mode() Mode { return ModeClipboard }

func (s *clipboardSink) Output(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.cb.Paste(text)
}
