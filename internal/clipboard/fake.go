package clipboard

import (
	"errors"
	"strings"
	"sync"
)

// Recorder is an in-memory Keyboard for tests. It records every action in
// order and emulates copy and paste against its own clipboard.
type Recorder struct {
	mu        sync.Mutex
	clip      string
	hasClip   bool
	selection string
	typed     strings.Builder
	actions   []string
	tapErr    error
}

// NewRecorder returns a Recorder whose clipboard holds initial. An empty
// initial value means the clipboard cannot be read.
func NewRecorder(initial string) *Recorder {
	return &Recorder{clip: initial, hasClip: initial != ""}
}

// Select sets the text a copy shortcut will place on the clipboard.
func (r *Recorder) Select(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection = text
}

// FailTaps makes every KeyTap return err.
func (r *Recorder) FailTaps(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tapErr = err
}

func (r *Recorder) ReadText() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasClip {
		return "", errors.New("clipboard empty")
	}
	return r.clip, nil
}

func (r *Recorder) WriteText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clip = text
	r.hasClip = true
	r.actions = append(r.actions, "write:"+text)
	return nil
}

func (r *Recorder) KeyTap(key string, modifiers ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tapErr != nil {
		return r.tapErr
	}
	combo := strings.Join(append(append([]string{}, modifiers...), key), "+")
	r.actions = append(r.actions, "tap:"+combo)

	if len(modifiers) == 1 && modifiers[0] == ShortcutModifier() {
		switch key {
		case "c":
			if r.selection != "" {
				r.clip = r.selection
			}
		case "v":
			r.typed.WriteString(r.clip)
		}
	}
	if key == "enter" {
		r.typed.WriteString("\n")
	}
	return nil
}

func (r *Recorder) TypeText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, "type:"+text)
	r.typed.WriteString(text)
}

// Typed returns everything delivered to the focused application.
func (r *Recorder) Typed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typed.String()
}

// Clipboard returns the current clipboard text.
func (r *Recorder) Clipboard() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip
}

// Actions returns the recorded actions.
func (r *Recorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}
