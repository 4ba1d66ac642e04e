// Package stt talks to speech-to-text services. Providers come in two
// families: streaming providers hold a WebSocket open and emit transcript
// events while audio flows; buffered providers collect audio and upload it
// as one WAV file when the session is disconnected.
package stt

import (
	"context"
	"errors"
	"fmt"
)

// Family distinguishes when transcripts become available.
type Family int

const (
	// Streaming providers emit events during the session.
	Streaming Family = iota
	// Buffered providers return the whole transcript from Disconnect.
	Buffered
)

func (f Family) String() string {
	if f == Buffered {
		return "buffered"
	}
	return "streaming"
}

// EventKind enumerates normalized transcript events.
type EventKind int

const (
	Partial EventKind = iota
	Final
	SpeechStarted
	SpeechEnded
	Error
)

func (k EventKind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Final:
		return "final"
	case SpeechStarted:
		return "speech_started"
	case SpeechEnded:
		return "speech_ended"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a transcript event normalized across providers. Partial text
// may be superseded; Final text is authoritative.
type Event struct {
	Kind       EventKind
	Text       string
	Confidence float32
	Message    string
}

// Config is the per-session configuration. An empty Language means no
// language hint.
type Config struct {
	APIKey      string
	Language    string
	SmartFormat bool
	SampleRate  int
}

// DefaultConfig returns a 16kHz session with smart formatting.
func DefaultConfig() Config {
	return Config{SmartFormat: true, SampleRate: 16000}
}

// Provider is one STT session. A Provider is not reused across sessions.
type Provider interface {
	Name() string
	Family() Family
	Connect(ctx context.Context, cfg Config) error
	SendAudio(ctx context.Context, chunk []byte) error
	// RecvTranscript blocks until an event arrives. ok is false once no
	// more events will be delivered.
	RecvTranscript(ctx context.Context) (ev Event, ok bool, err error)
	// Disconnect ends the session. Buffered providers return the final
	// transcript here; ok is false when there is none.
	Disconnect(ctx context.Context) (text string, ok bool, err error)
}

// ErrAudioTooLong is returned by buffered providers once the audio cap is hit.
var ErrAudioTooLong = errors.New("audio exceeds maximum length (~12 min)")

// ErrNotConnected is returned when audio is sent before Connect.
var ErrNotConnected = errors.New("not connected")

// QuotaError carries the message of a 403 response.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string { return e.Message }

// HTTPError is a non-success response with a truncated body.
type HTTPError struct {
	Provider string
	Status   string
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Status, e.Body)
}

// TruncateBody cuts s to roughly limit bytes without splitting a UTF-8
// sequence.
func TruncateBody(s string, limit int) string {
	for i := range s {
		if i >= limit {
			return s[:i]
		}
	}
	return s
}

const errorBodyLimit = 200
