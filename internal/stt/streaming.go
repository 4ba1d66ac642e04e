package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// frameDecoder turns one text frame into zero or more events.
type frameDecoder func(msg []byte) ([]Event, error)

// wsStream is the streaming family: a WebSocket whose text frames are
// decoded by a provider-specific function. A reader goroutine feeds a
// buffered event channel that is closed when the socket ends.
type wsStream struct {
	id        string
	terminate []byte
	buildURL  func(cfg Config) string
	authValue func(key string) string
	decode    frameDecoder
	opts      options

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	events  chan Event
	quit    chan struct{}
	done    chan struct{}
	closing bool
}

func (s *wsStream) Name() string   { return s.id }
func (s *wsStream) Family() Family { return Streaming }

func (s *wsStream) Connect(ctx context.Context, cfg Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("%s API key is empty", s.id)
	}

	url := s.buildURL(cfg)
	header := http.Header{}
	header.Set("Authorization", s.authValue(cfg.APIKey))

	conn, resp, err := s.opts.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%s connection failed (%s): %w", s.id, resp.Status, err)
		}
		return fmt.Errorf("%s connection failed: %w", s.id, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.events = make(chan Event, 64)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	s.closing = false
	s.mu.Unlock()

	go s.readLoop(conn, s.events, s.quit, s.done)

	s.opts.logger.Info("stt websocket connected", "provider", s.id)
	return nil
}

func (s *wsStream) readLoop(conn *websocket.Conn, events chan<- Event, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(events)

	push := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-quit:
			return false
		}
	}

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || s.isClosing() {
				s.opts.logger.Info("stt websocket closed", "provider", s.id)
				return
			}
			s.opts.logger.Error("stt websocket error", "provider", s.id, "error", err)
			push(Event{Kind: Error, Message: err.Error()})
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		evs, err := s.decode(msg)
		if err != nil {
			s.opts.logger.Warn("skipping malformed stt frame", "provider", s.id, "error", err)
			continue
		}
		for _, ev := range evs {
			if !push(ev) {
				return
			}
		}
	}
}

func (s *wsStream) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *wsStream) SendAudio(ctx context.Context, chunk []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, chunk)
}

func (s *wsStream) RecvTranscript(ctx context.Context) (Event, bool, error) {
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()
	if events == nil {
		return Event{}, false, nil
	}

	select {
	case ev, ok := <-events:
		return ev, ok, nil
	case <-ctx.Done():
		return Event{}, false, ctx.Err()
	}
}

// Disconnect sends the termination frame and waits (bounded) for the server
// to close so trailing results still reach RecvTranscript. Streaming
// providers never return text here.
func (s *wsStream) Disconnect(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	conn, quit, done := s.conn, s.quit, s.done
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return "", false, nil
	}

	s.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, s.terminate)
	s.writeMu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.opts.logger.Warn("failed to send termination frame", "provider", s.id, "error", err)
	}

	timer := time.NewTimer(s.opts.drainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	conn.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		// Unblock a reader that lost its consumer.
		close(quit)
		<-done
	}

	s.opts.logger.Info("stt disconnected", "provider", s.id)
	return "", false, nil
}
