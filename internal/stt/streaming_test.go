package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsServer struct {
	srv *httptest.Server

	mu      sync.Mutex
	auth    string
	query   string
	binary  int
	control []string
}

// newWSServer runs script on each connection after the upgrade. script
// receives the socket and a channel of text frames from the client.
func newWSServer(t *testing.T, script func(conn *websocket.Conn, text <-chan string)) *wsServer {
	t.Helper()
	s := &wsServer{}
	upgrader := websocket.Upgrader{}

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auth = r.Header.Get("Authorization")
		s.query = r.URL.RawQuery
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		text := make(chan string, 16)
		go func() {
			defer close(text)
			for {
				typ, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				s.mu.Lock()
				if typ == websocket.BinaryMessage {
					s.binary++
				} else {
					s.control = append(s.control, string(msg))
				}
				s.mu.Unlock()
				if typ == websocket.TextMessage {
					text <- string(msg)
				}
			}
		}()

		script(conn, text)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func drain(t *testing.T, p Provider) []Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var evs []Event
	for {
		ev, ok, err := p.RecvTranscript(ctx)
		if err != nil {
			t.Fatalf("RecvTranscript failed: %v", err)
		}
		if !ok {
			return evs
		}
		evs = append(evs, ev)
	}
}

func TestDeepgramSession(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, text <-chan string) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata","request_id":"x"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel","confidence":0.5}]}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello","confidence":0.9}]}}`))

		// Wait for CloseStream, then flush the last utterance and close.
		for msg := range text {
			if strings.Contains(msg, "CloseStream") {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"world","confidence":0.8}]}}`))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	})

	ctx := context.Background()
	p := New(ProviderDeepgram, WithEndpoint(srv.url()))
	if p.Family() != Streaming {
		t.Fatalf("Expected streaming family, got %s", p.Family())
	}

	cfg := DefaultConfig()
	cfg.APIKey = "dg"
	if err := p.Connect(ctx, cfg); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := p.SendAudio(ctx, make([]byte, 640)); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}

	var evs []Event
	for len(evs) < 2 {
		ev, ok, err := p.RecvTranscript(ctx)
		if err != nil || !ok {
			t.Fatalf("Expected event, got ok=%v err=%v", ok, err)
		}
		evs = append(evs, ev)
	}

	text, ok, err := p.Disconnect(ctx)
	if err != nil || ok || text != "" {
		t.Errorf("Expected empty disconnect result, got %q ok=%v err=%v", text, ok, err)
	}
	evs = append(evs, drain(t, p)...)

	want := []Event{
		{Kind: Partial, Text: "hel"},
		{Kind: Final, Text: "hello", Confidence: 0.9},
		{Kind: Final, Text: "world", Confidence: 0.8},
		{Kind: SpeechEnded},
	}
	if len(evs) != len(want) {
		t.Fatalf("Expected %d events, got %d: %+v", len(want), len(evs), evs)
	}
	for i := range want {
		if evs[i] != want[i] {
			t.Errorf("Event %d: expected %+v, got %+v", i, want[i], evs[i])
		}
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.auth != "Token dg" {
		t.Errorf("Expected Token auth, got %q", srv.auth)
	}
	for _, param := range []string{"model=nova-3", "language=multi", "sample_rate=16000", "encoding=linear16", "endpointing=150", "smart_format=true"} {
		if !strings.Contains(srv.query, param) {
			t.Errorf("Expected %s in query %q", param, srv.query)
		}
	}
	if srv.binary != 1 {
		t.Errorf("Expected 1 binary frame, got %d", srv.binary)
	}
}

func TestAssemblyAISession(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, text <-chan string) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Begin","id":"sess-1"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Turn","transcript":"good morning","turn_is_formatted":false}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Turn","transcript":"Good morning.","turn_is_formatted":true}`))
		for msg := range text {
			if strings.Contains(msg, "Terminate") {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Termination"}`))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	})

	ctx := context.Background()
	p := New(ProviderAssemblyAI, WithEndpoint(srv.url()))
	if err := p.Connect(ctx, Config{APIKey: "aai", SampleRate: 16000}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	var evs []Event
	for len(evs) < 2 {
		ev, ok, err := p.RecvTranscript(ctx)
		if err != nil || !ok {
			t.Fatalf("Expected event, got ok=%v err=%v", ok, err)
		}
		evs = append(evs, ev)
	}
	p.Disconnect(ctx)
	evs = append(evs, drain(t, p)...)

	want := []EventKind{Partial, Final, SpeechEnded}
	if len(evs) != len(want) {
		t.Fatalf("Expected %d events, got %+v", len(want), evs)
	}
	for i, k := range want {
		if evs[i].Kind != k {
			t.Errorf("Event %d: expected %s, got %s", i, k, evs[i].Kind)
		}
	}
	if evs[1].Text != "Good morning." || evs[1].Confidence != 1.0 {
		t.Errorf("Unexpected final: %+v", evs[1])
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.auth != "aai" {
		t.Errorf("Expected raw key auth, got %q", srv.auth)
	}
	if !strings.Contains(srv.query, "format_turns=true") || !strings.Contains(srv.query, "sample_rate=16000") {
		t.Errorf("Unexpected query %q", srv.query)
	}
}

func TestStreamingDisconnectBoundedWhenServerIgnoresTerminate(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, text <-chan string) {
		for range text {
		}
	})

	ctx := context.Background()
	p := New(ProviderDeepgram, WithEndpoint(srv.url()), WithDrainTimeout(100*time.Millisecond))
	if err := p.Connect(ctx, Config{APIKey: "dg", SampleRate: 16000}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	start := time.Now()
	p.Disconnect(ctx)
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Disconnect took too long: %s", elapsed)
	}

	if evs := drain(t, p); len(evs) != 0 {
		t.Errorf("Expected no events, got %+v", evs)
	}
}

func TestStreamingConnectErrors(t *testing.T) {
	ctx := context.Background()

	if err := New(ProviderDeepgram).Connect(ctx, Config{SampleRate: 16000}); err == nil {
		t.Error("Expected error for empty key")
	}

	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer rejecting.Close()

	p := New(ProviderAssemblyAI, WithEndpoint("ws"+strings.TrimPrefix(rejecting.URL, "http")))
	err := p.Connect(ctx, Config{APIKey: "bad", SampleRate: 16000})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected 401 in error, got %v", err)
	}

	if err := p.SendAudio(ctx, []byte{1}); err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestDecodeDeepgram(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  []Event
	}{
		{"error message", `{"type":"Error","message":"bad key"}`, []Event{{Kind: Error, Message: "bad key"}}},
		{"error description", `{"type":"Error","description":"quota"}`, []Event{{Kind: Error, Message: "quota"}}},
		{"error unknown", `{"type":"Error"}`, []Event{{Kind: Error, Message: "Unknown error"}}},
		{"empty transcript", `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":""}]}}`, nil},
		{"no alternatives", `{"type":"Results","channel":{"alternatives":[]}}`, nil},
		{"speech started", `{"type":"SpeechStarted"}`, []Event{{Kind: SpeechStarted}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeDeepgram([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %+v, got %+v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %+v, got %+v", tt.want[i], got[i])
				}
			}
		})
	}

	if _, err := decodeDeepgram([]byte("{")); err == nil {
		t.Error("Expected error for malformed frame")
	}
}

func TestDecodeAssemblyAI(t *testing.T) {
	evs, id, err := decodeAssemblyAI([]byte(`{"type":"Begin","id":"abc"}`))
	if err != nil || len(evs) != 0 || id != "abc" {
		t.Errorf("Unexpected Begin result: %+v %q %v", evs, id, err)
	}

	evs, _, _ = decodeAssemblyAI([]byte(`{"type":"Turn","transcript":""}`))
	if len(evs) != 0 {
		t.Errorf("Expected empty turn to be skipped, got %+v", evs)
	}

	evs, _, _ = decodeAssemblyAI([]byte(`{"type":"Error","error":"session expired"}`))
	if len(evs) != 1 || evs[0].Kind != Error || evs[0].Message != "session expired" {
		t.Errorf("Unexpected error event: %+v", evs)
	}

	evs, _, _ = decodeAssemblyAI([]byte(`{"type":"SomethingNew"}`))
	if len(evs) != 0 {
		t.Errorf("Expected unknown frame to be ignored, got %+v", evs)
	}
}

func TestDeepgramURLLanguage(t *testing.T) {
	u := deepgramURL(deepgramListenURL, Config{Language: "ja", SampleRate: 48000, SmartFormat: false})
	for _, param := range []string{"language=ja", "sample_rate=48000", "smart_format=false", "channels=1", "interim_results=true"} {
		if !strings.Contains(u, param) {
			t.Errorf("Expected %s in %s", param, u)
		}
	}
}
