// Package events carries pipeline notifications to the tray, the log and
// the settings page.
package events

import (
	"sync"
)

// Event names emitted by the pipeline.
const (
	PipelineState     = "pipeline:state"
	PipelineError     = "pipeline:error"
	PipelineTargetApp = "pipeline:target_app"
	PipelineTiming    = "pipeline:timing"
	STTPartial        = "stt:partial"
	STTFinal          = "stt:final"
	LLMChunk          = "llm:chunk"
	AudioVolume       = "audio:volume"
)

// Event is a named notification. Payload must be JSON-serializable.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// Timing is the payload of PipelineTiming.
type Timing struct {
	STTMs       int64 `json:"stt_ms"`
	LLMMs       int64 `json:"llm_ms"`
	TotalMs     int64 `json:"total_ms"`
	RecordingMs int64 `json:"recording_ms"`
}

// Emitter publishes events.
type Emitter interface {
	Emit(name string, payload any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(name string, payload any)

func (f EmitterFunc) Emit(name string, payload any) { f(name, payload) }

// Nop discards events.
var Nop Emitter = EmitterFunc(func(string, any) {})

// Hub fans events out to subscribers. Each subscriber has its own buffered
// channel; when it is full the event is dropped for that subscriber only,
// so a slow consumer never stalls the pipeline.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Emit delivers to every subscriber without blocking.
func (h *Hub) Emit(name string, payload any) {
	ev := Event{Name: name, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of events and a cancel function that
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Close closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
