package events

import (
	"testing"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()

	a, cancelA := hub.Subscribe(4)
	defer cancelA()
	b, cancelB := hub.Subscribe(4)
	defer cancelB()

	hub.Emit(STTFinal, "hello")

	for i, ch := range []<-chan Event{a, b} {
		ev := <-ch
		if ev.Name != STTFinal {
			t.Errorf("Subscriber %d: expected %s, got %s", i, STTFinal, ev.Name)
		}
		if ev.Payload != "hello" {
			t.Errorf("Subscriber %d: expected payload 'hello', got %v", i, ev.Payload)
		}
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Emit(AudioVolume, 0.1)
	hub.Emit(AudioVolume, 0.2) // must not block

	if len(ch) != 1 {
		t.Fatalf("Expected 1 buffered event, got %d", len(ch))
	}
	if ev := <-ch; ev.Payload != 0.1 {
		t.Errorf("Expected first event kept, got %v", ev.Payload)
	}
}

func TestHubCancel(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Error("Expected channel closed after cancel")
	}

	hub.Emit(PipelineState, "idle") // no subscribers, no panic
}

func TestHubClose(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	hub.Close()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("Expected channel closed after hub close")
	}

	late, _ := hub.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("Expected closed channel when subscribing to a closed hub")
	}
}

func TestEmitterFunc(t *testing.T) {
	var got []string
	e := EmitterFunc(func(name string, payload any) { got = append(got, name) })

	e.Emit(LLMChunk, "a")
	Nop.Emit(LLMChunk, "b")

	if len(got) != 1 || got[0] != LLMChunk {
		t.Errorf("Expected one %s event, got %v", LLMChunk, got)
	}
}
