package stt

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

func newAssemblyAI(o options) *wsStream {
	base := assemblyAIStreamURL
	if o.endpoint != "" {
		base = o.endpoint
	}
	s := &wsStream{
		id:        "AssemblyAI",
		terminate: []byte(`{"type":"Terminate"}`),
		buildURL:  func(cfg Config) string { return assemblyAIURL(base, cfg) },
		authValue: func(key string) string { return key },
		opts:      o,
	}
	s.decode = func(msg []byte) ([]Event, error) {
		evs, sessionID, err := decodeAssemblyAI(msg)
		if sessionID != "" {
			o.logger.Info("assemblyai session started", "id", sessionID)
		}
		return evs, err
	}
	return s
}

func assemblyAIURL(base string, cfg Config) string {
	q := url.Values{}
	q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	q.Set("format_turns", "true")
	return base + "?" + q.Encode()
}

type assemblyAIFrame struct {
	Type            string `json:"type"`
	ID              string `json:"id"`
	Transcript      string `json:"transcript"`
	TurnIsFormatted bool   `json:"turn_is_formatted"`
	Error           string `json:"error"`
}

// decodeAssemblyAI maps a v3 streaming frame to events. Begin frames carry
// no event but return the session id.
func decodeAssemblyAI(msg []byte) ([]Event, string, error) {
	var f assemblyAIFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return nil, "", fmt.Errorf("decode assemblyai frame: %w", err)
	}

	switch f.Type {
	case "Begin":
		return nil, f.ID, nil
	case "Turn":
		if f.Transcript == "" {
			return nil, "", nil
		}
		if f.TurnIsFormatted {
			return []Event{{Kind: Final, Text: f.Transcript, Confidence: 1.0}}, "", nil
		}
		return []Event{{Kind: Partial, Text: f.Transcript}}, "", nil
	case "Termination":
		return []Event{{Kind: SpeechEnded}}, "", nil
	case "Error":
		m := f.Error
		if m == "" {
			m = "Unknown error"
		}
		return []Event{{Kind: Error, Message: m}}, "", nil
	}
	return nil, "", nil
}
