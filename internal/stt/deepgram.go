package stt

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

func newDeepgram(o options) *wsStream {
	base := deepgramListenURL
	if o.endpoint != "" {
		base = o.endpoint
	}
	return &wsStream{
		id:        "Deepgram",
		terminate: []byte(`{"type":"CloseStream"}`),
		buildURL:  func(cfg Config) string { return deepgramURL(base, cfg) },
		authValue: func(key string) string { return "Token " + key },
		decode:    decodeDeepgram,
		opts:      o,
	}
}

func deepgramURL(base string, cfg Config) string {
	lang := cfg.Language
	if lang == "" {
		lang = "multi"
	}
	q := url.Values{}
	q.Set("model", "nova-3")
	q.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("utterances", "true")
	q.Set("interim_results", "true")
	q.Set("endpointing", "150")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	q.Set("channels", "1")
	return base + "?" + q.Encode()
}

type deepgramFrame struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// decodeDeepgram maps a listen frame to events. A final result that also
// ends the utterance yields its text before SpeechEnded.
func decodeDeepgram(msg []byte) ([]Event, error) {
	var f deepgramFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return nil, fmt.Errorf("decode deepgram frame: %w", err)
	}

	switch f.Type {
	case "Error":
		m := f.Message
		if m == "" {
			m = f.Description
		}
		if m == "" {
			m = "Unknown error"
		}
		return []Event{{Kind: Error, Message: m}}, nil
	case "SpeechStarted":
		return []Event{{Kind: SpeechStarted}}, nil
	}

	if len(f.Channel.Alternatives) == 0 {
		return nil, nil
	}
	alt := f.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return nil, nil
	}

	if !f.IsFinal {
		return []Event{{Kind: Partial, Text: alt.Transcript}}, nil
	}

	evs := []Event{{Kind: Final, Text: alt.Transcript, Confidence: float32(alt.Confidence)}}
	if f.SpeechFinal {
		evs = append(evs, Event{Kind: SpeechEnded})
	}
	return evs, nil
}
