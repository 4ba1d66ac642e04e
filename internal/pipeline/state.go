package pipeline

import "encoding/json"

// State represents the current pipeline state
type State uint32

const (
	// Idle means no session is running
	Idle State = iota
	// Recording means audio is being captured and streamed
	Recording
	// Transcribing means capture stopped and the transcript is finalizing
	Transcribing
	// Polishing means the LLM is rewriting the transcript
	Polishing
	// Outputting means text is being delivered to the focused application
	Outputting
)

// String returns the lower snake case name used on the event surface
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	case Polishing:
		return "polishing"
	case Outputting:
		return "outputting"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state as its name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
