package audio

import "time"

// Device represents an audio input device
type Device struct {
	ID        int
	Name      string
	IsDefault bool
}

// LatencyMode defines the latency priority
type LatencyMode int

const (
	// LowLatency prioritizes low latency (real-time)
	LowLatency LatencyMode = iota
	// HighStability prioritizes stability (larger buffer)
	HighStability
)

// CaptureState reports whether a capture is live.
type CaptureState uint32

const (
	CaptureIdle CaptureState = iota
	CaptureRecording
)

func (s CaptureState) String() string {
	if s == CaptureRecording {
		return "recording"
	}
	return "idle"
}

// ChunkBufferSize is the capacity of the chunk channel handed to consumers.
// Chunks that do not fit are dropped; the hardware callback never blocks.
const ChunkBufferSize = 200

// Config holds capture configuration. SampleRate and Channels describe the
// PCM produced on the chunk channel, not the device format.
type Config struct {
	DeviceID      int
	SampleRate    int
	Channels      int
	Latency       LatencyMode
	ChunkDuration time.Duration
}

// DefaultConfig returns the default capture configuration
// Sample rate: 16kHz mono, 20ms chunks
// Latency: HighStability
func DefaultConfig() Config {
	return Config{
		DeviceID:      -1, // -1 means use default device
		SampleRate:    16000,
		Channels:      1,
		Latency:       HighStability,
		ChunkDuration: 20 * time.Millisecond,
	}
}

// ChunkSamples is the number of samples per emitted chunk.
func (c Config) ChunkSamples() int {
	n := int(int64(c.SampleRate) * int64(c.ChunkDuration) / int64(time.Second))
	if n < 1 {
		n = 1
	}
	return n * max(c.Channels, 1)
}

// Engine starts captures. The returned channel yields little-endian 16-bit
// PCM chunks and is closed when the capture stops.
type Engine interface {
	Start(cfg Config) (Capture, <-chan []byte, error)
}

// Capture is a handle to a running capture.
type Capture interface {
	// Stop tears down the device stream and closes the chunk channel.
	// It is safe to call more than once.
	Stop()
	// Volume returns the latest RMS level in [0,1].
	Volume() float32
	State() CaptureState
}

// DeviceLister enumerates input devices.
type DeviceLister interface {
	ListDevices() ([]Device, error)
}
