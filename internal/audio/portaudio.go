package audio

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioEngine implements Engine using PortAudio. Each capture owns a
// goroutine locked to its OS thread; the stream never leaves it.
type PortAudioEngine struct {
	logger *slog.Logger
}

// NewPortAudioEngine creates a new PortAudio engine
func NewPortAudioEngine(logger *slog.Logger) *PortAudioEngine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PortAudioEngine{logger: logger}
}

// ListDevices returns a list of available audio input devices
func (e *PortAudioEngine) ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		// If we can't get the default device, continue without marking any as default
		defaultInput = nil
	}

	var result []Device
	for i, dev := range devices {
		if dev.MaxInputChannels <= 0 {
			continue
		}
		result = append(result, Device{
			ID:        i,
			Name:      dev.Name,
			IsDefault: defaultInput != nil && dev.Name == defaultInput.Name,
		})
	}

	return result, nil
}

// Start opens the configured device and begins streaming chunks.
func (e *PortAudioEngine) Start(cfg Config) (Capture, <-chan []byte, error) {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.ChunkDuration <= 0 {
		return nil, nil, fmt.Errorf("invalid capture config: rate=%d channels=%d chunk=%s",
			cfg.SampleRate, cfg.Channels, cfg.ChunkDuration)
	}

	c := &portAudioCapture{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	out := make(chan []byte, ChunkBufferSize)
	ready := make(chan error, 1)

	go e.run(cfg, c, out, ready)

	if err := <-ready; err != nil {
		<-c.done
		return nil, nil, err
	}
	return c, out, nil
}

func (e *PortAudioEngine) run(cfg Config, c *portAudioCapture, out chan []byte, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.done)
	defer close(out)

	if err := portaudio.Initialize(); err != nil {
		ready <- fmt.Errorf("failed to initialize PortAudio: %w", err)
		return
	}
	defer portaudio.Terminate()

	device, err := resolveDevice(cfg.DeviceID)
	if err != nil {
		ready <- err
		return
	}

	channels := min(device.MaxInputChannels, 2)
	rate := int(device.DefaultSampleRate)

	latency := device.DefaultHighInputLatency
	if cfg.Latency == LowLatency {
		latency = device.DefaultLowInputLatency
	}

	proc := NewProcessor(channels, rate, cfg, out, &c.level)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  latency,
		},
		SampleRate:      float64(rate),
		FramesPerBuffer: 1024,
	}

	stream, err := portaudio.OpenStream(params, proc.Process)
	if err != nil {
		ready <- fmt.Errorf("failed to open stream: %w", err)
		return
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		ready <- fmt.Errorf("failed to start stream: %w", err)
		return
	}

	e.logger.Info("audio capture started",
		"device", device.Name,
		"device_rate", rate,
		"device_channels", channels,
		"target_rate", cfg.SampleRate)

	c.state.Store(uint32(CaptureRecording))
	ready <- nil
	started := time.Now()

	<-c.quit

	if err := stream.Stop(); err != nil {
		e.logger.Warn("failed to stop stream", "error", err)
	}
	c.state.Store(uint32(CaptureIdle))
	e.logger.Info("audio capture stopped",
		"elapsed", time.Since(started).Round(time.Millisecond),
		"dropped_chunks", proc.Dropped())
}

func resolveDevice(id int) (*portaudio.DeviceInfo, error) {
	var device *portaudio.DeviceInfo
	if id == -1 {
		d, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		device = d
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("failed to list devices: %w", err)
		}
		if id < 0 || id >= len(devices) {
			return nil, fmt.Errorf("invalid device ID: %d", id)
		}
		device = devices[id]
	}

	if device.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("selected device '%s' (ID: %d) has no input channels (output-only device)",
			device.Name, id)
	}
	return device, nil
}

type portAudioCapture struct {
	level    Level
	state    atomic.Uint32
	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// Stop blocks until the stream is torn down and the chunk channel closed.
func (c *portAudioCapture) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
	<-c.done
}

func (c *portAudioCapture) Volume() float32 { return c.level.Get() }

func (c *portAudioCapture) State() CaptureState { return CaptureState(c.state.Load()) }
