package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

// Mode defines how the hotkey drives dictation
type Mode int

const (
	// Hold mode: dictate while the key is held down
	Hold Mode = iota
	// Toggle mode: each press starts or stops dictation
	Toggle
)

// ParseMode maps a config value to a Mode. Anything but "toggle" is Hold.
func ParseMode(s string) Mode {
	if s == "toggle" {
		return Toggle
	}
	return Hold
}

// EventType represents the type of hotkey event
type EventType int

const (
	// Pressed indicates the hotkey was pressed in Hold mode
	Pressed EventType = iota
	// Released indicates the hotkey was released in Hold mode
	Released
	// Toggled indicates a press in Toggle mode
	Toggled
)

func (t EventType) String() string {
	switch t {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	case Toggled:
		return "toggled"
	default:
		return "unknown"
	}
}

// Event represents a hotkey event
type Event struct {
	Type EventType
}

// Config holds hotkey configuration
type Config struct {
	Combo Combo
	Mode  Mode
}

// DefaultConfig returns Alt+Space in Hold mode
func DefaultConfig() Config {
	return Config{
		Combo: Combo{Modifiers: ModAlt, Key: "Space"},
		Mode:  Hold,
	}
}

// Manager manages global hotkey registration and events. The event
// channel survives re-registration and is closed only by Close.
type Manager struct {
	hk        *hotkey.Hotkey
	config    Config
	eventChan chan Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	closed    bool
}

// New creates a new hotkey manager with the default configuration
func New() *Manager {
	return &Manager{
		config:    DefaultConfig(),
		eventChan: make(chan Event, 10),
	}
}

// Register registers the hotkey with the system
func (m *Manager) Register(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.register(config)
}

func (m *Manager) register(config Config) error {
	if m.closed {
		return fmt.Errorf("hotkey manager is closed")
	}
	if m.running {
		return fmt.Errorf("hotkey is already running, call Unregister() first")
	}

	mods, key, err := config.Combo.native()
	if err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %s: %w", config.Combo, err)
	}

	m.config = config
	m.hk = hk
	m.stopChan = make(chan struct{})
	m.running = true

	m.wg.Add(1)
	go m.listen(hk, config.Mode, m.stopChan)

	return nil
}

// Rebind swaps the registered hotkey. When the new one cannot be
// registered the previous one is restored and the error returned.
func (m *Manager) Rebind(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, wasRunning := m.config, m.running
	if err := m.unregister(); err != nil {
		return err
	}
	if err := m.register(config); err != nil {
		if wasRunning {
			if rerr := m.register(previous); rerr != nil {
				return fmt.Errorf("%w (restoring %s also failed: %v)", err, previous.Combo, rerr)
			}
		}
		return err
	}
	return nil
}

// listen monitors hotkey events and sends them to the event channel
func (m *Manager) listen(hk *hotkey.Hotkey, mode Mode, stop <-chan struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-hk.Keydown():
			ev := Event{Type: Pressed}
			if mode == Toggle {
				ev.Type = Toggled
			}
			m.send(ev, stop)

		case <-hk.Keyup():
			if mode == Hold {
				m.send(Event{Type: Released}, stop)
			}

		case <-stop:
			return
		}
	}
}

func (m *Manager) send(ev Event, stop <-chan struct{}) {
	select {
	case m.eventChan <- ev:
	case <-stop:
	}
}

// Events returns the event channel for receiving hotkey events
func (m *Manager) Events() <-chan Event {
	return m.eventChan
}

// Unregister releases the hotkey but keeps the event channel open.
func (m *Manager) Unregister() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unregister()
}

func (m *Manager) unregister() error {
	if !m.running {
		return nil
	}

	close(m.stopChan)
	m.wg.Wait()

	// Clean up even when Unregister fails so a later Register can succeed.
	var err error
	if m.hk != nil {
		if uerr := m.hk.Unregister(); uerr != nil {
			err = fmt.Errorf("failed to unregister hotkey: %w", uerr)
		}
		m.hk = nil
	}
	m.running = false
	return err
}

// Close unregisters the hotkey and closes the event channel
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	err := m.unregister()
	close(m.eventChan)
	m.closed = true
	return err
}

// IsRunning returns whether the hotkey is currently registered and running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetConfig returns the current hotkey configuration
func (m *Manager) GetConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}
