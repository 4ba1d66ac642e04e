package config

import (
	"fmt"
	"sync"
)

// Store owns the configuration file and a cached copy of its contents.
// Readers get clones, so a session keeps a stable view while settings
// change underneath it.
type Store struct {
	path string

	mu     sync.Mutex
	config *Config
}

// NewStore loads path (or defaults) and applies environment overrides.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return &Store{path: path, config: cfg}, nil
}

// Path returns the backing file path
func (s *Store) Path() string { return s.path }

// Current returns a snapshot of the configuration
func (s *Store) Current() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Clone()
}

// Update applies updates to a copy, validates it, persists it and only
// then swaps it in. On error the stored configuration is unchanged.
func (s *Store) Update(updates map[string]interface{}) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.config.Clone()
	// A masked secret echoed back by the settings page means "unchanged"
	for _, key := range []string{"stt_api_key", "llm_api_key", "cloud_token"} {
		if v, ok := updates[key].(string); ok && v == SecretMask {
			delete(updates, key)
		}
	}
	if err := next.Update(updates); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := next.Save(s.path); err != nil {
		return nil, fmt.Errorf("failed to persist config: %w", err)
	}

	s.config = next
	return next.Clone(), nil
}

// Replace validates and persists cfg as the new configuration.
func (s *Store) Replace(cfg *Config) error {
	next := cfg.Clone()
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := next.Save(s.path); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	s.config = next
	return nil
}
