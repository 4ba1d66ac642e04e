// Package wizard tracks first-run setup: whether the user has a config,
// whether they finished the onboarding steps, and what is still missing.
package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yok-tottii/ezdictate/internal/config"
	"github.com/yok-tottii/ezdictate/internal/i18n"
	"github.com/yok-tottii/ezdictate/internal/permissions"
)

// Step identifiers, in display order.
const (
	StepPermissions = "permissions"
	StepSTTKey      = "stt_key"
	StepLLMKey      = "llm_key"
	StepHotkey      = "hotkey"
)

// SetupWizard manages the initial application setup flow
type SetupWizard struct {
	configDir     string
	configPath    string
	setupFlagFile string
	mu            sync.RWMutex
}

// NewSetupWizard creates a wizard for the config file at configPath
func NewSetupWizard(configPath string) (*SetupWizard, error) {
	configDir := filepath.Dir(configPath)

	// Ensure config directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return &SetupWizard{
		configDir:     configDir,
		configPath:    configPath,
		setupFlagFile: filepath.Join(configDir, ".setup_completed"),
	}, nil
}

// IsFirstRun checks if this is the first run of the application
func (w *SetupWizard) IsFirstRun() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, err := os.Stat(w.configPath)
	return os.IsNotExist(err)
}

// IsSetupCompleted checks if the initial setup wizard has been completed
func (w *SetupWizard) IsSetupCompleted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, err := os.Stat(w.setupFlagFile)
	return !os.IsNotExist(err)
}

// MarkSetupCompleted marks the setup wizard as completed
func (w *SetupWizard) MarkSetupCompleted() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.Create(w.setupFlagFile)
	if err != nil {
		return fmt.Errorf("failed to create setup flag file: %w", err)
	}
	return file.Close()
}

// ShouldShowWizard is true until a config exists and setup was completed
func (w *SetupWizard) ShouldShowWizard() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, err := os.Stat(w.configPath); os.IsNotExist(err) {
		return true
	}
	_, err := os.Stat(w.setupFlagFile)
	return os.IsNotExist(err)
}

// SetupProgress reports which onboarding steps are satisfied
type SetupProgress struct {
	PermissionsSetup bool     `json:"permissions_setup"`
	STTKeySet        bool     `json:"stt_key_set"`
	LLMKeySet        bool     `json:"llm_key_set"`
	HotkeyConfigured bool     `json:"hotkey_configured"`
	Ready            bool     `json:"ready"`
	Missing          []string `json:"missing"`
}

// GetProgress derives progress from the current config and permissions.
// A cloud provider counts as keyed once a session token is present. The
// LLM key is optional and never blocks Ready.
func GetProgress(cfg *config.Config, perms permissions.Report) SetupProgress {
	p := SetupProgress{
		PermissionsSetup: perms.AllGranted,
		STTKeySet:        hasKey(cfg.STTProvider, cfg.STTAPIKey, cfg.CloudToken),
		LLMKeySet:        hasKey(cfg.LLMProvider, cfg.LLMAPIKey, cfg.CloudToken),
		HotkeyConfigured: cfg.Hotkey != "",
		Missing:          []string{},
	}
	if !p.PermissionsSetup {
		p.Missing = append(p.Missing, StepPermissions)
	}
	if !p.STTKeySet {
		p.Missing = append(p.Missing, StepSTTKey)
	}
	if !p.HotkeyConfigured {
		p.Missing = append(p.Missing, StepHotkey)
	}
	p.Ready = len(p.Missing) == 0
	return p
}

func hasKey(provider, key, cloudToken string) bool {
	if provider == config.ProviderCloud {
		return cloudToken != ""
	}
	return key != ""
}

// Step is one onboarding screen with its localized title
type Step struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Done     bool   `json:"done"`
	Optional bool   `json:"optional"`
}

// Steps lists the onboarding screens in order with their completion state
func Steps(p SetupProgress, t *i18n.Translator) []Step {
	return []Step{
		{ID: StepPermissions, Title: t.Translate("wizard.permissions"), Done: p.PermissionsSetup},
		{ID: StepSTTKey, Title: t.Translate("wizard.stt_key"), Done: p.STTKeySet},
		{ID: StepLLMKey, Title: t.Translate("wizard.llm_key"), Done: p.LLMKeySet, Optional: true},
		{ID: StepHotkey, Title: t.Translate("wizard.hotkey"), Done: p.HotkeyConfigured},
	}
}

// ResetSetup resets the setup state (for testing or manual reset)
func (w *SetupWizard) ResetSetup() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.Remove(w.setupFlagFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove setup flag file: %w", err)
	}
	return nil
}

// GetConfigDir returns the configuration directory
func (w *SetupWizard) GetConfigDir() string {
	return w.configDir
}

// GetConfigPath returns the configuration file path
func (w *SetupWizard) GetConfigPath() string {
	return w.configPath
}
