package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// AppName names the per-user application directory
	AppName = "EzDictate"

	// DefaultCloudBaseURL is the hosted proxy used by the "cloud" providers
	DefaultCloudBaseURL = "https://www.opentypeless.com"

	// ProviderCloud selects the hosted proxy for STT or LLM
	ProviderCloud = "cloud"
)

// Hotkey modes
const (
	HotkeyModeHold   = "hold"
	HotkeyModeToggle = "toggle"
)

// Output modes
const (
	OutputModeKeyboard  = "keyboard"
	OutputModeClipboard = "clipboard"
)

// Config holds application configuration
type Config struct {
	STTProvider string `json:"stt_provider" yaml:"stt_provider"`
	STTAPIKey   string `json:"stt_api_key" yaml:"stt_api_key"`
	STTLanguage string `json:"stt_language" yaml:"stt_language"` // "multi" for no language hint

	LLMProvider string `json:"llm_provider" yaml:"llm_provider"`
	LLMAPIKey   string `json:"llm_api_key" yaml:"llm_api_key"`
	LLMModel    string `json:"llm_model" yaml:"llm_model"`
	LLMBaseURL  string `json:"llm_base_url" yaml:"llm_base_url"`

	PolishEnabled       bool   `json:"polish_enabled" yaml:"polish_enabled"`
	TranslateEnabled    bool   `json:"translate_enabled" yaml:"translate_enabled"`
	TargetLang          string `json:"target_lang" yaml:"target_lang"`
	SelectedTextEnabled bool   `json:"selected_text_enabled" yaml:"selected_text_enabled"`

	Hotkey     string `json:"hotkey" yaml:"hotkey"`           // e.g. "Alt+Space"
	HotkeyMode string `json:"hotkey_mode" yaml:"hotkey_mode"` // "hold" or "toggle"
	OutputMode string `json:"output_mode" yaml:"output_mode"` // "keyboard" or "clipboard"

	AudioDeviceID int    `json:"audio_device_id" yaml:"audio_device_id"`
	UILanguage    string `json:"ui_language" yaml:"ui_language"` // "ja" or "en"
	LogLevel      string `json:"log_level" yaml:"log_level"`

	CloudBaseURL string `json:"cloud_base_url" yaml:"cloud_base_url"`
	CloudToken   string `json:"cloud_token" yaml:"cloud_token"`

	mu sync.RWMutex
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		STTProvider:   "glm-asr",
		STTLanguage:   "multi",
		LLMProvider:   "openrouter",
		LLMModel:      "google/gemini-2.5-flash",
		LLMBaseURL:    "https://openrouter.ai/api/v1",
		PolishEnabled: true,
		TargetLang:    "en",
		Hotkey:        "Alt+Space",
		HotkeyMode:    HotkeyModeHold,
		OutputMode:    OutputModeKeyboard,
		AudioDeviceID: -1, // -1 means use system default device
		UILanguage:    "ja",
		LogLevel:      "info",
		CloudBaseURL:  DefaultCloudBaseURL,
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load loads configuration from the specified path. A missing file yields
// the defaults. Files ending in .yaml or .yml are parsed as YAML.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so fields missing from older files keep sane values
	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Hotkey == "" {
		config.Hotkey = "Alt+Space"
	}
	if config.CloudBaseURL == "" {
		config.CloudBaseURL = DefaultCloudBaseURL
	}

	return config, nil
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file carries API keys
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// AppDir returns the per-user application directory
func AppDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		dir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(dir, AppName)
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	return filepath.Join(AppDir(), "config.json")
}

// ApplyEnv overrides fields from EZDICTATE_* environment variables.
func (c *Config) ApplyEnv() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("EZDICTATE_API_BASE_URL"); v != "" {
		c.CloudBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("EZDICTATE_STT_API_KEY"); v != "" {
		c.STTAPIKey = v
	}
	if v := os.Getenv("EZDICTATE_LLM_API_KEY"); v != "" {
		c.LLMAPIKey = v
	}
}

// Update updates configuration fields
func (c *Config) Update(updates map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	strFields := map[string]*string{
		"stt_provider":   &c.STTProvider,
		"stt_api_key":    &c.STTAPIKey,
		"stt_language":   &c.STTLanguage,
		"llm_provider":   &c.LLMProvider,
		"llm_api_key":    &c.LLMAPIKey,
		"llm_model":      &c.LLMModel,
		"llm_base_url":   &c.LLMBaseURL,
		"target_lang":    &c.TargetLang,
		"hotkey":         &c.Hotkey,
		"log_level":      &c.LogLevel,
		"cloud_base_url": &c.CloudBaseURL,
		"cloud_token":    &c.CloudToken,
	}
	boolFields := map[string]*bool{
		"polish_enabled":        &c.PolishEnabled,
		"translate_enabled":     &c.TranslateEnabled,
		"selected_text_enabled": &c.SelectedTextEnabled,
	}

	for key, value := range updates {
		if p, ok := strFields[key]; ok {
			if v, ok := value.(string); ok {
				*p = v
			}
			continue
		}
		if p, ok := boolFields[key]; ok {
			if v, ok := value.(bool); ok {
				*p = v
			}
			continue
		}

		switch key {
		case "hotkey_mode":
			if v, ok := value.(string); ok {
				if v != HotkeyModeHold && v != HotkeyModeToggle {
					return fmt.Errorf("invalid hotkey_mode: %s", v)
				}
				c.HotkeyMode = v
			}
		case "output_mode":
			if v, ok := value.(string); ok {
				if v != OutputModeKeyboard && v != OutputModeClipboard {
					return fmt.Errorf("invalid output_mode: %s", v)
				}
				c.OutputMode = v
			}
		case "ui_language":
			if v, ok := value.(string); ok {
				if v != "ja" && v != "en" {
					return fmt.Errorf("invalid ui_language: %s", v)
				}
				c.UILanguage = v
			}
		case "audio_device_id":
			if v, ok := value.(float64); ok {
				c.AudioDeviceID = int(v)
			}
		}
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		STTProvider:         c.STTProvider,
		STTAPIKey:           c.STTAPIKey,
		STTLanguage:         c.STTLanguage,
		LLMProvider:         c.LLMProvider,
		LLMAPIKey:           c.LLMAPIKey,
		LLMModel:            c.LLMModel,
		LLMBaseURL:          c.LLMBaseURL,
		PolishEnabled:       c.PolishEnabled,
		TranslateEnabled:    c.TranslateEnabled,
		TargetLang:          c.TargetLang,
		SelectedTextEnabled: c.SelectedTextEnabled,
		Hotkey:              c.Hotkey,
		HotkeyMode:          c.HotkeyMode,
		OutputMode:          c.OutputMode,
		AudioDeviceID:       c.AudioDeviceID,
		UILanguage:          c.UILanguage,
		LogLevel:            c.LogLevel,
		CloudBaseURL:        c.CloudBaseURL,
		CloudToken:          c.CloudToken,
	}
}

// Redacted returns a copy safe to hand to the settings page: secrets are
// replaced by a marker telling whether they are set.
func (c *Config) Redacted() *Config {
	r := c.Clone()
	r.STTAPIKey = mask(r.STTAPIKey)
	r.LLMAPIKey = mask(r.LLMAPIKey)
	r.CloudToken = mask(r.CloudToken)
	return r
}

// SecretMask is returned in place of configured secrets
const SecretMask = "********"

func mask(s string) string {
	if s == "" {
		return ""
	}
	return SecretMask
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if strings.TrimSpace(c.STTProvider) == "" {
		return fmt.Errorf("stt_provider cannot be empty")
	}

	if strings.TrimSpace(c.LLMProvider) == "" {
		return fmt.Errorf("llm_provider cannot be empty")
	}

	if c.HotkeyMode != HotkeyModeHold && c.HotkeyMode != HotkeyModeToggle {
		return fmt.Errorf("invalid hotkey_mode: %s (must be 'hold' or 'toggle')", c.HotkeyMode)
	}

	if c.OutputMode != OutputModeKeyboard && c.OutputMode != OutputModeClipboard {
		return fmt.Errorf("invalid output_mode: %s (must be 'keyboard' or 'clipboard')", c.OutputMode)
	}

	if c.UILanguage != "ja" && c.UILanguage != "en" {
		return fmt.Errorf("invalid ui_language: %s (must be 'ja' or 'en')", c.UILanguage)
	}

	if c.LLMProvider != ProviderCloud {
		if err := validateHTTPURL(c.LLMBaseURL); err != nil {
			return fmt.Errorf("invalid llm_base_url: %w", err)
		}
	}

	if err := validateHTTPURL(c.CloudBaseURL); err != nil {
		return fmt.Errorf("invalid cloud_base_url: %w", err)
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https: %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host: %q", raw)
	}
	return nil
}
