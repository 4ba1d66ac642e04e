package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("Expected default config to be created")
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"stt_provider", config.STTProvider, "glm-asr"},
		{"stt_language", config.STTLanguage, "multi"},
		{"llm_provider", config.LLMProvider, "openrouter"},
		{"llm_model", config.LLMModel, "google/gemini-2.5-flash"},
		{"llm_base_url", config.LLMBaseURL, "https://openrouter.ai/api/v1"},
		{"target_lang", config.TargetLang, "en"},
		{"hotkey", config.Hotkey, "Alt+Space"},
		{"hotkey_mode", config.HotkeyMode, "hold"},
		{"output_mode", config.OutputMode, "keyboard"},
		{"ui_language", config.UILanguage, "ja"},
		{"cloud_base_url", config.CloudBaseURL, DefaultCloudBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, tt.got)
			}
		})
	}

	if !config.PolishEnabled {
		t.Error("Expected PolishEnabled to be true")
	}

	if config.TranslateEnabled {
		t.Error("Expected TranslateEnabled to be false")
	}

	if config.SelectedTextEnabled {
		t.Error("Expected SelectedTextEnabled to be false")
	}

	if config.AudioDeviceID != -1 {
		t.Errorf("Expected AudioDeviceID -1, got %d", config.AudioDeviceID)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), name)

			config := DefaultConfig()
			config.HotkeyMode = HotkeyModeToggle
			config.STTProvider = "deepgram"
			config.STTAPIKey = "dg-key"
			config.TranslateEnabled = true

			if err := config.Save(configPath); err != nil {
				t.Fatalf("Failed to save config: %v", err)
			}

			info, err := os.Stat(configPath)
			if err != nil {
				t.Fatalf("Config file was not created: %v", err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
			}

			loaded, err := Load(configPath)
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}

			if loaded.HotkeyMode != HotkeyModeToggle {
				t.Errorf("Expected HotkeyMode 'toggle', got '%s'", loaded.HotkeyMode)
			}
			if loaded.STTProvider != "deepgram" {
				t.Errorf("Expected STTProvider 'deepgram', got '%s'", loaded.STTProvider)
			}
			if loaded.STTAPIKey != "dg-key" {
				t.Errorf("Expected STTAPIKey 'dg-key', got '%s'", loaded.STTAPIKey)
			}
			if !loaded.TranslateEnabled {
				t.Error("Expected TranslateEnabled to be true")
			}
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(configPath, []byte(`{"stt_provider":"groq-whisper"}`), 0600); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.STTProvider != "groq-whisper" {
		t.Errorf("Expected STTProvider 'groq-whisper', got '%s'", loaded.STTProvider)
	}
	if loaded.LLMModel != "google/gemini-2.5-flash" {
		t.Errorf("Expected default LLMModel, got '%s'", loaded.LLMModel)
	}
	if !loaded.PolishEnabled {
		t.Error("Expected PolishEnabled default to survive")
	}
}

func TestLoadNonexistent(t *testing.T) {
	config, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error when loading nonexistent file, got: %v", err)
	}

	if config == nil {
		t.Fatal("Expected default config to be returned")
	}

	if config.STTProvider != DefaultConfig().STTProvider {
		t.Errorf("Expected STTProvider '%s', got '%s'", DefaultConfig().STTProvider, config.STTProvider)
	}
}

func TestLoadInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for malformed config")
	}
}

func TestUpdate(t *testing.T) {
	config := DefaultConfig()

	updates := map[string]interface{}{
		"hotkey_mode":           "toggle",
		"output_mode":           "clipboard",
		"stt_language":          "en",
		"polish_enabled":        false,
		"selected_text_enabled": true,
		"audio_device_id":       float64(1),
		"unknown_key":           "ignored",
	}

	if err := config.Update(updates); err != nil {
		t.Fatalf("Failed to update config: %v", err)
	}

	if config.HotkeyMode != HotkeyModeToggle {
		t.Errorf("Expected HotkeyMode 'toggle', got '%s'", config.HotkeyMode)
	}

	if config.OutputMode != OutputModeClipboard {
		t.Errorf("Expected OutputMode 'clipboard', got '%s'", config.OutputMode)
	}

	if config.STTLanguage != "en" {
		t.Errorf("Expected STTLanguage 'en', got '%s'", config.STTLanguage)
	}

	if config.PolishEnabled {
		t.Error("Expected PolishEnabled to be false")
	}

	if !config.SelectedTextEnabled {
		t.Error("Expected SelectedTextEnabled to be true")
	}

	if config.AudioDeviceID != 1 {
		t.Errorf("Expected AudioDeviceID 1, got %d", config.AudioDeviceID)
	}
}

func TestUpdateInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		updates map[string]interface{}
	}{
		{"hotkey_mode", map[string]interface{}{"hotkey_mode": "invalid"}},
		{"output_mode", map[string]interface{}{"output_mode": "typewriter"}},
		{"ui_language", map[string]interface{}{"ui_language": "invalid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := DefaultConfig().Update(tt.updates); err == nil {
				t.Errorf("Expected error for invalid %s", tt.name)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"empty stt provider", func(c *Config) { c.STTProvider = " " }, true},
		{"ftp llm base url", func(c *Config) { c.LLMBaseURL = "ftp://example.com" }, true},
		{"cloud llm ignores base url", func(c *Config) {
			c.LLMProvider = ProviderCloud
			c.LLMBaseURL = ""
		}, false},
		{"bad cloud base url", func(c *Config) { c.CloudBaseURL = "opentypeless" }, true},
		{"bad hotkey mode", func(c *Config) { c.HotkeyMode = "tap" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestClone(t *testing.T) {
	original := DefaultConfig()
	original.HotkeyMode = HotkeyModeToggle
	original.STTLanguage = "en"

	cloned := original.Clone()

	if cloned.HotkeyMode != original.HotkeyMode {
		t.Errorf("Expected HotkeyMode '%s', got '%s'", original.HotkeyMode, cloned.HotkeyMode)
	}

	cloned.STTLanguage = "ja"

	if original.STTLanguage != "en" {
		t.Error("Modifying clone affected original")
	}
}

func TestRedacted(t *testing.T) {
	c := DefaultConfig()
	c.STTAPIKey = "secret"

	r := c.Redacted()
	if r.STTAPIKey != SecretMask {
		t.Errorf("Expected masked key, got '%s'", r.STTAPIKey)
	}
	if r.LLMAPIKey != "" {
		t.Errorf("Expected empty key to stay empty, got '%s'", r.LLMAPIKey)
	}
	if c.STTAPIKey != "secret" {
		t.Error("Redacted modified the original")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EZDICTATE_API_BASE_URL", "http://localhost:8080/")
	t.Setenv("EZDICTATE_STT_API_KEY", "env-stt")

	c := DefaultConfig()
	c.ApplyEnv()

	if c.CloudBaseURL != "http://localhost:8080" {
		t.Errorf("Expected trimmed base URL, got '%s'", c.CloudBaseURL)
	}
	if c.STTAPIKey != "env-stt" {
		t.Errorf("Expected STTAPIKey from env, got '%s'", c.STTAPIKey)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("Expected non-empty config path")
	}

	if !strings.Contains(path, AppName) {
		t.Errorf("Expected path to contain '%s', got '%s'", AppName, path)
	}

	if filepath.Base(path) != "config.json" {
		t.Errorf("Expected path to end in 'config.json', got '%s'", path)
	}
}

func TestStoreUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := store.Update(map[string]interface{}{"stt_api_key": "abc"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Masked value echoed back keeps the stored secret
	updated, err := store.Update(map[string]interface{}{
		"stt_api_key": SecretMask,
		"llm_model":   "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.STTAPIKey != "abc" {
		t.Errorf("Expected STTAPIKey 'abc', got '%s'", updated.STTAPIKey)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if reloaded.LLMModel != "gpt-4o-mini" {
		t.Errorf("Expected persisted LLMModel, got '%s'", reloaded.LLMModel)
	}

	// Invalid updates leave the store untouched
	if _, err := store.Update(map[string]interface{}{"llm_base_url": "nope"}); err == nil {
		t.Error("Expected validation error")
	}
	if store.Current().LLMBaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("Expected base URL unchanged, got '%s'", store.Current().LLMBaseURL)
	}
}
