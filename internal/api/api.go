// Package api serves the JSON endpoints behind the local settings page.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/yok-tottii/ezdictate/internal/audio"
	"github.com/yok-tottii/ezdictate/internal/config"
	"github.com/yok-tottii/ezdictate/internal/events"
	"github.com/yok-tottii/ezdictate/internal/hotkey"
	"github.com/yok-tottii/ezdictate/internal/i18n"
	"github.com/yok-tottii/ezdictate/internal/permissions"
	"github.com/yok-tottii/ezdictate/internal/pipeline"
	"github.com/yok-tottii/ezdictate/internal/storage"
	"github.com/yok-tottii/ezdictate/internal/wizard"
)

// Library is the history and dictionary store.
type Library interface {
	ListHistory(ctx context.Context, limit, offset int) ([]storage.HistoryEntry, error)
	CountHistory(ctx context.Context) (int, error)
	ClearHistory(ctx context.Context) error
	AddWord(ctx context.Context, word string, pronunciation *string) (int64, error)
	RemoveWord(ctx context.Context, id int64) error
	ListWords(ctx context.Context) ([]storage.DictionaryEntry, error)
}

// Pipeline is the dictation session driver.
type Pipeline interface {
	State() pipeline.State
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Toggle(ctx context.Context) error
}

// Subscriber hands out event streams.
type Subscriber interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

// Permissions reports and requests OS permissions.
type Permissions interface {
	Check() permissions.Report
	RequestMicrophonePermission() error
	RequestAccessibilityPermission() error
}

// Deps are the handler's collaborators. Config is required; routes whose
// collaborator is nil answer 503.
type Deps struct {
	Config      *config.Store
	Wizard      *wizard.SetupWizard
	Devices     audio.DeviceLister
	Library     Library
	Pipeline    Pipeline
	Events      Subscriber
	Permissions Permissions
	Translator  *i18n.Translator
	HTTPClient  *http.Client
	Logger      *slog.Logger

	// OnHotkeyChanged rebinds the global shortcut. A failure leaves the
	// stored hotkey untouched.
	OnHotkeyChanged func(hotkey.Config) error
	// OnSettingsChanged is called with the new configuration after every
	// successful settings update.
	OnSettingsChanged func(*config.Config)
}

// Handler manages API endpoints
type Handler struct {
	Deps
	upgrader websocket.Upgrader
}

// New creates a new API handler
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.HTTPClient == nil {
		d.HTTPClient = http.DefaultClient
	}
	if d.Translator == nil {
		d.Translator = i18n.NewTranslator(i18n.LanguageEnglish)
	}
	return &Handler{
		Deps: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameHost,
		},
	}
}

// RegisterRoutes registers all API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/setup", h.handleSetup)
	mux.HandleFunc("/api/hotkey/validate", h.handleHotkeyValidate)
	mux.HandleFunc("/api/hotkey/register", h.handleHotkeyRegister)
	mux.HandleFunc("/api/devices", h.handleDevices)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/dictionary", h.handleDictionary)
	mux.HandleFunc("/api/stt/test", h.handleSTTTest)
	mux.HandleFunc("/api/llm/test", h.handleLLMTest)
	mux.HandleFunc("/api/llm/models", h.handleLLMModels)
	mux.HandleFunc("/api/pipeline", h.handlePipeline)
	mux.HandleFunc("/api/events", h.handleEvents)
	mux.HandleFunc("/api/permissions", h.handlePermissions)
	mux.HandleFunc("/api/i18n", h.handleI18n)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func unavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, what+" is not available")
}

// handleSettings handles GET and PUT /api/settings
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Config.Current().Redacted())
	case http.MethodPut:
		h.putSettings(w, r)
	default:
		methodNotAllowed(w)
	}
}

// putSettings applies a partial update. Masked secrets mean "unchanged".
func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if v, ok := updates["hotkey"].(string); ok {
		if _, err := hotkey.Parse(v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	next, err := h.Config.Update(updates)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to update config: %v", err))
		return
	}

	if h.Translator != nil {
		h.Translator.SetLanguage(i18n.Language(next.UILanguage))
	}
	if h.OnSettingsChanged != nil {
		h.OnSettingsChanged(next)
	}

	if h.Wizard != nil {
		if err := h.Wizard.MarkSetupCompleted(); err != nil {
			// Settings are already saved
			h.Logger.Warn("failed to mark setup completed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, next.Redacted())
}

// handleSetup handles GET /api/setup
func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	report := permissions.Report{AllGranted: true}
	if h.Permissions != nil {
		report = h.Permissions.Check()
	}
	progress := wizard.GetProgress(h.Config.Current(), report)

	show := !progress.Ready
	if h.Wizard != nil {
		show = show || h.Wizard.ShouldShowWizard()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"show_wizard": show,
		"progress":    progress,
		"steps":       wizard.Steps(progress, h.Translator),
	})
}

type hotkeyRequest struct {
	Hotkey string `json:"hotkey"`
	Mode   string `json:"mode"`
}

// handleHotkeyValidate handles POST /api/hotkey/validate
func (h *Handler) handleHotkeyValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req hotkeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	combo, conflicts, err := hotkey.Validate(req.Hotkey)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	if conflicts == nil {
		conflicts = []hotkey.ConflictInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     true,
		"hotkey":    combo.String(),
		"conflicts": conflicts,
	})
}

// handleHotkeyRegister handles POST /api/hotkey/register. The shortcut is
// bound first and persisted only when binding succeeded.
func (h *Handler) handleHotkeyRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req hotkeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	combo, err := hotkey.Parse(req.Hotkey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Mode == "" {
		req.Mode = h.Config.Current().HotkeyMode
	}

	if h.OnHotkeyChanged != nil {
		if err := h.OnHotkeyChanged(hotkey.Config{Combo: combo, Mode: hotkey.ParseMode(req.Mode)}); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	next, err := h.Config.Update(map[string]interface{}{
		"hotkey":      combo.String(),
		"hotkey_mode": req.Mode,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to save hotkey: %v", err))
		return
	}
	if h.OnSettingsChanged != nil {
		h.OnSettingsChanged(next)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"hotkey": next.Hotkey,
		"mode":   next.HotkeyMode,
	})
}

// Device represents an audio device
type Device struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// systemDefault is listed first so the page can select "follow the OS".
var systemDefault = Device{ID: -1, Name: "System Default"}

// handleDevices handles GET /api/devices
func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	devices := []Device{systemDefault}
	if h.Devices != nil {
		list, err := h.Devices.ListDevices()
		if err != nil {
			// Still offer the system default so the page stays usable
			h.Logger.Warn("failed to list audio devices", "error", err)
		}
		for _, d := range list {
			devices = append(devices, Device{ID: d.ID, Name: d.Name, IsDefault: d.IsDefault})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices":  devices,
		"selected": h.Config.Current().AudioDeviceID,
	})
}

// handlePermissions handles GET /api/permissions and POST
// /api/permissions?request=microphone|accessibility
func (h *Handler) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if h.Permissions == nil {
		unavailable(w, "Permission checker")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Permissions.Check())
	case http.MethodPost:
		var err error
		switch r.URL.Query().Get("request") {
		case permissions.Microphone:
			err = h.Permissions.RequestMicrophonePermission()
		case permissions.Accessibility:
			err = h.Permissions.RequestAccessibilityPermission()
		default:
			writeError(w, http.StatusBadRequest, "request must be microphone or accessibility")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to open system settings: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "opened"})
	default:
		methodNotAllowed(w)
	}
}

// handleI18n handles GET /api/i18n
func (h *Handler) handleI18n(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	t := h.Translator
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if !i18n.ValidateLanguage(lang) {
			writeError(w, http.StatusBadRequest, "unsupported language: "+lang)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"language":     lang,
			"translations": translationsFor(t, i18n.Language(lang)),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"language":     t.GetLanguage(),
		"translations": t.GetAllTranslations(),
	})
}

// translationsFor reads another language without switching the shared
// translator.
func translationsFor(t *i18n.Translator, lang i18n.Language) map[string]string {
	if t.GetLanguage() == lang {
		return t.GetAllTranslations()
	}
	other, err := i18n.New(lang)
	if err != nil {
		return map[string]string{}
	}
	return other.GetAllTranslations()
}
