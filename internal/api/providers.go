package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/yok-tottii/ezdictate/internal/config"
	"github.com/yok-tottii/ezdictate/internal/llm"
	"github.com/yok-tottii/ezdictate/internal/stt"
)

// providerRequest overrides the stored settings for a connectivity check so
// the page can test values before saving them. Empty or masked fields fall
// back to the stored configuration.
type providerRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
}

func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pick(override, stored string) string {
	if override == "" || override == config.SecretMask {
		return stored
	}
	return override
}

// credential returns the key for provider; the cloud proxy authenticates
// with the session token.
func credential(provider, key string, cfg *config.Config) string {
	if provider == config.ProviderCloud {
		return cfg.CloudToken
	}
	return key
}

type testResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func result(ok bool, err error) testResult {
	r := testResult{OK: ok}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// handleSTTTest handles POST /api/stt/test
func (h *Handler) handleSTTTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req providerRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg := h.Config.Current()
	provider := pick(req.Provider, cfg.STTProvider)
	key := credential(provider, pick(req.APIKey, cfg.STTAPIKey), cfg)

	ok, err := stt.TestConnection(r.Context(), provider, key,
		stt.WithHTTPClient(h.HTTPClient),
		stt.WithCloudBaseURL(cfg.CloudBaseURL),
		stt.WithLogger(h.Logger))
	writeJSON(w, http.StatusOK, result(ok, err))
}

// handleLLMTest handles POST /api/llm/test
func (h *Handler) handleLLMTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req providerRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg := h.Config.Current()
	provider := pick(req.Provider, cfg.LLMProvider)

	// The cloud proxy has no completion probe; a pro subscription is what
	// grants LLM access.
	if provider == config.ProviderCloud {
		ok, err := stt.TestConnection(r.Context(), stt.ProviderCloud, cfg.CloudToken,
			stt.WithHTTPClient(h.HTTPClient),
			stt.WithCloudBaseURL(cfg.CloudBaseURL),
			stt.WithLogger(h.Logger))
		writeJSON(w, http.StatusOK, result(ok, err))
		return
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.APIKey = pick(req.APIKey, cfg.LLMAPIKey)
	llmCfg.BaseURL = pick(req.BaseURL, cfg.LLMBaseURL)
	llmCfg.Model = pick(req.Model, cfg.LLMModel)

	ok, err := llm.TestConnection(r.Context(), llmCfg,
		llm.WithHTTPClient(h.HTTPClient),
		llm.WithLogger(h.Logger))
	writeJSON(w, http.StatusOK, result(ok, err))
}

// handleLLMModels handles GET /api/llm/models?base_url=
func (h *Handler) handleLLMModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	cfg := h.Config.Current()
	if cfg.LLMProvider == config.ProviderCloud {
		writeJSON(w, http.StatusOK, map[string]interface{}{"models": []string{}})
		return
	}

	baseURL := pick(r.URL.Query().Get("base_url"), cfg.LLMBaseURL)
	models, err := llm.ListModels(r.Context(), baseURL, cfg.LLMAPIKey,
		llm.WithHTTPClient(h.HTTPClient),
		llm.WithLogger(h.Logger))
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to list models: %v", err))
		return
	}
	if models == nil {
		models = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": models})
}
