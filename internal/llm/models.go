package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const probeTimeout = 15 * time.Second

func validateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL: %q", baseURL)
	}
	return nil
}

// TestConnection asks for a one-token completion. A false result with a
// nil error means the endpoint answered but rejected the request.
func TestConnection(ctx context.Context, cfg Config, opts ...Option) (bool, error) {
	if cfg.APIKey == "" {
		return false, nil
	}
	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return false, err
	}
	o := buildOptions(opts)

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	)
	_, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     cfg.Model,
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage("Hi")},
		MaxTokens: openai.Int(1),
	})
	if err != nil {
		if _, ok := apiError(err).(*HTTPError); ok {
			o.logger.Warn("llm connection test rejected", "error", apiError(err))
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListModels returns the sorted model ids served at {base}/models. Both
// the OpenAI shape (data[].id) and the Ollama-style shape (models[].name)
// are accepted.
func ListModels(ctx context.Context, baseURL, apiKey string, opts ...Option) ([]string, error) {
	if err := validateBaseURL(baseURL); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.Status, Body: truncateBody(string(data), errorBodyLimit)}
	}

	var v struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}

	var ids []string
	for _, m := range v.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		for _, m := range v.Models {
			if m.Name != "" {
				ids = append(ids, m.Name)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}
