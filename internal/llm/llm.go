// Package llm rewrites raw transcripts with a chat-completion model. Two
// providers exist: an OpenAI-compatible one (any base URL) and the hosted
// cloud proxy. Both can stream the response through a ChunkFunc.
package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// AppType is the kind of application the text is dictated into.
type AppType string

const (
	AppEmail    AppType = "email"
	AppChat     AppType = "chat"
	AppCode     AppType = "code"
	AppDocument AppType = "document"
	AppGeneral  AppType = "general"
)

// Config is the per-call model configuration.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the GLM defaults.
func DefaultConfig() Config {
	return Config{
		Model:       "glm-4.7",
		BaseURL:     "https://open.bigmodel.cn/api/paas/v4",
		MaxTokens:   4096,
		Temperature: 0.3,
	}
}

// PolishRequest is one transcript to rewrite. SelectedText is used when
// the user dictated an instruction about selected text.
type PolishRequest struct {
	RawText          string
	AppType          AppType
	Dictionary       []string
	TranslateEnabled bool
	TargetLang       string
	SelectedText     string
}

// PolishResponse holds the rewritten text.
type PolishResponse struct {
	PolishedText string
}

// ChunkFunc receives streamed text increments in order.
type ChunkFunc func(chunk string)

// Provider polishes text. When onChunk is nil the response is fetched in
// one piece.
type Provider interface {
	Name() string
	Polish(ctx context.Context, cfg Config, req PolishRequest, onChunk ChunkFunc) (PolishResponse, error)
}

// ProviderCloud is the hosted proxy. Every other name is treated as an
// OpenAI-compatible endpoint.
const ProviderCloud = "cloud"

const (
	requestTimeout = 60 * time.Second
	errorBodyLimit = 200
)

// QuotaError carries the message of a 403 from the cloud proxy.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string { return e.Message }

// HTTPError is a non-success response with a truncated body.
type HTTPError struct {
	Status string
	Body   string
	cloud  bool
}

func (e *HTTPError) Error() string {
	if e.cloud {
		return fmt.Sprintf("Cloud LLM error (%s): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("LLM API error %s: %s", e.Status, e.Body)
}

type options struct {
	httpClient        *http.Client
	cloudBaseURL      string
	logger            *slog.Logger
	reasoningFallback bool
}

// Option configures a provider.
type Option func(*options)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithCloudBaseURL sets the base URL of the hosted proxy.
func WithCloudBaseURL(u string) Option {
	return func(o *options) { o.cloudBaseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithReasoningFallback controls whether a streamed response that only
// filled the reasoning channel is returned as the answer. Enabled by
// default.
func WithReasoningFallback(enabled bool) Option {
	return func(o *options) { o.reasoningFallback = enabled }
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient:        &http.Client{},
		reasoningFallback: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// New creates a provider by name.
func New(name string, opts ...Option) Provider {
	o := buildOptions(opts)
	if name == ProviderCloud {
		return &cloudProvider{opts: o}
	}
	return &openAIProvider{opts: o}
}

// hasSelection reports whether req carries non-blank selected text.
func (r PolishRequest) hasSelection() bool {
	return strings.TrimSpace(r.SelectedText) != ""
}

// message is a role/content pair in request order.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildMessages(req PolishRequest) []message {
	sel := req.hasSelection()
	msgs := []message{{
		Role:    "system",
		Content: BuildSystemPrompt(req.AppType, req.Dictionary, req.TranslateEnabled, req.TargetLang, sel),
	}}
	if sel {
		msgs = append(msgs, message{Role: "user", Content: "[Selected Text]\n" + req.SelectedText})
	}
	return append(msgs, message{Role: "user", Content: req.RawText})
}

// truncateBody cuts s to roughly limit bytes on a rune boundary.
func truncateBody(s string, limit int) string {
	for i := range s {
		if i >= limit {
			return s[:i]
		}
	}
	return s
}

// streamAccumulator gathers streamed content and reasoning text.
type streamAccumulator struct {
	content   strings.Builder
	reasoning strings.Builder
	onChunk   ChunkFunc
}

func (a *streamAccumulator) addContent(s string) {
	if s == "" {
		return
	}
	a.content.WriteString(s)
	a.onChunk(s)
}

func (a *streamAccumulator) addReasoning(s string) {
	a.reasoning.WriteString(s)
}

// result returns the content, or the reasoning text when fallback is on
// and no content arrived. The fallback text goes through onChunk once.
func (a *streamAccumulator) result(fallback bool, logger *slog.Logger) string {
	if a.content.Len() > 0 {
		return a.content.String()
	}
	if a.reasoning.Len() == 0 {
		logger.Error("llm stream returned no content and no reasoning")
		return ""
	}
	if !fallback {
		logger.Warn("llm stream returned only reasoning, fallback disabled", "chars", a.reasoning.Len())
		return ""
	}
	text := a.reasoning.String()
	logger.Warn("llm content empty, using reasoning as output", "chars", len(text))
	a.onChunk(text)
	return text
}
