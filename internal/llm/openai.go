package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIProvider talks to any OpenAI-compatible chat completions API.
type openAIProvider struct {
	opts options
}

func (p *openAIProvider) Name() string { return "OpenAI" }

func (p *openAIProvider) client(cfg Config) openai.Client {
	return openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		option.WithHTTPClient(p.opts.httpClient),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(requestTimeout),
	)
}

// params builds the request. GLM models answer only in the reasoning
// field unless thinking is enabled explicitly, and thinking requires a
// temperature of at least 0.6.
func params(cfg Config, msgs []message) (openai.ChatCompletionNewParams, []option.RequestOption) {
	p := openai.ChatCompletionNewParams{
		Model:       cfg.Model,
		Messages:    toOpenAIMessages(msgs),
		MaxTokens:   openai.Int(int64(cfg.MaxTokens)),
		Temperature: openai.Float(cfg.Temperature),
	}

	var extra []option.RequestOption
	if strings.HasPrefix(cfg.Model, "glm-") {
		p.Temperature = openai.Float(1.0)
		p.TopP = openai.Float(0.95)
		extra = append(extra, option.WithJSONSet("thinking", map[string]string{"type": "enabled"}))
	}
	return p, extra
}

func toOpenAIMessages(msgs []message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			out = append(out, openai.SystemMessage(m.Content))
		} else {
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (p *openAIProvider) Polish(ctx context.Context, cfg Config, req PolishRequest, onChunk ChunkFunc) (PolishResponse, error) {
	client := p.client(cfg)
	body, extra := params(cfg, buildMessages(req))

	if onChunk == nil {
		resp, err := client.Chat.Completions.New(ctx, body, extra...)
		if err != nil {
			return PolishResponse{}, apiError(err)
		}
		var text string
		if len(resp.Choices) > 0 {
			text = resp.Choices[0].Message.Content
		}
		if text == "" {
			p.opts.logger.Warn("llm returned empty content", "response", resp.RawJSON())
		}
		return PolishResponse{PolishedText: text}, nil
	}

	stream := client.Chat.Completions.NewStreaming(ctx, body, extra...)
	defer stream.Close()

	acc := &streamAccumulator{onChunk: onChunk}
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		acc.addContent(delta.Content)
		if field, ok := delta.JSON.ExtraFields["reasoning_content"]; ok && field.Valid() {
			var rc string
			if json.Unmarshal([]byte(field.Raw()), &rc) == nil {
				acc.addReasoning(rc)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return PolishResponse{PolishedText: acc.content.String()}, apiError(err)
	}

	return PolishResponse{PolishedText: acc.result(p.opts.reasoningFallback, p.opts.logger)}, nil
}

// apiError converts SDK errors into HTTPError so both providers report
// non-success responses the same way.
func apiError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &HTTPError{
			Status: fmt.Sprintf("%d %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode)),
			Body:   truncateBody(apiErr.RawJSON(), errorBodyLimit),
		}
	}
	return err
}
