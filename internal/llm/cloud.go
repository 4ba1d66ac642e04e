package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// cloudProvider proxies requests through the hosted service. The session
// token is passed as Config.APIKey.
type cloudProvider struct {
	opts options
}

func (p *cloudProvider) Name() string { return "Cloud" }

func (p *cloudProvider) Polish(ctx context.Context, cfg Config, req PolishRequest, onChunk ChunkFunc) (PolishResponse, error) {
	if cfg.APIKey == "" {
		return PolishResponse{}, errors.New("Cloud LLM: session token is missing. Please sign in first.")
	}

	payload, err := json.Marshal(struct {
		Messages []message `json:"messages"`
		Stream   bool      `json:"stream"`
	}{buildMessages(req), onChunk != nil})
	if err != nil {
		return PolishResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.cloudBaseURL+"/api/proxy/llm", bytes.NewReader(payload))
	if err != nil {
		return PolishResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.opts.httpClient.Do(httpReq)
	if err != nil {
		return PolishResponse{}, fmt.Errorf("Cloud LLM: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusForbidden {
			return PolishResponse{}, &QuotaError{Message: errorField(data, "LLM quota exceeded")}
		}
		return PolishResponse{}, &HTTPError{
			Status: resp.Status,
			Body:   truncateBody(string(data), errorBodyLimit),
			cloud:  true,
		}
	}

	if onChunk == nil {
		var v struct {
			Text    *string `json:"text"`
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return PolishResponse{}, fmt.Errorf("Cloud LLM: decode response: %w", err)
		}
		if v.Text != nil {
			return PolishResponse{PolishedText: *v.Text}, nil
		}
		if len(v.Choices) > 0 {
			return PolishResponse{PolishedText: v.Choices[0].Message.Content}, nil
		}
		return PolishResponse{}, nil
	}

	acc := &streamAccumulator{onChunk: onChunk}
	err = readSSE(resp.Body, func(data string) {
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content          string `json:"content"`
					ReasoningContent string `json:"reasoning_content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			p.opts.logger.Debug("skipping malformed sse event", "error", err)
			return
		}
		if len(chunk.Choices) == 0 {
			return
		}
		acc.addContent(chunk.Choices[0].Delta.Content)
		acc.addReasoning(chunk.Choices[0].Delta.ReasoningContent)
	})
	if err != nil {
		return PolishResponse{PolishedText: acc.content.String()}, fmt.Errorf("Cloud LLM: read stream: %w", err)
	}

	return PolishResponse{PolishedText: acc.result(p.opts.reasoningFallback, p.opts.logger)}, nil
}

// readSSE calls onData with the payload of every "data: " line until the
// body ends or a [DONE] sentinel arrives. Other lines are ignored.
func readSSE(r io.Reader, onData func(data string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSpace(line)
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				if data == "[DONE]" {
					return nil
				}
				onData(data)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// errorField extracts {"error": "..."} from body, or returns fallback.
func errorField(body []byte, fallback string) string {
	var v struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &v) == nil && v.Error != "" {
		return v.Error
	}
	return fallback
}
