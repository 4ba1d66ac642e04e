package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	deepgramProjectsURL   = "https://api.deepgram.com/v1/projects"
	assemblyAITranscripts = "https://api.assemblyai.com/v2/transcript?limit=1"
)

// TestConnection checks that key is accepted by provider. For the cloud
// provider key is the session token and the account must be on the pro
// plan. A false result with a nil error means the service answered but
// rejected the credentials.
func TestConnection(ctx context.Context, provider, key string, opts ...Option) (bool, error) {
	if provider == "" || key == "" {
		return false, nil
	}
	o := buildOptions(opts)

	switch provider {
	case ProviderCloud:
		return testCloud(ctx, o, key)
	case ProviderDeepgram:
		return probe(ctx, o, http.MethodGet, pick(o.endpoint, deepgramProjectsURL), "Token "+key, 10*time.Second)
	case ProviderAssemblyAI:
		return probe(ctx, o, http.MethodGet, pick(o.endpoint, assemblyAITranscripts), key, 10*time.Second)
	}

	spec, ok := whisperSpecs[provider]
	if !ok {
		return false, fmt.Errorf("unknown STT provider: %s", provider)
	}
	return testUpload(ctx, newWhisper(spec, o), key)
}

func pick(override, def string) string {
	if override != "" {
		return override
	}
	return def
}

func probe(ctx context.Context, o options, method, url, auth string, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", auth)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

// testUpload posts 0.1s of silence to a Whisper-compatible endpoint.
func testUpload(ctx context.Context, u *uploader, key string) (bool, error) {
	silence := make([]byte, 3200)
	wavData, err := BuildWAV(silence, 16000)
	if err != nil {
		return false, err
	}
	body, contentType, err := u.buildForm(wavData, "", "test.wav")
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := u.opts.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

func testCloud(ctx context.Context, o options, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := pick(o.endpoint, o.cloudBaseURL+"/api/subscription/status")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, nil
	}

	var status struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("decode subscription status: %w", err)
	}
	return status.Plan == "pro", nil
}
