package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
)

// MaxAudioBytes caps buffered audio (about 12.5 minutes of 16kHz 16-bit
// mono), keeping the WAV under the 25 MB limit common to these APIs.
const MaxAudioBytes = 24 * 1024 * 1024

// uploader is the buffered family: audio is accumulated and uploaded as a
// WAV file on Disconnect.
type uploader struct {
	id       string // factory name
	label    string // used in error messages
	endpoint string
	filePart string
	model    string
	extra    [][2]string
	cloud    bool
	opts     options

	mu  sync.Mutex
	cfg *Config
	buf []byte
}

func newWhisper(spec uploadSpec, o options) *uploader {
	endpoint := spec.endpoint
	if o.endpoint != "" {
		endpoint = o.endpoint
	}
	return &uploader{
		id:       spec.name,
		label:    spec.name,
		endpoint: endpoint,
		filePart: "file",
		model:    spec.model,
		extra:    spec.extra,
		opts:     o,
	}
}

func newCloud(o options) *uploader {
	endpoint := o.cloudBaseURL + "/api/proxy/stt"
	if o.endpoint != "" {
		endpoint = o.endpoint
	}
	return &uploader{
		id:       "Cloud",
		label:    "Cloud STT",
		endpoint: endpoint,
		filePart: "audio",
		cloud:    true,
		opts:     o,
	}
}

func (u *uploader) Name() string   { return u.id }
func (u *uploader) Family() Family { return Buffered }

func (u *uploader) Connect(ctx context.Context, cfg Config) error {
	if cfg.APIKey == "" {
		if u.cloud {
			return errors.New("Cloud STT: session token is missing. Please sign in first.")
		}
		return fmt.Errorf("%s API key is empty", u.label)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	c := cfg
	u.cfg = &c
	u.buf = u.buf[:0]
	u.opts.logger.Info("stt provider ready (buffering mode)", "provider", u.id)
	return nil
}

func (u *uploader) SendAudio(ctx context.Context, chunk []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cfg == nil {
		return ErrNotConnected
	}
	if len(u.buf)+len(chunk) > MaxAudioBytes {
		return fmt.Errorf("%s: %w", u.label, ErrAudioTooLong)
	}
	u.buf = append(u.buf, chunk...)
	return nil
}

// RecvTranscript reports no events; the transcript arrives from Disconnect.
func (u *uploader) RecvTranscript(ctx context.Context) (Event, bool, error) {
	return Event{}, false, nil
}

func (u *uploader) Disconnect(ctx context.Context) (string, bool, error) {
	u.mu.Lock()
	cfg := u.cfg
	pcm := u.buf
	u.buf = nil
	u.cfg = nil
	u.mu.Unlock()

	if cfg == nil {
		return "", false, nil
	}
	if len(pcm) == 0 {
		u.opts.logger.Info("no audio buffered, skipping", "provider", u.id)
		return "", false, nil
	}

	seconds := float64(len(pcm)) / float64(cfg.SampleRate*2)
	u.opts.logger.Info("uploading audio for transcription",
		"provider", u.id,
		"seconds", fmt.Sprintf("%.1f", seconds))

	wavData, err := BuildWAV(pcm, cfg.SampleRate)
	if err != nil {
		return "", false, err
	}
	body, contentType, err := u.buildForm(wavData, cfg.Language, "audio.wav")
	if err != nil {
		return "", false, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultUploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := u.opts.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%s: send request: %w", u.label, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("%s: read response: %w", u.label, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if u.cloud && resp.StatusCode == http.StatusForbidden {
			return "", false, &QuotaError{Message: errorField(data, "STT quota exceeded")}
		}
		truncated := TruncateBody(string(data), errorBodyLimit)
		u.opts.logger.Error("stt upload failed", "provider", u.id, "status", resp.Status, "body", truncated)
		return "", false, &HTTPError{Provider: u.label, Status: resp.Status, Body: truncated}
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, fmt.Errorf("%s: parse response: %w", u.label, err)
	}

	text := strings.TrimSpace(parsed.Text)
	u.opts.logger.Info("transcription received", "provider", u.id, "chars", len(text))
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

func (u *uploader) buildForm(wav []byte, language, filename string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, u.filePart, filename))
	h.Set("Content-Type", "audio/wav")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}

	if u.model != "" {
		if err := writer.WriteField("model", u.model); err != nil {
			return nil, "", fmt.Errorf("write model field: %w", err)
		}
	}

	if language != "" && language != "multi" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}

	for _, kv := range u.extra {
		if err := writer.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", kv[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
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
