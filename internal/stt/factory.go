package stt

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Provider names accepted by New.
const (
	ProviderCloud         = "cloud"
	ProviderDeepgram      = "deepgram"
	ProviderAssemblyAI    = "assemblyai"
	ProviderGLMASR        = "glm-asr"
	ProviderOpenAIWhisper = "openai-whisper"
	ProviderGroqWhisper   = "groq-whisper"
	ProviderSiliconFlow   = "siliconflow"
)

// Providers lists every known provider name.
var Providers = []string{
	ProviderCloud,
	ProviderDeepgram,
	ProviderAssemblyAI,
	ProviderGLMASR,
	ProviderOpenAIWhisper,
	ProviderGroqWhisper,
	ProviderSiliconFlow,
}

// uploadSpec describes a Whisper-compatible transcription endpoint.
type uploadSpec struct {
	name     string
	endpoint string
	model    string
	extra    [][2]string
}

var whisperSpecs = map[string]uploadSpec{
	ProviderGLMASR: {
		name:     "GLM-ASR",
		endpoint: "https://open.bigmodel.cn/api/paas/v4/audio/transcriptions",
		model:    "glm-asr-2512",
		extra:    [][2]string{{"stream", "false"}},
	},
	ProviderOpenAIWhisper: {
		name:     "OpenAI Whisper",
		endpoint: "https://api.openai.com/v1/audio/transcriptions",
		model:    "whisper-1",
	},
	ProviderGroqWhisper: {
		name:     "Groq Whisper",
		endpoint: "https://api.groq.com/openai/v1/audio/transcriptions",
		model:    "whisper-large-v3-turbo",
	},
	ProviderSiliconFlow: {
		name:     "SiliconFlow",
		endpoint: "https://api.siliconflow.cn/v1/audio/transcriptions",
		model:    "FunAudioLLM/SenseVoiceSmall",
	},
}

const (
	deepgramListenURL    = "wss://api.deepgram.com/v1/listen"
	assemblyAIStreamURL  = "wss://streaming.assemblyai.com/v3/ws"
	deepgramProbeURL     = "https://api.deepgram.com/v1/listen"
	assemblyAIProbeURL   = "https://api.assemblyai.com/v2/transcript"
	defaultUploadTimeout = 60 * time.Second
	defaultDrainTimeout  = 2 * time.Second
)

type options struct {
	httpClient   *http.Client
	dialer       *websocket.Dialer
	cloudBaseURL string
	endpoint     string
	logger       *slog.Logger
	drainTimeout time.Duration
}

// Option configures a provider.
type Option func(*options)

// WithHTTPClient sets the client used by buffered providers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithDialer sets the WebSocket dialer used by streaming providers.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithCloudBaseURL sets the base URL of the hosted proxy.
func WithCloudBaseURL(u string) Option {
	return func(o *options) { o.cloudBaseURL = strings.TrimRight(u, "/") }
}

// WithEndpoint overrides the provider endpoint (tests, self-hosted gateways).
func WithEndpoint(u string) Option {
	return func(o *options) { o.endpoint = u }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDrainTimeout bounds how long a streaming Disconnect waits for the
// server to flush its last results.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) { o.drainTimeout = d }
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient:   &http.Client{},
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// New creates a provider by name. Unknown names fall back to GLM-ASR.
func New(name string, opts ...Option) Provider {
	o := buildOptions(opts)

	switch name {
	case ProviderCloud:
		return newCloud(o)
	case ProviderDeepgram:
		return newDeepgram(o)
	case ProviderAssemblyAI:
		return newAssemblyAI(o)
	}

	spec, ok := whisperSpecs[name]
	if !ok {
		o.logger.Warn("unknown stt provider, using glm-asr", "provider", name)
		spec = whisperSpecs[ProviderGLMASR]
	}
	return newWhisper(spec, o)
}

// ProbeURL returns the URL pinged to warm up connections to provider.
func ProbeURL(provider, cloudBaseURL string) (string, bool) {
	switch provider {
	case ProviderCloud:
		return strings.TrimRight(cloudBaseURL, "/") + "/api/proxy/stt", true
	case ProviderDeepgram:
		return deepgramProbeURL, true
	case ProviderAssemblyAI:
		return assemblyAIProbeURL, true
	}
	if spec, ok := whisperSpecs[provider]; ok {
		return spec.endpoint, true
	}
	return "", false
}
