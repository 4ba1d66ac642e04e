// Package pipeline drives one dictation session at a time: capture audio,
// stream it to speech recognition, polish the transcript and deliver the
// result to the focused application.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yok-tottii/ezdictate/internal/appctx"
	"github.com/yok-tottii/ezdictate/internal/audio"
	"github.com/yok-tottii/ezdictate/internal/clipboard"
	"github.com/yok-tottii/ezdictate/internal/config"
	"github.com/yok-tottii/ezdictate/internal/events"
	"github.com/yok-tottii/ezdictate/internal/langdetect"
	"github.com/yok-tottii/ezdictate/internal/llm"
	"github.com/yok-tottii/ezdictate/internal/output"
	"github.com/yok-tottii/ezdictate/internal/storage"
	"github.com/yok-tottii/ezdictate/internal/stt"
)

const (
	selectedTextDelay = 60 * time.Millisecond
	volumeInterval    = 50 * time.Millisecond
	finalizeTimeout   = 120 * time.Second
	preWarmTimeout    = 5 * time.Second

	llmMaxTokens   = 4096
	llmTemperature = 0.3
)

// User-facing error messages
const (
	msgSTTKeyMissing = "STT API key is not configured. Please set it in Settings → Speech Recognition."
	msgNoSpeech      = "No speech detected. Please try again."
)

// ErrNotConfigured is returned by Start when the STT key is missing.
var ErrNotConfigured = errors.New(msgSTTKeyMissing)

// ConfigSource supplies the configuration snapshot for a session.
type ConfigSource interface {
	Current() *config.Config
}

// Store is the persistence the pipeline needs.
type Store interface {
	Words(ctx context.Context) []string
	AddHistory(ctx context.Context, e storage.HistoryEntry) error
}

// Deps are the collaborators of an Orchestrator. Config, Engine and
// Keyboard are required; the rest have usable defaults.
type Deps struct {
	Config   ConfigSource
	Engine   audio.Engine
	Keyboard clipboard.Keyboard
	Detector appctx.Detector
	Store    Store
	Emitter  events.Emitter
	Logger   *slog.Logger
	Metrics  *Metrics

	// HTTPClient is shared by providers and pre-warm requests.
	HTTPClient *http.Client

	// NewSTT and NewLLM build per-session providers.
	NewSTT func(cfg *config.Config) stt.Provider
	NewLLM func(cfg *config.Config) llm.Provider

	Clipboard       clipboard.Config
	FinalizeTimeout time.Duration
}

// Orchestrator is the pipeline state machine. It is safe for concurrent
// use; overlapping Start or Stop calls are no-ops.
type Orchestrator struct {
	state atomic.Uint32

	cfgSrc   ConfigSource
	engine   audio.Engine
	keyboard clipboard.Keyboard
	detector appctx.Detector
	store    Store
	emitter  events.Emitter
	logger   *slog.Logger
	metrics  *Metrics
	client   *http.Client
	newSTT   func(cfg *config.Config) stt.Provider
	newLLM   func(cfg *config.Config) llm.Provider

	clipConfig      clipboard.Config
	finalizeTimeout time.Duration
	sleep           func(time.Duration)

	// lifecycle serializes Start calls.
	lifecycle sync.Mutex

	// mu guards session, pending and session.cancelled. pending is the
	// session Start is still connecting; a Stop that lands meanwhile
	// cancels it instead of waiting.
	mu      sync.Mutex
	session *session
	pending *session
}

// session holds everything preloaded or started by Start for Stop.
type session struct {
	id          string
	cfg         *config.Config
	app         appctx.Context
	dictionary  []string
	capture     audio.Capture
	recordStart time.Time
	done        chan struct{}
	quit        chan struct{}

	transcript transcript
	cancelled  bool
}

// transcript accumulates Final segments of one session in arrival order.
type transcript struct {
	mu sync.Mutex
	b  strings.Builder
}

func (t *transcript) append(s string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.b.WriteString(s)
	return t.b.String()
}

func (t *transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.b.String()
}

// New creates an orchestrator in the Idle state.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		cfgSrc:          d.Config,
		engine:          d.Engine,
		keyboard:        d.Keyboard,
		detector:        d.Detector,
		store:           d.Store,
		emitter:         d.Emitter,
		logger:          d.Logger,
		metrics:         d.Metrics,
		client:          d.HTTPClient,
		newSTT:          d.NewSTT,
		newLLM:          d.NewLLM,
		clipConfig:      d.Clipboard,
		finalizeTimeout: d.FinalizeTimeout,
		sleep:           time.Sleep,
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.emitter == nil {
		o.emitter = events.Nop
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	if o.client == nil {
		o.client = &http.Client{}
	}
	if o.detector == nil {
		o.detector = appctx.DetectorFunc(func() appctx.Context {
			return appctx.Context{AppType: llm.AppGeneral}
		})
	}
	if o.clipConfig == (clipboard.Config{}) {
		o.clipConfig = clipboard.DefaultConfig()
	}
	if o.finalizeTimeout <= 0 {
		o.finalizeTimeout = finalizeTimeout
	}
	if o.newSTT == nil {
		o.newSTT = func(cfg *config.Config) stt.Provider {
			return stt.New(cfg.STTProvider,
				stt.WithHTTPClient(o.client),
				stt.WithCloudBaseURL(cfg.CloudBaseURL),
				stt.WithLogger(o.logger))
		}
	}
	if o.newLLM == nil {
		o.newLLM = func(cfg *config.Config) llm.Provider {
			return llm.New(cfg.LLMProvider,
				llm.WithHTTPClient(o.client),
				llm.WithCloudBaseURL(cfg.CloudBaseURL),
				llm.WithLogger(o.logger))
		}
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(uint32(s))
	o.emitter.Emit(events.PipelineState, s)
}

func (o *Orchestrator) fail(msg string) {
	o.logger.Error("pipeline error", "error", msg)
	o.emitter.Emit(events.PipelineError, msg)
}

// Toggle starts a session when idle and stops it when recording. Other
// states are ignored.
func (o *Orchestrator) Toggle(ctx context.Context) error {
	switch o.State() {
	case Idle:
		return o.Start(ctx)
	case Recording:
		return o.Stop(ctx)
	}
	return nil
}

// Start begins a session. It is a no-op unless the pipeline is Idle.
// Failures are emitted as pipeline:error events, returned, and leave the
// pipeline Idle. A Stop that arrives while Start is still connecting
// cancels the session; Start then releases what it opened.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.State() != Idle {
		return nil
	}
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	sess := &session{
		id:   uuid.NewString(),
		done: make(chan struct{}),
		quit: make(chan struct{}),
	}
	o.mu.Lock()
	o.pending = sess
	o.mu.Unlock()

	if !o.state.CompareAndSwap(uint32(Idle), uint32(Recording)) {
		o.clearPending()
		return nil
	}
	o.emitter.Emit(events.PipelineState, Recording)

	// Stop may run after the caller's context is gone.
	ctx = context.WithoutCancel(ctx)

	cfg := o.cfgSrc.Current()
	sess.cfg = cfg
	sess.app = o.detector.Detect()
	if o.store != nil {
		sess.dictionary = o.store.Words(ctx)
	}
	logger := o.logger.With("session", sess.id)
	logger.Info("pipeline started",
		"stt_provider", cfg.STTProvider,
		"app", sess.app.AppName,
		"app_type", sess.app.AppType,
		"dictionary", len(sess.dictionary))

	key := cfg.STTAPIKey
	if cfg.STTProvider == config.ProviderCloud {
		key = cfg.CloudToken
	} else if key == "" {
		o.fail(msgSTTKeyMissing)
		o.metrics.session(OutcomeConfigError)
		o.abandon()
		return ErrNotConfigured
	}

	sttCfg := stt.DefaultConfig()
	sttCfg.APIKey = key
	if cfg.STTLanguage != "multi" {
		sttCfg.Language = cfg.STTLanguage
	}

	provider := o.newSTT(cfg)
	if err := provider.Connect(ctx, sttCfg); err != nil {
		o.fail(fmt.Sprintf("STT connection failed: %v", err))
		o.metrics.session(OutcomeConnectError)
		o.abandon()
		return fmt.Errorf("STT connection failed: %w", err)
	}
	logger.Debug("stt connected", "provider", provider.Name(), "family", provider.Family())

	if o.isCancelled(sess) {
		logger.Info("start cancelled before capture")
		if _, _, err := provider.Disconnect(ctx); err != nil {
			logger.Debug("disconnect after cancel", "error", err)
		}
		o.abandon()
		return nil
	}

	acfg := audio.DefaultConfig()
	acfg.DeviceID = cfg.AudioDeviceID
	acfg.SampleRate = sttCfg.SampleRate
	capture, chunks, err := o.engine.Start(acfg)
	if err != nil {
		if _, _, derr := provider.Disconnect(ctx); derr != nil {
			logger.Debug("disconnect after audio failure", "error", derr)
		}
		o.fail(fmt.Sprintf("Audio capture failed: %v", err))
		o.metrics.session(OutcomeAudioError)
		o.abandon()
		return fmt.Errorf("audio capture failed: %w", err)
	}
	sess.capture = capture
	sess.recordStart = time.Now()

	o.mu.Lock()
	cancelled := sess.cancelled
	o.pending = nil
	if !cancelled {
		o.session = sess
	}
	o.mu.Unlock()

	go o.forward(ctx, logger, provider, chunks, sess)
	if cancelled {
		// forward disconnects the provider once the chunk stream closes.
		logger.Info("start cancelled during capture setup")
		capture.Stop()
		return nil
	}
	go o.pollVolume(capture, sess.quit)
	return nil
}

func (o *Orchestrator) clearPending() {
	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
}

// abandon drops the pending session after a failed or cancelled start.
// The state returns to Idle unless a Stop already claimed it.
func (o *Orchestrator) abandon() {
	o.clearPending()
	if o.state.CompareAndSwap(uint32(Recording), uint32(Idle)) {
		o.emitter.Emit(events.PipelineState, Idle)
	}
}

func (o *Orchestrator) isCancelled(sess *session) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return sess.cancelled
}

// pollVolume emits the capture level until the session is stopped.
func (o *Orchestrator) pollVolume(capture audio.Capture, quit <-chan struct{}) {
	ticker := time.NewTicker(volumeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if o.State() != Recording {
				return
			}
			o.emitter.Emit(events.AudioVolume, capture.Volume())
		}
	}
}

type recvResult struct {
	ev  stt.Event
	err error
}

type disconnectResult struct {
	text string
	ok   bool
	err  error
}

// forward sends audio to the provider and turns transcript events into
// pipeline events. It returns once the audio stream has closed, the
// provider has been disconnected and every pending event has been
// handled, or when receiving fails.
func (o *Orchestrator) forward(ctx context.Context, logger *slog.Logger, provider stt.Provider, chunks <-chan []byte, sess *session) {
	defer close(sess.done)

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	recv := make(chan recvResult)
	go func() {
		defer close(recv)
		for {
			ev, ok, err := provider.RecvTranscript(pumpCtx)
			if err != nil {
				if pumpCtx.Err() == nil {
					select {
					case recv <- recvResult{err: err}:
					case <-pumpCtx.Done():
					}
				}
				return
			}
			if !ok {
				return
			}
			select {
			case recv <- recvResult{ev: ev}:
			case <-pumpCtx.Done():
				return
			}
		}
	}()

	var (
		disconnected chan disconnectResult
		sendErrors   int
	)
	disconnect := func() {
		disconnected = make(chan disconnectResult, 1)
		go func(ch chan<- disconnectResult) {
			text, ok, err := provider.Disconnect(ctx)
			ch <- disconnectResult{text, ok, err}
		}(disconnected)
	}

	for chunks != nil || recv != nil || disconnected != nil {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				disconnect()
				continue
			}
			if err := provider.SendAudio(ctx, chunk); err != nil {
				if sendErrors == 0 {
					logger.Warn("failed to send audio", "error", err)
				}
				sendErrors++
			}

		case r, ok := <-recv:
			if !ok {
				recv = nil
				continue
			}
			if r.err != nil {
				logger.Error("transcript receive failed", "error", r.err)
				if chunks != nil {
					go provider.Disconnect(ctx)
				}
				return
			}
			o.handleEvent(logger, &sess.transcript, r.ev)

		case d := <-disconnected:
			disconnected = nil
			if d.err != nil {
				o.fail(fmt.Sprintf("STT error: %v", d.err))
			} else if d.ok && d.text != "" {
				o.emitter.Emit(events.STTFinal, sess.transcript.append(d.text))
			}
		}
	}

	if sendErrors > 1 {
		logger.Warn("audio send errors", "count", sendErrors)
	}
}

func (o *Orchestrator) handleEvent(logger *slog.Logger, t *transcript, ev stt.Event) {
	switch ev.Kind {
	case stt.Partial:
		o.emitter.Emit(events.STTPartial, ev.Text)
	case stt.Final:
		o.emitter.Emit(events.STTFinal, t.append(ev.Text+" "))
	case stt.Error:
		o.fail(fmt.Sprintf("STT error: %s", ev.Message))
	default:
		logger.Debug("stt event", "kind", ev.Kind)
	}
}

// Stop ends the session started by Start and delivers its result. It is
// a no-op unless the pipeline is Recording. The pipeline is Idle when
// Stop returns. The caller's deadline only bounds the wait for the final
// transcript; polishing and output always run to completion.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if !o.state.CompareAndSwap(uint32(Recording), uint32(Transcribing)) {
		return nil
	}
	// Only Stop moves the pipeline out of Transcribing, so the deferred
	// Idle cannot overwrite a newer session.
	o.mu.Lock()
	sess := o.session
	o.session = nil
	if sess == nil && o.pending != nil {
		o.pending.cancelled = true
	}
	o.mu.Unlock()

	o.emitter.Emit(events.PipelineState, Transcribing)
	defer o.setState(Idle)

	if sess == nil {
		o.logger.Info("stop cancelled a session that was still starting")
		return nil
	}
	close(sess.quit)

	stopStart := time.Now()
	waitCtx := ctx
	ctx = context.WithoutCancel(ctx)

	cfg := sess.cfg
	logger := o.logger.With("session", sess.id)
	cb := clipboard.NewManager(o.keyboard, o.clipConfig)

	var selected string
	if cfg.SelectedTextEnabled {
		// Let the user release the hotkey modifiers before copying.
		o.sleep(selectedTextDelay)
		if text, ok := cb.CaptureSelection(); ok {
			selected = text
			logger.Debug("captured selection", "runes", len([]rune(text)))
		}
	}

	sess.capture.Stop()

	var (
		polisher llm.Provider
		llmCfg   llm.Config
	)
	if cfg.PolishEnabled && (cfg.LLMAPIKey != "" || cfg.LLMProvider == config.ProviderCloud) {
		llmCfg = llm.Config{
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			BaseURL:     cfg.LLMBaseURL,
			MaxTokens:   llmMaxTokens,
			Temperature: llmTemperature,
		}
		if cfg.LLMProvider == config.ProviderCloud {
			llmCfg.APIKey = cfg.CloudToken
		}
		polisher = o.newLLM(cfg)
	}

	timer := time.NewTimer(o.finalizeTimeout)
	select {
	case <-sess.done:
	case <-timer.C:
		logger.Warn("stt finalize timed out, using partial transcript", "timeout", o.finalizeTimeout)
	case <-waitCtx.Done():
		logger.Warn("stop deadline reached, using partial transcript", "error", waitCtx.Err())
	}
	timer.Stop()
	sttElapsed := time.Since(stopStart)

	raw := strings.TrimSpace(sess.transcript.String())
	if raw == "" {
		o.fail(msgNoSpeech)
		o.metrics.session(OutcomeNoSpeech)
		return nil
	}

	sink := output.New(output.ParseMode(cfg.OutputMode), o.keyboard, cb)
	finalText := raw
	var llmElapsed time.Duration

	if polisher != nil {
		o.setState(Polishing)
		llmStart := time.Now()
		finalText = o.polish(ctx, logger, polisher, llmCfg, sess, raw, selected, sink, cb)
		llmElapsed = time.Since(llmStart)
	} else {
		o.deliver(ctx, sink, raw)
	}

	o.emitter.Emit(events.PipelineTargetApp, sess.app.AppName)

	total := time.Since(stopStart)
	recording := time.Since(sess.recordStart)
	o.emitter.Emit(events.PipelineTiming, events.Timing{
		STTMs:       sttElapsed.Milliseconds(),
		LLMMs:       llmElapsed.Milliseconds(),
		TotalMs:     total.Milliseconds(),
		RecordingMs: recording.Milliseconds(),
	})
	o.metrics.observeTiming(sttElapsed, llmElapsed, total, recording)
	o.metrics.session(OutcomeOK)
	logger.Info("pipeline finished",
		"stt_ms", sttElapsed.Milliseconds(),
		"llm_ms", llmElapsed.Milliseconds(),
		"total_ms", total.Milliseconds())

	if o.store != nil {
		o.record(ctx, logger, sess, raw, finalText, recording)
	}
	return nil
}

// polish runs the LLM and delivers its output. In keyboard mode the
// response is pasted chunk by chunk as it streams; the clipboard is backed
// up once before and restored once after. It returns the text that was
// delivered.
func (o *Orchestrator) polish(ctx context.Context, logger *slog.Logger, polisher llm.Provider, llmCfg llm.Config, sess *session, raw, selected string, sink output.Sink, cb *clipboard.Manager) string {
	cfg := sess.cfg
	req := llm.PolishRequest{
		RawText:          raw,
		AppType:          sess.app.AppType,
		Dictionary:       sess.dictionary,
		TranslateEnabled: cfg.TranslateEnabled,
		TargetLang:       cfg.TargetLang,
		SelectedText:     selected,
	}

	streaming := sink.Mode() == output.ModeKeyboard
	streamed := false
	onChunk := func(chunk string) {
		if streaming && !streamed {
			streamed = true
			o.setState(Outputting)
		}
		o.emitter.Emit(events.LLMChunk, chunk)
		if streaming {
			if err := cb.PasteChunk(chunk); err != nil {
				logger.Warn("failed to paste chunk", "error", err)
			}
		}
	}

	var backup clipboard.Snapshot
	if streaming {
		backup = cb.Backup()
		defer cb.Restore(backup)
	}

	resp, err := polisher.Polish(ctx, llmCfg, req, onChunk)
	if err != nil {
		o.metrics.LLMFallbacks.Inc()
		if streamed {
			o.fail(fmt.Sprintf("LLM polishing failed mid-stream: %v", err))
			return raw
		}
		o.fail(fmt.Sprintf("LLM polishing failed: %v", err))
		o.deliver(ctx, sink, raw)
		return raw
	}

	text := resp.PolishedText
	if strings.TrimSpace(text) == "" {
		logger.Warn("llm returned empty text, using raw transcript", "provider", polisher.Name())
		text = raw
	}
	if !streamed {
		o.deliver(ctx, sink, text)
	}
	return text
}

// deliver writes text through sink. Failures are reported, not returned.
func (o *Orchestrator) deliver(ctx context.Context, sink output.Sink, text string) {
	if o.State() != Outputting {
		o.setState(Outputting)
	}
	if err := sink.Output(ctx, text); err != nil {
		o.fail(fmt.Sprintf("Output failed: %v", err))
	}
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, sess *session, raw, polished string, recording time.Duration) {
	entry := storage.HistoryEntry{
		CreatedAt:    time.Now().Format(time.RFC3339),
		AppName:      sess.app.AppName,
		AppType:      string(sess.app.AppType),
		RawText:      raw,
		PolishedText: polished,
	}
	if lang := langdetect.Resolve(sess.cfg.STTLanguage, raw); lang != "" {
		entry.Language = &lang
	}
	ms := recording.Milliseconds()
	entry.DurationMs = &ms

	if err := o.store.AddHistory(ctx, entry); err != nil {
		logger.Error("failed to save history", "error", err)
	}
}

// PreWarm opens connections to the configured endpoints so the first
// session does not pay for DNS and TLS setup. Errors are ignored.
func (o *Orchestrator) PreWarm(ctx context.Context) {
	cfg := o.cfgSrc.Current()

	var urls []string
	if u, ok := stt.ProbeURL(cfg.STTProvider, cfg.CloudBaseURL); ok {
		urls = append(urls, u)
	}
	if cfg.PolishEnabled {
		if cfg.LLMProvider == config.ProviderCloud {
			urls = append(urls, strings.TrimRight(cfg.CloudBaseURL, "/")+"/api/proxy/llm")
		} else if cfg.LLMBaseURL != "" {
			urls = append(urls, cfg.LLMBaseURL)
		}
	}

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			o.head(ctx, u)
		}(u)
	}
	wg.Wait()
}

func (o *Orchestrator) head(ctx context.Context, url string) {
	ctx, cancel := context.WithTimeout(ctx, preWarmTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return
	}
	resp, err := o.client.Do(req)
	if err != nil {
		o.logger.Debug("pre-warm failed", "url", url, "error", err)
		return
	}
	resp.Body.Close()
	o.logger.Debug("pre-warmed", "url", url, "status", resp.StatusCode)
}
