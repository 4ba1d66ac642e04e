package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Session outcomes
const (
	OutcomeOK           = "ok"
	OutcomeNoSpeech     = "no_speech"
	OutcomeConfigError  = "config_error"
	OutcomeConnectError = "connect_error"
	OutcomeAudioError   = "audio_error"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	StageDuration *prometheus.HistogramVec
	Sessions      *prometheus.CounterVec
	LLMFallbacks  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ezdictate_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ezdictate_sessions_total",
			Help: "Dictation sessions by outcome",
		}, []string{"outcome"}),
		LLMFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ezdictate_llm_fallbacks_total",
			Help: "Sessions that fell back to raw text after an LLM failure",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.StageDuration, m.Sessions, m.LLMFallbacks)
	}
	return m
}

func (m *Metrics) observeTiming(stt, llm, total, recording time.Duration) {
	m.StageDuration.WithLabelValues("stt").Observe(stt.Seconds())
	if llm > 0 {
		m.StageDuration.WithLabelValues("llm").Observe(llm.Seconds())
	}
	m.StageDuration.WithLabelValues("total").Observe(total.Seconds())
	m.StageDuration.WithLabelValues("recording").Observe(recording.Seconds())
}

func (m *Metrics) session(outcome string) {
	m.Sessions.WithLabelValues(outcome).Inc()
}
