// Package metrics holds the Prometheus instruments for recall.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every instrument. A nil *Metrics is valid and records nothing,
// which keeps tests free of registry plumbing.
type Metrics struct {
	registry *prometheus.Registry

	ToolCalls        *prometheus.CounterVec
	AuthAttempts     *prometheus.CounterVec
	NoteMutations    *prometheus.CounterVec
	EmbeddingLatency *prometheus.HistogramVec
}

// New creates the instruments on a fresh registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ToolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recall_tool_calls_total",
			Help: "Tool invocations by tool name and outcome",
		}, []string{"tool", "outcome"}),

		// outcome: "ok", "unauthorized", "forbidden", "rate_limited"
		AuthAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recall_auth_attempts_total",
			Help: "Authentication attempts by channel and outcome",
		}, []string{"channel", "outcome"}),

		NoteMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recall_note_mutations_total",
			Help: "Committed note mutations by kind",
		}, []string{"kind"}),

		EmbeddingLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recall_embedding_duration_seconds",
			Help:    "Embedding provider call latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"op", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ToolCall counts one tool invocation.
func (m *Metrics) ToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// AuthAttempt counts one authentication outcome.
func (m *Metrics) AuthAttempt(channel, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(channel, outcome).Inc()
}

// NoteMutation counts a committed create, update, or delete.
func (m *Metrics) NoteMutation(kind string) {
	if m == nil {
		return
	}
	m.NoteMutations.WithLabelValues(kind).Inc()
}

// ObserveEmbedding records how long an embedding call took.
func (m *Metrics) ObserveEmbedding(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EmbeddingLatency.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
