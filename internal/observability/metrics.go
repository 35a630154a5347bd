// File: internal/observability/metrics.go
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "synapse"

// Metrics groups the Prometheus collectors shared by the pipeline components.
// A nil *Metrics is valid and records nothing, which keeps unit tests free of
// registry plumbing.
type Metrics struct {
	// pipelineRequests counts completed pipeline runs.
	// Labels: language, analysis_type
	pipelineRequests *prometheus.CounterVec

	// pipelineDuration measures end-to-end pipeline latency.
	pipelineDuration prometheus.Histogram

	// healingAttempts counts individual generation attempts inside the healing loop.
	// Labels: outcome (success, invalid_json, missing_field, syntax_error, transport_retry)
	healingAttempts *prometheus.CounterVec

	// llmErrors counts model client failures.
	// Labels: kind (no_credentials, provider, empty_response, timeout, transport)
	llmErrors *prometheus.CounterVec

	// persistenceErrors counts failed background writes.
	// Labels: backend (postgres, sqlite)
	persistenceErrors *prometheus.CounterVec

	// cacheHits counts results served from the result cache.
	cacheHits prometheus.Counter
}

// NewMetrics registers the collectors with reg. Passing nil creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		pipelineRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total refactor pipeline runs by language and analysis type",
		}, []string{"language", "analysis_type"}),
		pipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Refactor pipeline latency in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		healingAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "healing",
			Name:      "attempts_total",
			Help:      "Generation attempts made by the self-healing loop, by outcome",
		}, []string{"outcome"}),
		llmErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "llm",
			Name:      "errors_total",
			Help:      "Model client errors by kind",
		}, []string{"kind"}),
		persistenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "persistence",
			Name:      "errors_total",
			Help:      "Failed background result writes by backend",
		}, []string{"backend"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "cache_hits_total",
			Help:      "Results served from the in-memory result cache",
		}),
	}
}

// ObservePipeline records one finished pipeline run.
func (m *Metrics) ObservePipeline(language, analysisType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pipelineRequests.WithLabelValues(language, analysisType).Inc()
	m.pipelineDuration.Observe(elapsed.Seconds())
}

// HealingAttempt records the outcome of one generation attempt.
func (m *Metrics) HealingAttempt(outcome string) {
	if m == nil {
		return
	}
	m.healingAttempts.WithLabelValues(outcome).Inc()
}

// LLMError records a model client failure.
func (m *Metrics) LLMError(kind string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(kind).Inc()
}

// PersistenceError records a failed background write.
func (m *Metrics) PersistenceError(backend string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(backend).Inc()
}

// CacheHit records a result cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
