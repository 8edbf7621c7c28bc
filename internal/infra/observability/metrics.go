package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	storeFallbacks   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	tokensUsed       *prometheus.CounterVec
	timerCompletions *prometheus.CounterVec
	aiRequests       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sloth_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sloth_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		storeFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sloth_store_fallbacks_total",
				Help: "Remote store operations that fell back to the local store.",
			},
			[]string{"op"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sloth_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sloth_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sloth_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		timerCompletions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sloth_timer_completions_total",
				Help: "Focus timer phases that ran down to zero.",
			},
			[]string{"phase"},
		),
		aiRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sloth_ai_requests_total",
				Help: "AI gateway calls by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
	}
}

// RecordRequestDuration records the duration of a route.
func (m *Metrics) RecordRequestDuration(route string, d time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrStoreFallback counts one remote failure served by the local store.
func (m *Metrics) IncrStoreFallback(op string) {
	m.storeFallbacks.WithLabelValues(op).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrTimerCompletion counts a finished timer phase.
func (m *Metrics) IncrTimerCompletion(phase string) {
	m.timerCompletions.WithLabelValues(phase).Inc()
}

// IncrAIRequest counts one AI gateway call.
func (m *Metrics) IncrAIRequest(operation, status string) {
	m.aiRequests.WithLabelValues(operation, status).Inc()
}

// StoreFallbacks returns the fallback count for one operation.
func (m *Metrics) StoreFallbacks(op string) float64 {
	return getCounterValue(m.storeFallbacks, op)
}

// Snapshot returns a digest of the counters for the health endpoint.
func (m *Metrics) Snapshot() *domain.MetricsSnapshot {
	hits := getCounterValue(m.cacheHits, "session")
	misses := getCounterValue(m.cacheMisses, "session")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.MetricsSnapshot{
		StoreFallbacks:   int64(sumCounter(m.storeFallbacks)),
		ExternalErrors:   int64(sumCounter(m.externalErrors)),
		PromptTokens:     int64(getCounterValue(m.tokensUsed, "prompt")),
		CompletionTokens: int64(getCounterValue(m.tokensUsed, "completion")),
		TimerCompletions: int64(sumCounter(m.timerCompletions)),
		SessionHitRate:   hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds every child of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 32)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := 0.0
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}
