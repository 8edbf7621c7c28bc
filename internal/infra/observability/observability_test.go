package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := observability.NewMetrics()
	m.IncrStoreFallback("add")
	m.IncrStoreFallback("list")
	m.IncrStoreFallback("list")
	m.RecordTokens(120, 30)
	m.IncrTimerCompletion("focus")
	m.IncrCacheHit("session")
	m.IncrCacheMiss("session")

	snap := m.Snapshot()
	assert.EqualValues(t, 3, snap.StoreFallbacks)
	assert.EqualValues(t, 120, snap.PromptTokens)
	assert.EqualValues(t, 30, snap.CompletionTokens)
	assert.EqualValues(t, 1, snap.TimerCompletions)
	assert.InDelta(t, 0.5, snap.SessionHitRate, 1e-9)
	assert.EqualValues(t, 2, m.StoreFallbacks("list"))
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NewMetrics()
		observability.NewMetrics()
	})
}

func TestZapLoggerMiddleware_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(observability.ZapLoggerMiddleware(logger, observability.NewMetrics()))
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/bad", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadRequest) })
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
}

func TestInitTracer_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := observability.InitTracer("", "sloth-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestZapLoggerMiddleware_TraceID(t *testing.T) {
	_, err := observability.InitTracer("", "sloth-test")
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	r := chi.NewRouter()
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(zap.New(core), nil))
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0].ContextMap()["trace_id"])
}
