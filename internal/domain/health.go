package domain

// ============================================================
// Health API Responses
// ============================================================

// HealthStatus is returned by GET /healthz and GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
	Metrics  *MetricsSnapshot `json:"metrics,omitempty"`
}

// ServiceHealth represents the health of an individual collaborator.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// MetricsSnapshot is a human-readable digest of the Prometheus counters.
type MetricsSnapshot struct {
	StoreFallbacks   int64   `json:"storeFallbacks"`
	ExternalErrors   int64   `json:"externalErrors"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	TimerCompletions int64   `json:"timerCompletions"`
	SessionHitRate   float64 `json:"sessionHitRate"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
