package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/service"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
)

var tracer = otel.Tracer("handler")

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one collaborator. A failing Required check makes
// the process unready; an optional one only degrades /healthz.
type HealthCheck struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// Services bundles what the router needs.
type Services struct {
	Auth      *service.AuthService
	Sessions  *session.Manager
	Tasks     *service.TaskService
	Settings  *service.SettingsService
	Timer     *service.TimerService
	Finance   *service.FinanceService
	Assistant *service.Assistant

	Checks      []HealthCheck
	CORSOrigins []string
	// DevTools exposes POST /v1/finance/seed.
	DevTools bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: svc.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Checks, metrics))
	r.Get("/readyz", readyzHandler(svc.Checks, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if svc.Auth == nil {
		return r
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 🔐 Autenticação
		// =============================================
		r.Post("/auth/register", authRegisterHandler(svc.Auth, logger))
		r.Post("/auth/login", authLoginHandler(svc.Auth, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Auth, logger))
			r.Post("/auth/logout", authLogoutHandler(svc.Auth, logger))
			r.Get("/auth/me", authMeHandler(svc.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(SessionMiddleware(svc.Sessions, logger))

				// =============================================
				// 2. ⚙️ Preferências
				// =============================================
				r.Get("/settings", getSettingsHandler(svc.Settings))
				r.Put("/settings", updateSettingsHandler(svc.Settings, logger))

				// =============================================
				// 3. ✅ Tarefas
				// =============================================
				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", listTasksHandler(svc.Tasks, logger))
					r.Post("/", createTaskHandler(svc.Tasks, logger))
					r.Delete("/", resetTasksHandler(svc.Tasks, logger))
					r.Get("/stats", taskStatsHandler(svc.Tasks))
					r.Post("/reorder", reorderTasksHandler(svc.Tasks, logger))
					r.Post("/clear-completed", clearCompletedHandler(svc.Tasks, logger))
					r.Post("/from-voice", createTaskFromVoiceHandler(svc.Tasks, logger))

					r.Route("/{taskId}", func(r chi.Router) {
						r.Patch("/", updateTaskHandler(svc.Tasks, logger))
						r.Delete("/", deleteTaskHandler(svc.Tasks, logger))
						r.Post("/toggle", toggleTaskHandler(svc.Tasks, logger))
						r.Post("/snooze", snoozeTaskHandler(svc.Tasks, logger))
						r.Post("/enhance", enhanceTaskHandler(svc.Tasks, logger))
						r.Post("/subtasks", addSubtaskHandler(svc.Tasks, logger))
						r.Post("/subtasks/{subtaskId}/toggle", toggleSubtaskHandler(svc.Tasks, logger))
						r.Delete("/subtasks/{subtaskId}", deleteSubtaskHandler(svc.Tasks, logger))
					})
				})

				// =============================================
				// 4. 💰 Finanças
				// =============================================
				r.Route("/finance", func(r chi.Router) {
					r.Get("/transactions", listTransactionsHandler(svc.Finance, logger))
					r.Post("/transactions", addTransactionHandler(svc.Finance, logger))
					r.Patch("/transactions/{txId}", updateTransactionHandler(svc.Finance, logger))
					r.Delete("/transactions/{txId}", deleteTransactionHandler(svc.Finance, logger))
					r.Get("/months/{year}/{month}", monthViewHandler(svc.Finance, logger))
					r.Get("/years/{year}", yearViewHandler(svc.Finance, logger))
					if svc.DevTools {
						r.Post("/seed", seedFinanceHandler(svc.Finance, logger))
					}
				})

				// =============================================
				// 5. ⏱️ Pomodoro
				// =============================================
				r.Get("/timer", getTimerHandler(svc.Timer))
				r.Post("/timer/{action}", timerCommandHandler(svc.Timer, logger))

				// =============================================
				// 6. 🤖 Assistente IA
				// =============================================
				r.Route("/ai", func(r chi.Router) {
					r.Post("/prioritize", prioritizeHandler(svc.Assistant, logger))
					r.Post("/subtasks", subtasksHandler(svc.Assistant, logger))
					r.Post("/timebox", timeBoxHandler(svc.Assistant, logger))
					r.Post("/coach", coachHandler(svc.Assistant, logger))
					r.Post("/insights", insightsHandler(svc.Assistant, logger))
					r.Post("/voice", voiceHandler(svc.Assistant, logger))
				})
			})
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func runChecks(ctx context.Context, checks []HealthCheck) ([]domain.ServiceHealth, string) {
	now := time.Now().Format(time.RFC3339)
	services := []domain.ServiceHealth{
		{Name: "bfa-api", Status: "healthy", LastChecked: now},
	}
	overall := "healthy"
	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		start := time.Now()
		err := c.Ping(cctx)
		cancel()

		status := "healthy"
		if err != nil {
			status = "degraded"
			if c.Required {
				status = "unhealthy"
			}
		}
		switch {
		case status == "unhealthy":
			overall = "unhealthy"
		case status == "degraded" && overall == "healthy":
			overall = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name:        c.Name,
			Status:      status,
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		})
	}
	return services, overall
}

func healthzHandler(checks []HealthCheck, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, overall := runChecks(r.Context(), checks)
		status := http.StatusOK
		if overall == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, domain.HealthStatus{
			Status:   overall,
			Services: services,
			Metrics:  metrics.Snapshot(),
		})
	}
}

func readyzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checks {
			if !c.Required {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := c.Ping(ctx)
			cancel()
			if err != nil {
				logger.Warn("readiness check failed", zap.String("check", c.Name), zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "check": c.Name})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
