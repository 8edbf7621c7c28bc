package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/boddenberg/sloth-organize-bfa/internal/config"
	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/handler"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/cache"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/credential"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/genai"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/localstore"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/notify"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/persistence"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/resilience"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/scheduler"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/supabase"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
	"github.com/boddenberg/sloth-organize-bfa/internal/service"
	"github.com/boddenberg/sloth-organize-bfa/internal/session"
)

const subtasksCacheTTL = 30 * time.Minute

func main() {
	if len(os.Args) > 1 && os.Args[1] == "set-ai-key" {
		if err := setAIKey(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}
	serve()
}

// setAIKey stores the Gemini key in the OS keyring, reading it without echo.
func setAIKey() error {
	fmt.Fprint(os.Stderr, "Gemini API key: ")
	var key string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		key = string(raw)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read key: %w", err)
		}
		key = line
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if err := credential.Set(credential.GeminiAPIKey, key); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "key stored in the system keyring")
	return nil
}

func serve() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()
	loc := cfg.Location()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("database_path", cfg.DatabasePath),
		zap.String("timezone", loc.String()),
		zap.Bool("use_supabase", cfg.RemoteEnabled()),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("focus", cfg.FocusDuration),
		zap.Duration("break", cfg.BreakDuration),
		zap.Bool("dev_tools", cfg.DevTools),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "sloth-organize-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Local storage ---
	kv, err := localstore.NewSQLiteKV(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open local store", zap.Error(err))
	}
	defer kv.Close()

	users := localstore.NewUserDirectory(kv, logger)
	taskRepo := localstore.NewTaskCollection(kv, logger)
	settingsRepo := localstore.NewSettingsCollection(kv, logger)
	localFinance := localstore.NewFinanceCollection(kv, logger)

	checks := []handler.HealthCheck{{Name: "sqlite", Required: true, Ping: kv.Ping}}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Remote finance store (optional) ---
	var remote port.FinanceStore
	if cfg.RemoteEnabled() {
		logger.Info("using Supabase as remote finance store", zap.String("supabase_url", cfg.SupabaseURL))
		supabaseClient := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", logger),
			resilienceCfg,
			logger,
		)
		remote = supabaseClient
		checks = append(checks, handler.HealthCheck{Name: "supabase", Ping: supabaseClient.Ping})
	} else {
		logger.Info("finance data kept in the local store only")
	}
	financeStore := persistence.NewFinanceStore(localFinance, remote, loc, metrics, logger)

	// --- Generative AI ---
	apiKey, source := credential.Resolve(cfg.GeminiAPIKey, cfg.KeyringLookup, credential.GeminiAPIKey, nil)
	aiClient := genai.NewClient(
		httpClient,
		cfg.GeminiBaseURL,
		cfg.GeminiModel,
		apiKey,
		resilience.NewCircuitBreaker("gemini", logger),
		resilienceCfg,
		metrics,
		logger,
	)
	if aiClient.Available() {
		logger.Info("AI assistant enabled", zap.String("model", cfg.GeminiModel), zap.String("key_source", source))
	} else {
		logger.Warn("AI assistant disabled: no Gemini API key")
	}
	checks = append(checks, handler.HealthCheck{Name: "gemini", Ping: func(context.Context) error {
		if !aiClient.Available() {
			return &domain.ErrUnavailable{Service: "gemini"}
		}
		return nil
	}})

	// --- Notifications ---
	var pusher notify.Pusher = notify.Noop{}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, "", httpClient, logger)
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			pusher = tg
		}
	}

	// --- Services ---
	ai := service.NewAIGateway(aiClient, cfg.MaxConcurrency, loc, metrics, logger)
	timerSvc := service.NewTimerService(cfg.FocusDuration, cfg.BreakDuration, pusher, metrics, logger)

	sessions := session.NewManager(session.Config{
		TTL:      cfg.SessionTTL,
		Records:  localstore.NewSessionRecords(kv, logger),
		Tasks:    taskRepo,
		Settings: settingsRepo,
		NewTimer: timerSvc.NewEngine,
		Location: loc,
		Metrics:  metrics,
		Logger:   logger,
	})
	defer sessions.Shutdown()

	authSvc := service.NewAuthService(users, sessions, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	financeSvc := service.NewFinanceService(financeStore, users, loc, logger)
	subtasksCache := cache.New[*domain.SubtasksResult](subtasksCacheTTL)
	defer subtasksCache.Close()

	// --- Recurring transactions ---
	jobs := scheduler.New(loc, logger)
	if _, err := jobs.Add("recurring-transactions", cfg.RecurringSchedule, func(ctx context.Context) error {
		_, err := financeSvc.MaterializeRecurring(ctx)
		return err
	}); err != nil {
		logger.Fatal("invalid RECURRING_SCHEDULE", zap.String("spec", cfg.RecurringSchedule), zap.Error(err))
	}
	jobs.Start()

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Auth:        authSvc,
		Sessions:    sessions,
		Tasks:       service.NewTaskService(taskRepo, ai, logger),
		Settings:    service.NewSettingsService(settingsRepo, logger),
		Timer:       timerSvc,
		Finance:     financeSvc,
		Assistant:   service.NewAssistant(ai, subtasksCache, metrics, logger),
		Checks:      checks,
		CORSOrigins: cfg.CORSOrigins,
		DevTools:    cfg.DevTools,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	jobs.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
