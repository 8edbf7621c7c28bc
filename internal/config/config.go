package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string

	// Local storage
	DatabasePath string
	Timezone     string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Sessions
	SessionTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	UseSupabase        bool

	// Gemini
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	// KeyringLookup reads the Gemini key from the OS keyring when
	// GEMINI_API_KEY is empty.
	KeyringLookup bool

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Focus timer
	FocusDuration time.Duration
	BreakDuration time.Duration

	// Notifications
	TelegramToken string

	// Recurring transactions (cron spec with seconds)
	RecurringSchedule string

	// Dev mode
	DevTools bool // DEV_TOOLS=true exposes POST /v1/finance/seed
}

var defaults = map[string]any{
	"PORT":                        8080,
	"LOG_LEVEL":                   "info",
	"CORS_ORIGINS":                "http://localhost:5173",
	"DATABASE_PATH":               "sloth.db",
	"TIMEZONE":                    "America/Sao_Paulo",
	"HTTP_TIMEOUT":                10 * time.Second,
	"MAX_RETRIES":                 3,
	"INITIAL_BACKOFF":             100 * time.Millisecond,
	"MAX_CONCURRENCY":             8,
	"SESSION_TTL":                 12 * time.Hour,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"SUPABASE_URL":                "",
	"SUPABASE_ANON_KEY":           "",
	"SUPABASE_SERVICE_ROLE_KEY":   "",
	"USE_SUPABASE":                false,
	"GEMINI_API_KEY":              "",
	"GEMINI_MODEL":                "gemini-2.5-flash",
	"GEMINI_BASE_URL":             "https://generativelanguage.googleapis.com",
	"KEYRING_LOOKUP":              true,
	"JWT_SECRET":                  "sloth-default-dev-secret-change-me",
	"JWT_ACCESS_TTL":              24 * time.Hour,
	"FOCUS_DURATION":              25 * time.Minute,
	"BREAK_DURATION":              5 * time.Minute,
	"TELEGRAM_TOKEN":              "",
	"RECURRING_SCHEDULE":          "0 5 0 * * *",
	"DEV_TOOLS":                   false,
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already-populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Port:        v.GetInt("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),

		DatabasePath: v.GetString("DATABASE_PATH"),
		Timezone:     v.GetString("TIMEZONE"),

		HTTPTimeout: v.GetDuration("HTTP_TIMEOUT"),

		MaxRetries:     v.GetInt("MAX_RETRIES"),
		InitialBackoff: v.GetDuration("INITIAL_BACKOFF"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		SessionTTL: v.GetDuration("SESSION_TTL"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		SupabaseURL:        v.GetString("SUPABASE_URL"),
		SupabaseAnonKey:    v.GetString("SUPABASE_ANON_KEY"),
		SupabaseServiceKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
		UseSupabase:        v.GetBool("USE_SUPABASE"),

		GeminiAPIKey:  v.GetString("GEMINI_API_KEY"),
		GeminiModel:   v.GetString("GEMINI_MODEL"),
		GeminiBaseURL: strings.TrimRight(v.GetString("GEMINI_BASE_URL"), "/"),
		KeyringLookup: v.GetBool("KEYRING_LOOKUP"),

		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTAccessTTL: v.GetDuration("JWT_ACCESS_TTL"),

		FocusDuration: v.GetDuration("FOCUS_DURATION"),
		BreakDuration: v.GetDuration("BREAK_DURATION"),

		TelegramToken: v.GetString("TELEGRAM_TOKEN"),

		RecurringSchedule: v.GetString("RECURRING_SCHEDULE"),

		DevTools: v.GetBool("DEV_TOOLS"),
	}
}

// RemoteEnabled reports whether the Supabase finance store should be used.
func (c *Config) RemoteEnabled() bool {
	return c.UseSupabase && c.SupabaseURL != ""
}

// Location resolves Timezone, falling back to the process local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
