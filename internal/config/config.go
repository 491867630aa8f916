// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as the Telegram transport, the identity allow-list, rate limiting,
// caching, collaborator credentials, logging, and observability.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// TelegramConfig defines the inbound transport settings.
//
// When WebhookURL is empty the bot runs in long-poll mode; otherwise the
// webhook is registered at startup and updates arrive on the HTTP server's
// /webhook route, validated against WebhookSecret.
type TelegramConfig struct {
	Token         string        // TELEGRAM_BOT_TOKEN (required)
	WebhookURL    string        // TELEGRAM_WEBHOOK_URL (empty => long poll)
	WebhookSecret string        // TELEGRAM_WEBHOOK_SECRET
	PollTimeout   time.Duration // TELEGRAM_POLL_TIMEOUT
}

// CacheConfig selects and sizes the response cache backend.
type CacheConfig struct {
	Backend  string // CACHE_BACKEND: "memory" (default) or "redis"
	Capacity int    // CACHE_CAPACITY: max entries for the memory backend
	RedisURL string // REDIS_URL (only for the redis backend)
}

// CollaboratorConfig carries per-feature credentials and endpoints for the
// external services the handlers call. Any of these may be empty; the
// corresponding feature then reports itself as unconfigured instead of
// failing at startup.
type CollaboratorConfig struct {
	OpenAIAPIKey  string // OPENAI_API_KEY
	OpenAIBaseURL string // OPENAI_BASE_URL (OpenAI-compatible gateway)

	HomeAssistantURL   string // HOME_ASSISTANT_URL
	HomeAssistantToken string // HOME_ASSISTANT_TOKEN

	TeslaAPIURL    string // TESLA_API_URL
	TeslaToken     string // TESLA_REFRESH_TOKEN
	TeslaVehicleID string // TESLA_VEHICLE_ID

	AlphaVantageKey string // ALPHA_VANTAGE_API_KEY
	NewsAPIKey      string // NEWS_API_KEY
	GiphyAPIKey     string // GIPHY_API_KEY

	N8NURL   string // N8N_URL
	N8NToken string // N8N_TOKEN
}

// CORSConfig defines Cross-Origin Resource Sharing settings for the
// operational HTTP surface (health, metrics).
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "telepilot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Host              string        // listen host for the HTTP surface
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Admission
	AllowedUserIDs []int64       // ALLOWED_USER_IDS; empty => open access
	RateLimit      int           // max admitted requests per window (>= 1)
	RateWindow     time.Duration // sliding window length (default 60s)

	// App
	DBPath   string   // SQLite path
	FeedURLs []string // RSS_FEEDS; RSS subscriptions served by /feeds
	Cache    CacheConfig

	// Transport and collaborators
	Telegram     TelegramConfig
	Collaborator CollaboratorConfig

	// Web protection
	CORS CORSConfig

	// Observability
	OTEL OTELConfig
}

// OpenAccess reports whether the allow-list is empty and every identity is
// therefore admitted. The caller is expected to log this loudly at startup.
func (c Config) OpenAccess() bool { return len(c.AllowedUserIDs) == 0 }

// AdminID returns the administrator identity: by convention the first entry
// of the allow-list. The second return is false when no admin is configured.
func (c Config) AdminID() (int64, bool) {
	if len(c.AllowedUserIDs) == 0 {
		return 0, false
	}
	return c.AllowedUserIDs[0], true
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	allowed, err := parseUserIDs(getenv("ALLOWED_USER_IDS", ""))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		// Server
		Host:              getenv("HOST", "0.0.0.0"),
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Admission
		AllowedUserIDs: allowed,
		RateLimit:      getint("RATE_LIMIT", 10),
		RateWindow:     getdur("RATE_WINDOW", 60*time.Second),

		// App
		DBPath:   getenv("DB_PATH", "telepilot.db"),
		FeedURLs: splitCSV(getenv("RSS_FEEDS", "")),
		Cache: CacheConfig{
			Backend:  strings.ToLower(getenv("CACHE_BACKEND", "memory")),
			Capacity: getint("CACHE_CAPACITY", 1024),
			RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),
		},

		// Transport
		Telegram: TelegramConfig{
			Token:         getenv("TELEGRAM_BOT_TOKEN", ""),
			WebhookURL:    getenv("TELEGRAM_WEBHOOK_URL", ""),
			WebhookSecret: getenv("TELEGRAM_WEBHOOK_SECRET", ""),
			PollTimeout:   getdur("TELEGRAM_POLL_TIMEOUT", 10*time.Second),
		},

		// Collaborators
		Collaborator: CollaboratorConfig{
			OpenAIAPIKey:       getenv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:      getenv("OPENAI_BASE_URL", "https://api.openai.com"),
			HomeAssistantURL:   getenv("HOME_ASSISTANT_URL", ""),
			HomeAssistantToken: getenv("HOME_ASSISTANT_TOKEN", ""),
			TeslaAPIURL:        getenv("TESLA_API_URL", ""),
			TeslaToken:         getenv("TESLA_REFRESH_TOKEN", ""),
			TeslaVehicleID:     getenv("TESLA_VEHICLE_ID", ""),
			AlphaVantageKey:    getenv("ALPHA_VANTAGE_API_KEY", ""),
			NewsAPIKey:         getenv("NEWS_API_KEY", ""),
			GiphyAPIKey:        getenv("GIPHY_API_KEY", ""),
			N8NURL:             getenv("N8N_URL", ""),
			N8NToken:           getenv("N8N_TOKEN", ""),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "telepilot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateLimit < 1 {
		return cfg, errors.New("RATE_LIMIT must be >= 1")
	}
	if cfg.RateWindow <= 0 {
		return cfg, errors.New("RATE_WINDOW must be a positive duration")
	}
	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return cfg, errors.New("CACHE_BACKEND must be one of: memory, redis")
	}
	if cfg.Cache.Capacity < 1 {
		return cfg, errors.New("CACHE_CAPACITY must be >= 1")
	}
	if cfg.Telegram.WebhookURL != "" && strings.TrimSpace(cfg.Telegram.WebhookSecret) == "" {
		return cfg, errors.New("TELEGRAM_WEBHOOK_SECRET is required in webhook mode")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseUserIDs accepts the allow-list in either of the two formats the
// deployment tooling produces: a comma-separated list ("42, 7") or a JSON
// array ("[42, 7]"). An empty string yields an empty (open-access) list.
func parseUserIDs(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var ids []int64
		if err := json.Unmarshal([]byte(s), &ids); err != nil {
			return nil, errors.New("ALLOWED_USER_IDS must be a JSON array of integers or a comma-separated list")
		}
		return ids, nil
	}
	var ids []int64
	for _, p := range strings.Split(s, ",") {
		t := strings.TrimSpace(p)
		if t == "" {
			continue
		}
		id, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, errors.New("ALLOWED_USER_IDS must be a JSON array of integers or a comma-separated list")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
