// Package config loads recur-sync settings from environment variables with
// defaults and validation: the local control API server, logging, the queue
// database, the remote Recur API, connectivity probing, the sync schedule,
// rate limiting and observability.
package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RemoteConfig points at the Recur REST API the queue replays into.
type RemoteConfig struct {
	BaseURL string        // REMOTE_BASE_URL
	Timeout time.Duration // REMOTE_TIMEOUT, per request
	Token   string        // REMOTE_TOKEN, bearer; may be empty
	RPS     float64       // REMOTE_RPS, outbound pacing (0 = off)
	Burst   int           // REMOTE_BURST
}

// ConnectivityConfig controls health probing.
type ConnectivityConfig struct {
	ProbeInterval time.Duration // CONNECTIVITY_PROBE_INTERVAL
	ProbeTimeout  time.Duration // CONNECTIVITY_PROBE_TIMEOUT
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	// Queue
	DBPath            string // SQLite file backing the offline queue
	ClientID          string // identifies this device in idempotency records
	OfflineMaxRetries int    // default per-action retry ceiling
	SyncSchedule      string // cron spec for the periodic pass; "" disables

	Remote       RemoteConfig
	Connectivity ConnectivityConfig

	// Inbound rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration

	// Observability
	OTEL OTELConfig
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
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DBPath:            getenv("DB_PATH", "recur-sync.db"),
		ClientID:          strings.TrimSpace(getenv("CLIENT_ID", "local")),
		OfflineMaxRetries: getint("OFFLINE_MAX_RETRIES", 3),
		SyncSchedule:      strings.TrimSpace(getenvAllowEmpty("SYNC_SCHEDULE", "@every 5m")),

		Remote: RemoteConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(getenv("REMOTE_BASE_URL", "http://localhost:3000/api")), "/"),
			Timeout: getdur("REMOTE_TIMEOUT", 15*time.Second),
			Token:   getenv("REMOTE_TOKEN", ""),
			RPS:     getfloat("REMOTE_RPS", 10),
			Burst:   getint("REMOTE_BURST", 5),
		},
		Connectivity: ConnectivityConfig{
			ProbeInterval: getdur("CONNECTIVITY_PROBE_INTERVAL", 15*time.Second),
			ProbeTimeout:  getdur("CONNECTIVITY_PROBE_TIMEOUT", 5*time.Second),
		},

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "recur-sync"),
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
	if strings.EqualFold(cfg.SyncSchedule, "off") {
		cfg.SyncSchedule = ""
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.ClientID == "" {
		return cfg, errors.New("CLIENT_ID must not be empty")
	}
	if cfg.OfflineMaxRetries < 1 {
		return cfg, errors.New("OFFLINE_MAX_RETRIES must be >= 1")
	}
	if u, err := url.Parse(cfg.Remote.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cfg, errors.New("REMOTE_BASE_URL must be an absolute http(s) URL")
	}
	if cfg.Remote.Timeout <= 0 {
		return cfg, errors.New("REMOTE_TIMEOUT must be > 0")
	}
	if cfg.Remote.RPS < 0 {
		return cfg, errors.New("REMOTE_RPS must be >= 0")
	}
	if cfg.Remote.Burst < 1 {
		return cfg, errors.New("REMOTE_BURST must be >= 1")
	}
	if cfg.Connectivity.ProbeInterval <= 0 || cfg.Connectivity.ProbeTimeout <= 0 {
		return cfg, errors.New("CONNECTIVITY_PROBE_INTERVAL and CONNECTIVITY_PROBE_TIMEOUT must be > 0")
	}
	if cfg.Connectivity.ProbeTimeout > cfg.Connectivity.ProbeInterval {
		return cfg, errors.New("CONNECTIVITY_PROBE_TIMEOUT must not exceed CONNECTIVITY_PROBE_INTERVAL")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

// getenvAllowEmpty returns def only when k is unset, so "" can switch a
// feature off.
func getenvAllowEmpty(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
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
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
