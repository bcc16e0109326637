package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	// RefdataPath points at a JSON or YAML reference data file. Empty uses the embedded dataset.
	RefdataPath     string
	ApplyTax        bool
	TaxDisplayLabel string
	Currency        string
	CartSessionTTL  time.Duration

	OrderSinkURL         string
	OrderSinkToken       string
	OrderSinkTimeout     time.Duration
	OrderSinkMaxAttempts int
	OrderRateLimitMax    int
	OrderRateLimitWindow time.Duration
	// APIRateLimit uses the "<limit>-<period>" format, e.g. "120-M". Empty disables it.
	APIRateLimit string
	// BodyLimitBytes caps JSON request bodies on the API routes. Zero disables the cap.
	BodyLimitBytes  int64
	SecurityHeaders bool

	LogFormat          string
	LogLevel           string
	MetricsNamespace   string
	MetricsEnabled     bool
	MetricsBucketsMS   string
	TracingEnabled     bool
	TracingExporter    string
	OTLPEndpoint       string
	TracingSampleRatio float64
	RedisPingTimeout   time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		RefdataPath:     strings.TrimSpace(k.String("REFDATA_PATH")),
		ApplyTax:        parseBool(k.String("PRICING_APPLY_TAX"), false),
		TaxDisplayLabel: valueOrDefault(k.String("PRICING_TAX_DISPLAY_LABEL"), "7.5%"),
		Currency:        strings.ToUpper(valueOrDefault(k.String("PRICING_CURRENCY"), "NGN")),
		CartSessionTTL:  parseDuration(k.String("CART_SESSION_TTL"), "168h"),

		OrderSinkURL:         strings.TrimSpace(k.String("ORDER_SINK_URL")),
		OrderSinkToken:       strings.TrimSpace(k.String("ORDER_SINK_TOKEN")),
		OrderSinkTimeout:     parseDuration(k.String("ORDER_SINK_TIMEOUT"), "10s"),
		OrderSinkMaxAttempts: parseInt(k.String("ORDER_SINK_MAX_ATTEMPTS"), 3),
		OrderRateLimitMax:    parseInt(k.String("ORDER_RATE_LIMIT_MAX"), 5),
		OrderRateLimitWindow: parseDuration(k.String("ORDER_RATE_LIMIT_WINDOW"), "1m"),
		APIRateLimit:         strings.TrimSpace(valueOrDefault(k.String("API_RATE_LIMIT"), "300-M")),
		BodyLimitBytes:       int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 64<<10)),
		SecurityHeaders:      parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),

		LogFormat:          valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:   valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "storefront"),
		MetricsEnabled:     parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsBucketsMS:   k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:     parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:    valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:       strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampleRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		RedisPingTimeout:   parseDuration(k.String("HEALTH_READY_REDIS_TIMEOUT"), "300ms"),
	}

	if strings.EqualFold(cfg.APIRateLimit, "off") {
		cfg.APIRateLimit = ""
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.OrderSinkURL != "" {
		u, err := url.Parse(cfg.OrderSinkURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("ORDER_SINK_URL is not a valid URL: %q", cfg.OrderSinkURL)
		}
	}
	if cfg.CartSessionTTL <= 0 {
		return nil, errors.New("CART_SESSION_TTL must be positive")
	}
	if cfg.BodyLimitBytes < 0 {
		return nil, errors.New("HTTP_BODY_LIMIT_BYTES must not be negative")
	}
	if cfg.OrderSinkMaxAttempts < 1 {
		cfg.OrderSinkMaxAttempts = 1
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return parsed
	}
	return fallback
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
