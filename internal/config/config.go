package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"invoiceweb/portal/internal/storage"
)

const defaultBaseURL = "http://localhost:5000/api"

// Config contains runtime configuration values.
type Config struct {
	Environment string
	ServiceName string

	APIBaseURL     string
	APITimeout     time.Duration
	UseMock        bool
	MockLatency    time.Duration
	MockSecret     string
	RateLimitRPS   float64
	RateLimitBurst int

	SessionStore  string
	SessionFile   string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	TelemetryEndpoint string
	TelemetryInsecure bool
}

// Load reads configuration from the environment, after a local .env file when
// one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:       getEnv("APP_ENV", "production"),
		ServiceName:       getEnv("SERVICE_NAME", "invoice-portal"),
		APIBaseURL:        strings.TrimSpace(getEnv("PORTAL_API_BASE_URL", defaultBaseURL)),
		APITimeout:        getDuration("PORTAL_API_TIMEOUT", 10*time.Second),
		UseMock:           getBool("PORTAL_USE_MOCK", false),
		MockLatency:       getDuration("PORTAL_MOCK_LATENCY", 300*time.Millisecond),
		MockSecret:        getEnv("PORTAL_MOCK_SECRET", ""),
		RateLimitRPS:      getFloat("PORTAL_RATE_LIMIT_RPS", 0),
		RateLimitBurst:    getInt("PORTAL_RATE_LIMIT_BURST", 5),
		SessionStore:      strings.ToLower(getEnv("SESSION_STORE", storage.KindFile)),
		SessionFile:       os.Getenv("SESSION_FILE"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		RedisPrefix:       getEnv("REDIS_PREFIX", "invoice-portal:"),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if err := storage.CheckKind(cfg.SessionStore); err != nil {
		return Config{}, fmt.Errorf("SESSION_STORE: %w", err)
	}
	if cfg.SessionStore == storage.KindPostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required when SESSION_STORE=postgres")
	}
	if cfg.MockLatency < 0 {
		cfg.MockLatency = 0
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}
