// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once at startup and treated as immutable
type Config struct {
	// Server
	Port        string
	CORSOrigins []string

	// Storage
	DatabaseURL   string
	DBMaxOpen     int
	DBMaxIdle     int
	DBMaxLifetime time.Duration
	RedisURL      string
	ScopeCacheTTL time.Duration

	// Auth
	CursorSecret string
	HS256Secret  string
	JWKSPath     string
	AuthIssuer   string

	// Feed
	FeedDefaultLimit int
	FeedMaxLimit     int
	AuthorCacheSize  int
	AuthorCacheTTL   time.Duration

	// View recorder
	RecorderWorkers   int
	RecorderQueueSize int
	RecorderTimeout   time.Duration
	RecorderRetries   int

	// Interaction stream
	InteractionsWSURL string
	ReconnectEvery    time.Duration

	// Rate limit
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from environment variables.
// All missing required variables are reported in a single error.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.CursorSecret = os.Getenv("CURSOR_SECRET")
	if cfg.CursorSecret == "" {
		missing = append(missing, "CURSOR_SECRET")
	}

	cfg.HS256Secret = os.Getenv("AUTH_HS256_SECRET")
	cfg.JWKSPath = os.Getenv("AUTH_JWKS")
	if cfg.HS256Secret == "" && cfg.JWKSPath == "" {
		missing = append(missing, "AUTH_HS256_SECRET or AUTH_JWKS")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Port = getEnvString("APPVIEW_PORT", "8081")
	cfg.CORSOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	cfg.DBMaxOpen = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdle = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.ScopeCacheTTL = getEnvDuration("SCOPE_CACHE_TTL", 30*time.Second)

	cfg.AuthIssuer = os.Getenv("AUTH_ISSUER")

	cfg.FeedDefaultLimit = getEnvInt("FEED_DEFAULT_LIMIT", 20)
	cfg.FeedMaxLimit = getEnvInt("FEED_MAX_LIMIT", 50)
	cfg.AuthorCacheSize = getEnvInt("AUTHOR_CACHE_SIZE", 4096)
	cfg.AuthorCacheTTL = getEnvDuration("AUTHOR_CACHE_TTL", time.Minute)

	cfg.RecorderWorkers = getEnvInt("VIEW_RECORDER_WORKERS", 4)
	cfg.RecorderQueueSize = getEnvInt("VIEW_RECORDER_QUEUE", 1024)
	cfg.RecorderTimeout = getEnvDuration("VIEW_RECORDER_TIMEOUT", 5*time.Second)
	cfg.RecorderRetries = getEnvInt("VIEW_RECORDER_RETRIES", 3)

	cfg.InteractionsWSURL = os.Getenv("INTERACTIONS_WS_URL")
	cfg.ReconnectEvery = getEnvDuration("INTERACTIONS_RECONNECT_EVERY", 5*time.Second)

	cfg.RateLimitRequests = getEnvInt("RATE_LIMIT_REQUESTS", 100)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)

	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "json")

	if cfg.FeedDefaultLimit < 1 || cfg.FeedMaxLimit < cfg.FeedDefaultLimit {
		return nil, fmt.Errorf("invalid feed limits: default %d, max %d", cfg.FeedDefaultLimit, cfg.FeedMaxLimit)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
