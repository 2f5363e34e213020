package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	AdminUser     string
	AdminPassword string

	DatabaseURL string

	ListenAddr string

	// RedisAddr is the address of the shared summary cache. If empty,
	// the service falls back to an in-process cache, which only helps
	// single-instance deployments.
	RedisAddr     string
	RedisPassword string

	// CacheTTL bounds how stale a cached summary may be.
	CacheTTL time.Duration

	// IngestTimeout bounds the background persistence of an accepted
	// event. The client response never waits on this.
	IngestTimeout time.Duration
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		AdminUser:     getenv("APP_ADMIN_USER", "admin"),
		AdminPassword: getenv("APP_ADMIN_PASSWORD", "changeme"),
		DatabaseURL:   os.Getenv("APP_DATABASE_URL"),
		ListenAddr:    getenv("APP_LISTEN_ADDR", ":8080"),
		RedisAddr:     os.Getenv("APP_REDIS_ADDR"),
		RedisPassword: os.Getenv("APP_REDIS_PASSWORD"),
		CacheTTL:      300 * time.Second,
		IngestTimeout: 10 * time.Second,
	}

	if v := os.Getenv("APP_CACHE_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.CacheTTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("APP_INGEST_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.IngestTimeout = time.Duration(secs) * time.Second
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
