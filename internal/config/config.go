// Package config centralizes environment-driven configuration.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the tracker server.
// Values are loaded from environment variables, with a .env file as an
// optional local convenience.
type Config struct {
	Port        string
	DatabaseURL string // empty -> in-memory store
	RedisURL    string // empty -> no cache layer
	CacheTTL    time.Duration
}

// Load reads configuration from the environment. A missing .env file is
// fine; in production only OS environment variables are expected.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "err", err)
	}

	cfg := Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		CacheTTL:    30 * time.Second,
	}

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.CacheTTL = d
		} else {
			slog.Warn("invalid CACHE_TTL, using default", "value", ttl)
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
