package config

import (
	"os"
	"strconv"
)

// Config contains configuration for the vibelive commands
type Config struct {
	SentryDSN string // Sentry DSN for error reporting (optional)
	MaxDepth  int    // expansion reference-depth ceiling (0 = engine default)
	MaxEvents int    // expansion event-count ceiling (0 = engine default)
}

// FromEnv builds a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		SentryDSN: os.Getenv("VIBELIVE_SENTRY_DSN"),
		MaxDepth:  envInt("VIBELIVE_MAX_DEPTH"),
		MaxEvents: envInt("VIBELIVE_MAX_EVENTS"),
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
