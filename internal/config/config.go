// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// CheckoutTimeout bounds a single checkout/return transaction including
	// its conflict retries. Defaults to 5s. Set CHECKOUT_TIMEOUT to a Go
	// duration string (e.g. "2s", "500ms") to override.
	CheckoutTimeout time.Duration

	// CheckoutRetries is the number of times a checkout/return transaction
	// is re-run after losing a serialization race before the caller sees a
	// conflict error. Defaults to 3. Set CHECKOUT_RETRIES to override.
	CheckoutRetries uint64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or
// describing the first malformed optional value.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	timeout, err := time.ParseDuration(getEnv("CHECKOUT_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CHECKOUT_TIMEOUT: %w", err)
	}
	cfg.CheckoutTimeout = timeout

	retries, err := strconv.ParseUint(getEnv("CHECKOUT_RETRIES", "3"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid CHECKOUT_RETRIES: %w", err)
	}
	cfg.CheckoutRetries = retries

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
