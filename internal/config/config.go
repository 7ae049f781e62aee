// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config holds everything the service needs at boot. DatabaseURL selects the
// postgres store; SQLitePath the embedded store; with neither set the service
// runs on the in-memory store.
type Config struct {
	Addr        string
	DatabaseURL string
	SQLitePath  string
	Currency    string
	LogLevel    slog.Leveler
	LogFormat   string
	DevSeed     bool
}

// Load reads configuration from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Addr:        envOr("ADDR", ":8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		Currency:    strings.ToUpper(envOr("CURRENCY", "USD")),
		LogLevel:    parseLogLevel(os.Getenv("LOG_LEVEL")),
		LogFormat:   strings.ToLower(envOr("LOG_FORMAT", "json")),
		DevSeed:     parseBool(os.Getenv("DEV_SEED")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("config: log format %q must be json or text", c.LogFormat)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("config: currency %q must be a 3-letter ISO code", c.Currency)
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		return fmt.Errorf("config: DATABASE_URL and SQLITE_PATH are mutually exclusive")
	}
	return nil
}

// Logger builds the slog logger configured by LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
