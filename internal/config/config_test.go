package config

import (
	"log/slog"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("want default addr :8080, got %q", cfg.Addr)
	}
	if cfg.Currency != "USD" {
		t.Fatalf("want default currency USD, got %q", cfg.Currency)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("want default format json, got %q", cfg.LogFormat)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("CURRENCY", "php")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("DEV_SEED", "true")
	t.Setenv("SQLITE_PATH", "/tmp/finance.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Currency != "PHP" || !cfg.DevSeed {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.SQLitePath != "/tmp/finance.db" {
		t.Fatalf("sqlite path not applied: %q", cfg.SQLitePath)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("want debug level, got %v", cfg.LogLevel)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{Addr: "", Currency: "USD", LogFormat: "json"},
		{Addr: ":8080", Currency: "USD", LogFormat: "xml"},
		{Addr: ":8080", Currency: "DOLLARS", LogFormat: "json"},
		{Addr: ":8080", Currency: "USD", LogFormat: "json", DatabaseURL: "postgres://x", SQLitePath: "x.db"},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
