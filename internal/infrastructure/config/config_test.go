package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iho/beanledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.StorageDriver != config.StoragePostgres {
		t.Fatalf("expected postgres storage by default, got %q", cfg.StorageDriver)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.EventPublisher != config.PublisherLog || cfg.KafkaDraftsTopic != "" {
		t.Fatalf("expected log publisher and no draft consumer, got %q / %q", cfg.EventPublisher, cfg.KafkaDraftsTopic)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("AUTH_JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("EVENT_PUBLISHER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_DRAFTS_TOPIC", "ledger.drafts")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.StorageDriver != config.StorageMemory {
		t.Fatalf("expected memory storage, got %s", cfg.StorageDriver)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("expected two kafka brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsInconsistentSettings(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown storage driver",
			env:  map[string]string{"STORAGE_DRIVER": "sqlite"},
		},
		{
			name: "auth without secret",
			env:  map[string]string{"AUTH_ENABLED": "true", "AUTH_JWT_SECRET": ""},
		},
		{
			name: "redis publisher without redis",
			env:  map[string]string{"EVENT_PUBLISHER": "redis", "REDIS_URL": ""},
		},
		{
			name: "unknown publisher",
			env:  map[string]string{"EVENT_PUBLISHER": "carrier-pigeon"},
		},
		{
			name: "non-positive rate limit",
			env:  map[string]string{"RATE_LIMIT_RPS": "-1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	original, had := os.LookupEnv("LOG_FORMAT")
	_ = os.Unsetenv("LOG_FORMAT")
	t.Cleanup(func() {
		if had {
			_ = os.Setenv("LOG_FORMAT", original)
		} else {
			_ = os.Unsetenv("LOG_FORMAT")
		}
	})
	t.Setenv("LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("LOG_FORMAT=console\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.LogFormat != "console" {
		t.Fatalf("expected LOG_FORMAT from file, got %q", cfg.LogFormat)
	}

	if cfg.LogLevel != "warn" {
		t.Fatalf("expected environment to win over file, got %q", cfg.LogLevel)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}
