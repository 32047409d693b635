package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOCK_TTL", "")
	t.Setenv("DEFAULT_CURRENCY", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.UsesPostgres() {
		t.Fatalf("expected in-memory storage when DATABASE_URL is empty")
	}
	if cfg.LockTTL != 10*time.Second {
		t.Fatalf("expected default lock ttl, got %s", cfg.LockTTL)
	}
	if cfg.LockMaxAttempts != 20 {
		t.Fatalf("expected default lock attempts, got %d", cfg.LockMaxAttempts)
	}
	if cfg.DefaultCurrency != "USD" {
		t.Fatalf("expected default currency USD, got %s", cfg.DefaultCurrency)
	}
	if cfg.WeekendSurcharge != 1.20 {
		t.Fatalf("expected default weekend surcharge, got %v", cfg.WeekendSurcharge)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("LOCK_MAX_ATTEMPTS", "5")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("DEFAULT_CURRENCY", "eur")
	t.Setenv("TASK_QUEUE_ENABLED", "true")
	t.Setenv("OPERATOR_CANCEL_FULL_REFUND", "true")
	t.Setenv("EMAIL_PROVIDER", " SendGrid ")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.UsesPostgres() {
		t.Fatalf("expected postgres storage when DATABASE_URL is set")
	}
	if cfg.LockTTL != 3*time.Second {
		t.Fatalf("expected lock ttl override, got %s", cfg.LockTTL)
	}
	if cfg.LockMaxAttempts != 5 {
		t.Fatalf("expected lock attempts override, got %d", cfg.LockMaxAttempts)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}
	if cfg.DefaultCurrency != "EUR" {
		t.Fatalf("expected currency normalized to EUR, got %s", cfg.DefaultCurrency)
	}
	if !cfg.TaskQueueEnabled {
		t.Fatalf("expected task queue enabled")
	}
	if !cfg.OperatorCancelRefund {
		t.Fatalf("expected operator cancel refund enabled")
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected email provider normalized, got %q", cfg.EmailProvider)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("LOCK_RETRY_BASE_DELAY", "soon")
	cfg := Load()
	if cfg.LockRetryBaseDelay != 25*time.Millisecond {
		t.Fatalf("expected fallback base delay, got %s", cfg.LockRetryBaseDelay)
	}
}

func TestCORSOriginsList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	cfg := Load()
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}
