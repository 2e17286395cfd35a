package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseEnvDefaults(t *testing.T) {
	var cfg Config

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %s", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %s", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.Auth.RefreshCookieName != "refresh_token" {
		t.Fatalf("unexpected cookie name %q", cfg.Auth.RefreshCookieName)
	}
	if cfg.OTP.Length != 6 || cfg.OTP.MaxAttempts != 5 || cfg.OTP.TTL != 10*time.Minute {
		t.Fatalf("unexpected otp defaults %+v", cfg.OTP)
	}
	if cfg.RateLimit.AuthRequests != 50 || cfg.RateLimit.AuthWindow != 15*time.Minute {
		t.Fatalf("unexpected auth rate limit %+v", cfg.RateLimit)
	}
	if cfg.Demo.Enabled {
		t.Fatal("demo mode must default to disabled")
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("REDIS_PORT", "6380")

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if !cfg.Demo.Enabled {
		t.Fatal("expected demo mode enabled")
	}
	if cfg.OTP.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.OTP.MaxAttempts)
	}
	if got := cfg.RedisAddress(); got != "localhost:6380" {
		t.Fatalf("unexpected redis address %q", got)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	var cfg Config
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for default secret")
	}

	cfg.Auth.AccessSecret = "a-real-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
