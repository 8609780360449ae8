package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SEND_BATCH_SIZE", "")
	t.Setenv("SEND_TIMEOUT", "")
	t.Setenv("PORT", "")
	t.Setenv("TRUST_PROXY_HEADERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Send.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", cfg.Send.BatchSize)
	}
	if cfg.Send.Timeout != 10*time.Minute {
		t.Errorf("Timeout = %s, want 10m", cfg.Send.Timeout)
	}
	if cfg.Send.BatchConcurrency != 1 {
		t.Errorf("BatchConcurrency = %d, want 1", cfg.Send.BatchConcurrency)
	}
	if cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders should default to false")
	}
}

func TestLoad_TrustProxyHeaders(t *testing.T) {
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders = false, want true")
	}
}

func TestLoad_RejectsOversizedBatch(t *testing.T) {
	t.Setenv("SEND_BATCH_SIZE", "501")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for batch size above the multicast limit")
	}
}

func TestLoad_PrivateKeyNewlines(t *testing.T) {
	t.Setenv("FIREBASE_PRIVATE_KEY", `-----BEGIN KEY-----\nabc\n-----END KEY-----`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := "-----BEGIN KEY-----\nabc\n-----END KEY-----"
	if cfg.Firebase.PrivateKey != want {
		t.Errorf("PrivateKey = %q, want %q", cfg.Firebase.PrivateKey, want)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SEND_BATCH_CONCURRENCY", "lots")
	t.Setenv("SEND_BATCH_TIMEOUT", "soon")
	t.Setenv("SEND_DEDUPE_TOKENS", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Send.BatchConcurrency != 1 {
		t.Errorf("BatchConcurrency = %d, want 1", cfg.Send.BatchConcurrency)
	}
	if cfg.Send.BatchTimeout != 30*time.Second {
		t.Errorf("BatchTimeout = %s, want 30s", cfg.Send.BatchTimeout)
	}
	if cfg.Send.DedupeTokens {
		t.Error("DedupeTokens should default to false")
	}
}

func TestLoad_BreakerDefaults(t *testing.T) {
	t.Setenv("GATEWAY_BREAKER_THRESHOLD", "0")
	t.Setenv("GATEWAY_BREAKER_COOLDOWN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.Cooldown != 30*time.Second {
		t.Errorf("Breaker = %+v, want 5 / 30s", cfg.Breaker)
	}
	if cfg.MigrationsDir != "migrations" {
		t.Errorf("MigrationsDir = %q", cfg.MigrationsDir)
	}
}
