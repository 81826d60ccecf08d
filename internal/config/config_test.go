package config

import (
	"strings"
	"testing"
	"time"
)

// clearAppEnv unsets every variable Load reads so tests see pure defaults.
func clearAppEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
		"LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED", "API_BASE_PATH",
		"DB_PATH", "BASE_URL", "WEBHOOK_SECRET", "TOKEN_SECRET", "ADMIN_SECRET",
		"INVITE_TTL", "SEND_RETRY_WINDOW",
		"DM_ENABLED", "DM_MODE", "MESSAGING_API_URL", "MESSAGING_API_KEY",
		"MESSAGING_AGENT_ID", "LEAD_FORWARD_URL", "LEAD_FORWARD_SECRET",
		"OUTBOUND_TIMEOUT", "RATE_RPS", "RATE_BURST",
		"CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearAppEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.DBPath != "app.db" || cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected app defaults: %+v", cfg)
	}
	if cfg.InviteTTL != 24*time.Hour || cfg.RetryWindow != 48*time.Hour {
		t.Fatalf("unexpected TTL defaults: %+v", cfg)
	}
	if !cfg.Messaging.Enabled || cfg.Messaging.Mode != "graphql" {
		t.Fatalf("unexpected messaging defaults: %+v", cfg.Messaging)
	}
	if cfg.OutboundTimeout != 5*time.Second {
		t.Fatalf("OutboundTimeout = %v", cfg.OutboundTimeout)
	}
	// Secrets are not required at load time.
	if cfg.WebhookSecret != "" || cfg.TokenSecret != "" || cfg.AdminSecret != "" {
		t.Fatalf("secrets should default to empty")
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("DM_MODE", "LOG")
	t.Setenv("BASE_URL", "https://app.example.com/")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("INVITE_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , https://b.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LOG_LEVEL normalization failed: %q", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("invalid GIN_MODE should fall back to release, got %q", cfg.GinMode)
	}
	if cfg.Messaging.Mode != "log" {
		t.Fatalf("DM_MODE = %q", cfg.Messaging.Mode)
	}
	if cfg.BaseURL != "https://app.example.com" {
		t.Fatalf("BASE_URL trailing slash not trimmed: %q", cfg.BaseURL)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Fatalf("APIBasePath normalization failed: %q", cfg.APIBasePath)
	}
	if cfg.InviteTTL != 2*time.Hour {
		t.Fatalf("InviteTTL = %v", cfg.InviteTTL)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[0] != "https://a.com" {
		t.Fatalf("CORS origins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		key, val, wantSub string
	}{
		{"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"READ_TIMEOUT", "-1s", "timeouts"},
		{"MAX_HEADER_BYTES", "-5", "MAX_HEADER_BYTES"},
		{"INVITE_TTL", "-1h", "INVITE_TTL"},
		{"SEND_RETRY_WINDOW", "-1h", "SEND_RETRY_WINDOW"},
		{"OUTBOUND_TIMEOUT", "-1s", "OUTBOUND_TIMEOUT"},
		{"RATE_RPS", "-1", "RATE_RPS"},
		{"RATE_BURST", "0", "RATE_BURST"},
		{"OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			clearAppEnv(t)
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantSub, err)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("RATE_BURST", "0")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustLoad to panic")
		}
	}()
	_ = MustLoad()
}

func Test_normalizeBasePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"api", "/api"},
		{"/api/", "/api"},
		{"/api/v1", "/api/v1"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
