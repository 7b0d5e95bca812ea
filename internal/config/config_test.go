package config

import (
	"reflect"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// App
	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("PENDING_LIMIT", "25")

	// Slack
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.example.test/T/B/x")
	t.Setenv("SLACK_DEFAULT_CHANNEL", "lunch") // will gain "#"
	t.Setenv("SLACK_TIMEOUT", "7s")

	// Queue
	t.Setenv("QUEUE_WORKERS", "2")
	t.Setenv("QUEUE_BUFFER", "32")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8088" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.ReadTimeout != 2*time.Second || cfg.WriteTimeout != 3*time.Second {
		t.Errorf("timeouts not parsed: %v / %v", cfg.ReadTimeout, cfg.WriteTimeout)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode not normalized: %q", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel not normalized: %q", cfg.LogLevel)
	}
	if !cfg.LogPretty {
		t.Error("LogPretty should parse 'yes' as true")
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath not normalized: %q", cfg.APIBasePath)
	}
	if cfg.MaxUploadBytes != 1024 || cfg.PendingLimit != 25 {
		t.Errorf("app settings: %d / %d", cfg.MaxUploadBytes, cfg.PendingLimit)
	}
	if cfg.Slack.DefaultChannel != "#lunch" {
		t.Errorf("default channel not normalized: %q", cfg.Slack.DefaultChannel)
	}
	if cfg.Slack.Timeout != 7*time.Second {
		t.Errorf("slack timeout: %v", cfg.Slack.Timeout)
	}
	if cfg.Queue.Workers != 2 || cfg.Queue.Buffer != 32 {
		t.Errorf("queue settings: %+v", cfg.Queue)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Errorf("rate fallbacks: %v / %d", cfg.RateRPS, cfg.RateBurst)
	}
	wantOrigins := []string{"https://a.com", "http://b"}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, wantOrigins) {
		t.Errorf("CORS origins = %v, want %v", cfg.CORS.AllowedOrigins, wantOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Errorf("security: %+v", cfg.Security)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPath != "app.db" {
		t.Errorf("core defaults: port=%q db=%q", cfg.Port, cfg.DBPath)
	}
	if cfg.Slack.DefaultChannel != "#general" || cfg.Slack.Timeout != 10*time.Second {
		t.Errorf("slack defaults: %+v", cfg.Slack)
	}
	if cfg.Queue.Workers != 4 || cfg.Queue.Buffer != 256 {
		t.Errorf("queue defaults: %+v", cfg.Queue)
	}
	if cfg.PendingLimit != 50 {
		t.Errorf("pending limit default: %d", cfg.PendingLimit)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Errorf("upload cap default: %d", cfg.MaxUploadBytes)
	}
	if cfg.OTEL.Enabled {
		t.Error("OTEL must default to disabled")
	}
}

// --- validation failures ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"negative read timeout", map[string]string{"READ_TIMEOUT": "-1s"}},
		{"zero upload cap", map[string]string{"MAX_UPLOAD_BYTES": "-5"}},
		{"zero pending limit", map[string]string{"PENDING_LIMIT": "0"}},
		{"bad slack timeout", map[string]string{"SLACK_TIMEOUT": "-2s"}},
		{"zero workers", map[string]string{"QUEUE_WORKERS": "0"}},
		{"zero buffer", map[string]string{"QUEUE_BUFFER": "0"}},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}},
		{"zero burst", map[string]string{"RATE_BURST": "0"}},
		{"sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"api/v1/": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
