package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
port: "8080"
logLevel: debug
apiBaseURL: http://api.internal:4000
redisAddr: localhost:6379
snapshotTTL: 168h
cookieSameSite: strict
loginRateLimitPerMinute: 10
registerRateLimitPerMinute: 5
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.APIBaseURL != "http://api.internal:4000" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	ttl, err := ParseSnapshotTTL(cfg.SnapshotTTL)
	if err != nil {
		t.Fatalf("parse ttl: %v", err)
	}
	if ttl != 168*time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestLoadRequiresAPIBaseURL(t *testing.T) {
	_, err := Load(writeConfig(t, "port: \"8080\"\nredisAddr: localhost:6379\n"))
	if err == nil {
		t.Fatal("expected validation error for missing apiBaseURL")
	}
}

func TestLoadRejectsNegativeRateLimit(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+"\nloginRateLimitPerMinute: -1\n"))
	if err == nil {
		t.Fatal("expected validation error for negative rate limit")
	}
}

func TestLoadRejectsBadSnapshotTTL(t *testing.T) {
	_, err := Load(writeConfig(t, "port: \"8080\"\napiBaseURL: http://x\nredisAddr: r:6379\nsnapshotTTL: banana\n"))
	if err == nil {
		t.Fatal("expected validation error for bad ttl")
	}
}

func TestLoadSnapshotBackend(t *testing.T) {
	if _, err := Load(writeConfig(t, validConfig+"\nsnapshotBackend: postgres\n")); err == nil {
		t.Fatal("expected validation error for postgres backend without databaseURL")
	}
	cfg, err := Load(writeConfig(t, validConfig+"\nsnapshotBackend: postgres\ndatabaseURL: postgres://gateway:pw@db:5432/bookmart\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SnapshotBackend != "postgres" {
		t.Fatalf("backend = %q", cfg.SnapshotBackend)
	}
	if _, err := Load(writeConfig(t, validConfig+"\nsnapshotBackend: cassandra\n")); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BOOKMART_API_BASE_URL", "http://override:5000")
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://override:5000" {
		t.Fatalf("env override not applied: %q", cfg.APIBaseURL)
	}
}

func TestParseSameSite(t *testing.T) {
	if got := ParseSameSite("strict"); got != http.SameSiteStrictMode {
		t.Fatalf("strict mapped to %v", got)
	}
	if got := ParseSameSite("none"); got != http.SameSiteNoneMode {
		t.Fatalf("none mapped to %v", got)
	}
	if got := ParseSameSite("whatever"); got != http.SameSiteLaxMode {
		t.Fatalf("fallback mapped to %v", got)
	}
}
