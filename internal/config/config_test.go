package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Auth.CookieName != "session" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.RejectInvalidGotoTargets() {
		t.Fatalf("goto validation must default to on")
	}
}

func TestLoadYAMLThenEnvironment(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "9000"
redis:
  addr: localhost:6379
course:
  ttl: 2m
  rejectInvalidGotoTargets: false
auth:
  jwtSecret: a-long-enough-secret
  users:
    - email: admin@example.com
      role: admin
      password: changeme
`)
	t.Setenv("COURSE_SERVER_PORT", "9100")
	t.Setenv("COURSE_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Fatalf("expected env override, got %s", cfg.Server.Port)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.RejectInvalidGotoTargets() {
		t.Fatalf("yaml values lost: %+v", cfg)
	}
	if got := TTLDuration(cfg.Course.TTL, time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m, got %s", got)
	}
	if len(cfg.Auth.Users) != 1 || cfg.Auth.Users[0].Role != "admin" {
		t.Fatalf("expected seeded user, got %+v", cfg.Auth.Users)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", `
log:
  level: chatty
auth:
  users:
    - email: not-an-email
      role: admin
      password: x
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "COURSE_TEST_DOTENV=loaded\n")
	t.Setenv("COURSE_TEST_DOTENV", "")
	os.Unsetenv("COURSE_TEST_DOTENV")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load .env: %v", err)
	}
	if os.Getenv("COURSE_TEST_DOTENV") != "loaded" {
		t.Fatalf("expected variable from .env")
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "none")); err != nil {
		t.Fatalf("missing .env must be ignored: %v", err)
	}
}

func TestTTLDurationFallsBack(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
}
