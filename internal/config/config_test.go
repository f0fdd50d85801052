package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
telegram:
  token: from-file
server:
  port: "9000"
quiz:
  source: testdata/quiz.json
  timeout: 15s
  max_option_length: 80
redis:
  addr: localhost:6379
  ttl: 5m
log:
  env: prod
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("expected env token, got %q", cfg.Telegram.Token)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("expected file port, got %q", cfg.Server.Port)
	}
	if cfg.Quiz.Source != "testdata/quiz.json" || cfg.Quiz.MaxOptionLength != 80 {
		t.Fatalf("unexpected quiz section %+v", cfg.Quiz)
	}
	if got := TTLDuration(cfg.Quiz.Timeout, time.Minute); got != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %v", got)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Log.Env != "prod" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("PORT", "8181")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8181" || cfg.Telegram.Token != "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestTTLDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":      time.Minute,
		"bogus": time.Minute,
		"45s":   45 * time.Second,
	}
	for raw, want := range cases {
		if got := TTLDuration(raw, time.Minute); got != want {
			t.Fatalf("TTLDuration(%q) = %v, want %v", raw, got, want)
		}
	}
}
