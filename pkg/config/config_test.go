package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	if c.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("default model = %q", c.OpenAI.Model)
	}
	if c.Chat.MaxRounds != 5 {
		t.Fatalf("default max rounds = %d", c.Chat.MaxRounds)
	}
	if c.Campus.BaseURL == "" || c.Campus.SweepCron == "" {
		t.Fatalf("campus defaults not applied: %+v", c.Campus)
	}
	if c.Auth.SessionTTLMinutes != 12*60 {
		t.Fatalf("default session ttl = %d", c.Auth.SessionTTLMinutes)
	}
	if c.Addr() != "0.0.0.0:8080" {
		t.Fatalf("default addr = %q", c.Addr())
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  address: 127.0.0.1
  port: 9090
storage:
  db_path: /var/lib/esupchat
openai:
  model: gpt-4o
chat:
  max_rounds: 3
auth:
  signing_keys:
    - k1
    - k2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/var/lib/esupchat" {
		t.Fatalf("db path = %q", cfg.Storage.DBPath)
	}
	if cfg.OpenAI.Model != "gpt-4o" || cfg.Chat.MaxRounds != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Auth.SigningKeys) != 2 {
		t.Fatalf("signing keys = %v", cfg.Auth.SigningKeys)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ESUPCHAT_ADDR", "0.0.0.0:7070")
	t.Setenv("ESUPCHAT_DB_PATH", "/tmp/db")
	t.Setenv("OPENAI_API_KEY", " sk-test ")
	t.Setenv("ESUPCHAT_SIGNING_KEYS", "a, b ,c")

	var c Config
	used := LoadEnvOverrides(&c)
	if !used {
		t.Fatalf("env overrides not detected")
	}
	if c.Server.Port != 7070 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if c.Storage.DBPath != "/tmp/db" {
		t.Fatalf("db path = %q", c.Storage.DBPath)
	}
	if c.OpenAI.APIKey != "sk-test" {
		t.Fatalf("api key not trimmed: %q", c.OpenAI.APIKey)
	}
	if len(c.Auth.SigningKeys) != 3 || c.Auth.SigningKeys[1] != "b" {
		t.Fatalf("signing keys = %v", c.Auth.SigningKeys)
	}
}

func TestResolveConfigPath(t *testing.T) {
	// explicit flag wins
	if got := ResolveConfigPath("/from/flag", true); got != "/from/flag" {
		t.Fatalf("got %q", got)
	}
	// env wins over the default
	t.Setenv("ESUPCHAT_CONFIG", "/from/env")
	if got := ResolveConfigPath("./config.yaml", false); got != "/from/env" {
		t.Fatalf("got %q", got)
	}
}
