package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config file: %v", err)
	}
	want := Default()
	if cfg.Addr != want.Addr || cfg.Chat.NewbieMessageDelay != want.Chat.NewbieMessageDelay || cfg.KV.Backend != KVBackendSQLite {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9090\"\nchat:\n  message_delay: 5s\n  newbie_reputation_threshold: 10\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WIRECHAT_CHAT_NEWBIE_REPUTATION_THRESHOLD", "1")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("expected addr from file, got %q", cfg.Addr)
	}
	if cfg.Chat.MessageDelay != 5*time.Second {
		t.Fatalf("expected message delay from file, got %v", cfg.Chat.MessageDelay)
	}
	if cfg.Chat.NewbieReputationThreshold != 1 {
		t.Fatalf("expected env to win over file, got %d", cfg.Chat.NewbieReputationThreshold)
	}
	if cfg.Chat.NewbieMessageDelay != 2*time.Minute {
		t.Fatalf("expected default for unset key, got %v", cfg.Chat.NewbieMessageDelay)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	bad := Default()
	bad.KV.Backend = "etcd"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}

	bad = Default()
	bad.KV.Backend = KVBackendRedis
	bad.KV.RedisAddr = ""
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected missing redis address to fail")
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", LogLevel: "debug"})
	if cfg.Addr != ":1" || cfg.LogLevel != "debug" || cfg.DatabasePath != "wirechat.db" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
