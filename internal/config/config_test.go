package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Check.Profile != "backend-engineer" {
		t.Errorf("expected default profile backend-engineer, got %s", cfg.Check.Profile)
	}
	if cfg.Store.Type != "bolt" {
		t.Errorf("expected bolt store, got %s", cfg.Store.Type)
	}
	if cfg.ServerAddress() != "127.0.0.1:7118" {
		t.Errorf("unexpected server address %s", cfg.ServerAddress())
	}
	if filepath.Base(cfg.DBPath()) != "agentcheck.db" {
		t.Errorf("unexpected db path %s", cfg.DBPath())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
store:
  type: memory
check:
  root: /srv/project
log:
  level: debug
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store.Type)
	}
	if cfg.Check.Root != "/srv/project" {
		t.Errorf("expected root /srv/project, got %s", cfg.Check.Root)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Log.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Check.Profile != "backend-engineer" {
		t.Errorf("expected default profile to survive overlay, got %s", cfg.Check.Profile)
	}
	if cfg.Server.Port != 7118 {
		t.Errorf("expected default port to survive overlay, got %d", cfg.Server.Port)
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("missing default config should not be an error: %v", err)
	}
	if cfg.Store.Type != "bolt" {
		t.Errorf("expected defaults, got store %s", cfg.Store.Type)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"store type", func(c *Config) { c.Store.Type = "redis" }, "unknown store type"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "unknown log format"},
		{"port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"interval", func(c *Config) { c.Check.RecheckInterval = -time.Second }, "recheckInterval"},
		{"history", func(c *Config) { c.Check.HistoryLimit = -1 }, "historyLimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadRecheckSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("check:\n  recheckInterval: 30s\n  historyLimit: 5\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Check.RecheckInterval != 30*time.Second {
		t.Errorf("expected 30s interval, got %s", cfg.Check.RecheckInterval)
	}
	if cfg.Check.HistoryLimit != 5 {
		t.Errorf("expected history limit 5, got %d", cfg.Check.HistoryLimit)
	}
}
