package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 7411 {
		t.Errorf("expected default port 7411, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Store.Type != "bolt" {
		t.Errorf("expected default store type bolt, got %s", cfg.Store.Type)
	}
	if cfg.Agent.MaxToolTurns != 16 {
		t.Errorf("expected 16 tool turns, got %d", cfg.Agent.MaxToolTurns)
	}
	if cfg.Agent.DefaultTimeout != 60 {
		t.Errorf("expected 60s default timeout, got %d", cfg.Agent.DefaultTimeout)
	}
	if !cfg.Browser.Headless {
		t.Error("expected headless browser by default")
	}
	if cfg.Sandbox.WorkspaceRoot == "" {
		t.Error("expected a default workspace root")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error for missing file: %v", err)
	}
	if cfg.Server.Port != 7411 {
		t.Errorf("expected defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error for empty path: %v", err)
	}
	if cfg.Agent.Model == "" {
		t.Error("expected a default model")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warden.yaml")
	data := `
server:
  port: 9999
store:
  type: memory
sandbox:
  workspaceRoot: /srv/agent
  extraBlockedPatterns:
    - "curl evil.example"
agent:
  maxToolTurns: 3
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("unexpected error writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error on Load: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	// Unset fields keep their defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host kept, got %s", cfg.Server.Host)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("expected store type memory, got %s", cfg.Store.Type)
	}
	if cfg.Sandbox.WorkspaceRoot != "/srv/agent" {
		t.Errorf("expected workspace /srv/agent, got %s", cfg.Sandbox.WorkspaceRoot)
	}
	if len(cfg.Sandbox.ExtraBlockedPatterns) != 1 {
		t.Errorf("expected 1 extra blocked pattern, got %d", len(cfg.Sandbox.ExtraBlockedPatterns))
	}
	if cfg.Agent.MaxToolTurns != 3 {
		t.Errorf("expected 3 tool turns, got %d", cfg.Agent.MaxToolTurns)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("expected debug/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("unexpected error writing config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestServerAddressAndDBPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Store.DataDir = "/var/lib/warden"

	if got := cfg.ServerAddress(); got != "0.0.0.0:8080" {
		t.Errorf("expected 0.0.0.0:8080, got %s", got)
	}
	if got := cfg.DBPath(); got != filepath.Join("/var/lib/warden", "warden.db") {
		t.Errorf("unexpected db path %s", got)
	}
}
