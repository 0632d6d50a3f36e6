package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.GitEnabled() {
		t.Error("Expected git integration enabled by default")
	}

	if cfg.AI.DefaultProvider != "openai" {
		t.Errorf("Expected default provider 'openai', got '%s'", cfg.AI.DefaultProvider)
	}

	if _, ok := cfg.Provider("openai"); !ok {
		t.Error("Expected openai provider to be configured by default")
	}

	if len(cfg.Analysis.Command) == 0 {
		t.Error("Expected a default analysis server command")
	}
}

func TestGitEnabledExplicitFalse(t *testing.T) {
	disabled := false
	cfg := DefaultConfig()
	cfg.Git.Enabled = &disabled

	if cfg.GitEnabled() {
		t.Error("Expected git integration disabled when enabled=false")
	}
}

func TestLoadLocalConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, ".quill")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	local := `{
		"git": {"enabled": false},
		"ai": {"default_provider": "claude", "providers": {"claude": {"api_key": "sk-test"}}},
		"linters": {"yaml": {"command": ["yamllint", "-"]}}
	}`
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(local), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("Unexpected error loading config: %v", err)
	}

	if cfg.GitEnabled() {
		t.Error("Expected local config to disable git integration")
	}
	if cfg.AI.DefaultProvider != "claude" {
		t.Errorf("Expected default provider 'claude', got '%s'", cfg.AI.DefaultProvider)
	}

	// The merge keeps defaults that the local file did not touch.
	claude, ok := cfg.Provider("claude")
	if !ok {
		t.Fatal("Expected claude provider to exist")
	}
	if claude.APIKey != "sk-test" {
		t.Errorf("Expected merged API key 'sk-test', got '%s'", claude.APIKey)
	}
	if claude.Model == "" {
		t.Error("Expected default claude model to survive the merge")
	}

	if _, ok := cfg.Linters["yaml"]; !ok {
		t.Error("Expected yaml linter from local config")
	}
}

func TestSaveLocalConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.AI.DefaultProvider = "ollama"

	if err := SaveLocalConfig(dir, cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.AI.DefaultProvider != "ollama" {
		t.Errorf("Expected saved provider 'ollama', got '%s'", loaded.AI.DefaultProvider)
	}
}
