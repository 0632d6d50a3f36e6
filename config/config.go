package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the quill configuration
type Config struct {
	Git      GitConfig                `json:"git"`
	AI       AIConfig                 `json:"ai"`
	Analysis AnalysisConfig           `json:"analysis"`
	Linters  map[string]LinterCommand `json:"linters"` // language -> external linter
}

// GitConfig controls the repository info bridge
type GitConfig struct {
	Enabled *bool `json:"enabled,omitempty"` // nil means enabled
}

// AIConfig holds provider credentials and model selection
type AIConfig struct {
	DefaultProvider string                    `json:"default_provider"`
	Providers       map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single AI provider
type ProviderConfig struct {
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
}

// AnalysisConfig configures the persistent analysis server subprocess
type AnalysisConfig struct {
	Command  []string `json:"command"`  // argv, e.g. ["ruff", "server", "--preview"]
	Language string   `json:"language"` // the one language the server handles
}

// LinterCommand configures a synchronous external linter for one language
type LinterCommand struct {
	Command []string `json:"command"`
}

// GitEnabled reports whether the git integration is on (default true)
func (c *Config) GitEnabled() bool {
	return c.Git.Enabled == nil || *c.Git.Enabled
}

// Provider returns the configuration for a provider key
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	p, ok := c.AI.Providers[name]
	return p, ok
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			DefaultProvider: "openai",
			Providers: map[string]ProviderConfig{
				"openai": {Model: "gpt-4o"},
				"claude": {Model: "claude-3-5-sonnet-20241022"},
				"ollama": {Model: "llama3", BaseURL: "http://localhost:11434"},
			},
		},
		Analysis: AnalysisConfig{
			Command:  []string{"ruff", "server", "--preview"},
			Language: "python",
		},
		Linters: map[string]LinterCommand{},
	}
}

// LoadConfig loads configuration from global and local sources
func LoadConfig(workspacePath string) (*Config, error) {
	// Start with default config
	cfg := DefaultConfig()

	// Load global config
	globalCfg, err := loadGlobalConfig()
	if err == nil {
		mergeCfg(cfg, globalCfg)
	}

	// Load local config (takes precedence)
	localCfg, err := loadLocalConfig(workspacePath)
	if err == nil {
		mergeCfg(cfg, localCfg)
	}

	return cfg, nil
}

// LocalConfigPath returns the workspace config file path
func LocalConfigPath(workspacePath string) string {
	return filepath.Join(workspacePath, ".quill", "config.json")
}

// loadGlobalConfig loads configuration from ~/.quill/config.json
func loadGlobalConfig() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(homeDir, ".quill", "config.json")
	return loadConfigFromFile(configPath)
}

// loadLocalConfig loads configuration from <workspace>/.quill/config.json
func loadLocalConfig(workspacePath string) (*Config, error) {
	return loadConfigFromFile(LocalConfigPath(workspacePath))
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = json.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveLocalConfig saves configuration to <workspace>/.quill/config.json
func SaveLocalConfig(workspacePath string, cfg *Config) error {
	configPath := LocalConfigPath(workspacePath)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// mergeCfg merges source config into destination config
func mergeCfg(dst, src *Config) {
	if src.Git.Enabled != nil {
		dst.Git.Enabled = src.Git.Enabled
	}
	if src.AI.DefaultProvider != "" {
		dst.AI.DefaultProvider = src.AI.DefaultProvider
	}
	for name, p := range src.AI.Providers {
		base := dst.AI.Providers[name]
		if p.Model != "" {
			base.Model = p.Model
		}
		if p.APIKey != "" {
			base.APIKey = p.APIKey
		}
		if p.BaseURL != "" {
			base.BaseURL = p.BaseURL
		}
		if dst.AI.Providers == nil {
			dst.AI.Providers = map[string]ProviderConfig{}
		}
		dst.AI.Providers[name] = base
	}
	if len(src.Analysis.Command) > 0 {
		dst.Analysis.Command = src.Analysis.Command
	}
	if src.Analysis.Language != "" {
		dst.Analysis.Language = src.Analysis.Language
	}
	for lang, lc := range src.Linters {
		if dst.Linters == nil {
			dst.Linters = map[string]LinterCommand{}
		}
		dst.Linters[lang] = lc
	}
}
