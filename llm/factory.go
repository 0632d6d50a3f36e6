package llm

import (
	"fmt"
	"os"

	"quill/config"
)

// CreateAdapter creates an LLM adapter for a named provider using its
// configured credentials.
func CreateAdapter(provider string, pc config.ProviderConfig) (Adapter, error) {
	cfg := AdapterConfig{
		Model:   pc.Model,
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Timeout: DefaultTimeout,
	}

	switch provider {
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY or configure providers.openai.api_key)")
		}
		return NewOpenAIAdapter(cfg), nil

	case "claude":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Claude API key not provided (set ANTHROPIC_API_KEY or configure providers.claude.api_key)")
		}
		return NewClaudeAdapter(cfg), nil

	case "ollama":
		return NewOllamaAdapter(cfg), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, claude, ollama)", provider)
	}
}
