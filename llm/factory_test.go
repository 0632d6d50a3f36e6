package llm

import (
	"testing"

	"quill/config"
)

func providerConfig(model, key string) config.ProviderConfig {
	return config.ProviderConfig{Model: model, APIKey: key}
}

func TestCreateAdapterUnknownProvider(t *testing.T) {
	if _, err := CreateAdapter("mystery", providerConfig("m", "k")); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCreateAdapterOllamaNeedsNoKey(t *testing.T) {
	adapter, err := CreateAdapter("ollama", providerConfig("codellama", ""))
	if err != nil {
		t.Fatalf("CreateAdapter failed: %v", err)
	}
	defer adapter.Close()

	if adapter.ModelName() != "codellama" {
		t.Errorf("model = %q", adapter.ModelName())
	}
	if !adapter.IsAvailable() {
		t.Error("ollama adapter with a model should be available")
	}
}

func TestCreateAdapterOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := CreateAdapter("openai", providerConfig("gpt-4o", "")); err == nil {
		t.Fatal("expected error for missing OpenAI key")
	}
}

func TestCreateAdapterClaude(t *testing.T) {
	adapter, err := CreateAdapter("claude", providerConfig("claude-sonnet-4-0", "sk-test"))
	if err != nil {
		t.Fatalf("CreateAdapter failed: %v", err)
	}
	defer adapter.Close()

	if !adapter.IsAvailable() {
		t.Error("claude adapter with key and model should be available")
	}
}
