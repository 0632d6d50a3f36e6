package llm

import (
	"context"
	"time"
)

// Message represents a chat message
type Message struct {
	Role      string    `json:"role"`      // "system", "user", "assistant"
	Content   string    `json:"content"`   // The message content
	Timestamp time.Time `json:"timestamp"` // When the message was created
}

// Adapter defines the interface for LLM providers. Adapters are created per
// task and must be closed when the task finishes.
type Adapter interface {
	// Send sends messages and returns the complete response
	Send(ctx context.Context, messages []Message) (*Message, error)

	// ModelName returns the current model name
	ModelName() string

	// IsAvailable checks if the adapter is properly configured
	IsAvailable() bool

	// Close releases the adapter's network resources. Safe to call once.
	Close() error
}

// AdapterConfig contains common configuration for LLM adapters
type AdapterConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// DefaultTimeout for LLM requests
const DefaultTimeout = 30 * time.Second
