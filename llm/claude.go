package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ClaudeAdapter implements Adapter for the Claude API
type ClaudeAdapter struct {
	client  *http.Client
	config  AdapterConfig
	baseURL string
}

// ClaudeMessage represents a message in Claude API format
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeRequest represents a request to the Claude API
type ClaudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []ClaudeMessage `json:"messages"`
}

// ClaudeResponse represents a response from the Claude API
type ClaudeResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewClaudeAdapter creates a new Claude adapter
func NewClaudeAdapter(config AdapterConfig) *ClaudeAdapter {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &ClaudeAdapter{
		client: &http.Client{
			Timeout: config.Timeout,
		},
		config:  config,
		baseURL: baseURL,
	}
}

// Send implements Adapter.Send
func (c *ClaudeAdapter) Send(ctx context.Context, messages []Message) (*Message, error) {
	claudeMessages := make([]ClaudeMessage, len(messages))
	for i, msg := range messages {
		claudeMessages[i] = ClaudeMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := ClaudeRequest{
		Model:     c.config.Model,
		MaxTokens: 4096, // Default max tokens
		Messages:  claudeMessages,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Claude API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response ClaudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var content string
	if len(response.Content) > 0 && response.Content[0].Type == "text" {
		content = response.Content[0].Text
	}

	return &Message{
		Role:      response.Role,
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// ModelName implements Adapter.ModelName
func (c *ClaudeAdapter) ModelName() string {
	return c.config.Model
}

// IsAvailable implements Adapter.IsAvailable
func (c *ClaudeAdapter) IsAvailable() bool {
	return c.config.APIKey != "" && c.config.Model != ""
}

// Close implements Adapter.Close
func (c *ClaudeAdapter) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
