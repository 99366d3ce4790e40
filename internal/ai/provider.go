// Package ai contains the upstream model gateways: chat completion
// providers and text embedders. Providers are narrow interfaces over the
// vendor HTTP APIs; the rest of the system treats them as opaque
// collaborators.
package ai

import "context"

// ChatMessage represents a message in a conversation
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// GenerateRequest represents a request to generate an AI response
type GenerateRequest struct {
	Messages  []ChatMessage `json:"messages"`
	Model     string        `json:"model,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// Usage represents token usage reported by a provider
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse represents a provider's response
type GenerateResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage,omitempty"`
}

// Provider defines the interface for chat completion providers
type Provider interface {
	Name() string
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// Embedder converts text into fixed-length vectors. All vectors produced by
// one Embedder instance share the same dimensionality.
type Embedder interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
