// Package llm defines the interface for model-hosting clients.
package llm

import "context"

// Request is a single-turn completion request.
type Request struct {
	System      string  // system prompt
	User        string  // user message
	MaxTokens   int     // response token budget
	Temperature float32 // 0 for deterministic generation
}

// Client defines the interface for model providers (Anthropic, OpenAI, mock).
type Client interface {
	// Complete sends a completion request and returns the raw model text.
	Complete(ctx context.Context, req Request) (string, error)

	// Model returns the model identifier used by this client.
	Model() string
}
