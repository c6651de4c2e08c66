package models

import (
	"context"
	"errors"
)

// Sentinel errors every provider maps its SDK failures onto, so callers can
// branch without knowing which provider is configured.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
)

// AIProvider is the core interface that all LLM integrations must implement.
// Never call specific providers directly — always inject this interface.
type AIProvider interface {
	// StreamCompletion sends the prompt to the model and invokes onText for
	// every incremental text fragment, in arrival order. If onText returns an
	// error the stream is abandoned and that error is returned.
	StreamCompletion(ctx context.Context, req CompletionRequest, onText func(text string) error) error
	// Name returns the provider identifier (e.g., "anthropic", "openai").
	Name() string
	// Model returns the configured model identifier.
	Model() string
}

// CompletionRequest is the input to a streaming completion.
type CompletionRequest struct {
	Prompt    string
	MaxTokens int
}
