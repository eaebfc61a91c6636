package llm

import "context"

// defaultMaxTokens is used when a request does not set MaxTokens.
const defaultMaxTokens = 1024

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response. Errors
	// are always classified; see Classify.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
