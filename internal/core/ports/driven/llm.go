// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides language model completions.
// This is an optional service - when nil, chat is disabled and search still works.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full completion.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResult, error)

	// ChatStream is Chat in streaming mode. onFragment is called for each text
	// fragment as it arrives and blocks the provider read loop until it returns.
	// Returning an error from onFragment, or cancelling ctx, aborts the request.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions,
		onFragment func(fragment string) error) (*ChatResult, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 2.0 = most random).
	Temperature float64
}

// ChatResult is a completed chat call.
type ChatResult struct {
	// Content is the full completion text. For streams, the concatenated fragments.
	Content string

	// Model is the model that served the request.
	Model string

	// PromptTokens, CompletionTokens report usage when the provider returns it.
	PromptTokens     int
	CompletionTokens int
}
