package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AIConfigValidator checks provider settings by connecting to the provider.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedding backend and pings it.
	// Unconfigured settings validate as nil.
	ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error

	// ValidateLLM builds the language model client and pings it.
	// Unconfigured settings validate as nil.
	ValidateLLM(ctx context.Context, config *domain.LLMSettings) error
}
