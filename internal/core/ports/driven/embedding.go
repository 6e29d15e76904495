// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// EmbeddingBackend generates vector embeddings from text.
//
// A backend makes one provider call per Embed and does not retry;
// batching, retries and zero-vector fallback live in the core EmbeddingProvider.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Voyage AI (voyage-3-large), which embeds documents and queries asymmetrically
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingBackend interface {
	// Embed returns one vector per text, in input order.
	// Failures should be *domain.ProviderError so callers can tell transient from permanent.
	Embed(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1024, 1536).
	// This is determined by the model and must match the collection dimension.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
