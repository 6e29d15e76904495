package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PostProcessor is one stage of chunking.
type PostProcessor interface {
	// Name identifies the stage in config.toml and in errors.
	Name() string

	// Process receives the chunks produced so far, nil before the chunker
	// has run. Stages running before the chunker may rewrite doc.Content.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline splits a document into the chunks to embed.
type PostProcessorPipeline interface {
	// Process returns chunks numbered 0..n-1 for doc. No chunks means the
	// document had no text.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
