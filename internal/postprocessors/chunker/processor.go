// Package chunker splits document text into overlapping, separator-aware
// chunks sized for embedding.
package chunker

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Defaults used when a pipeline does not configure the chunker.
const (
	DefaultChunkSize    = domain.DefaultChunkSize
	DefaultChunkOverlap = domain.DefaultChunkOverlap
)

// Processor is the "chunker" pipeline stage. It discards chunks from earlier
// stages and re-splits the document content.
type Processor struct {
	size    int
	overlap int
}

// New returns a chunker of size runes per chunk. A non-positive size selects
// DefaultChunkSize; an overlap outside [0, size) becomes size/4.
func New(size, overlap int) *Processor {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 4
	}
	return &Processor{size: size, overlap: overlap}
}

func (p *Processor) Name() string { return "chunker" }

// Size is the target chunk length in runes.
func (p *Processor) Size() int { return p.size }

// Overlap is the number of runes repeated between neighbours.
func (p *Processor) Overlap() int { return p.overlap }

// Process returns nil for blank content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parts := Split(doc.Content, p.size, p.overlap)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]domain.Chunk, 0, len(parts))
	for i, text := range parts {
		out = append(out, domain.Chunk{DocumentID: doc.ID, Index: i, Content: text, TotalChunks: len(parts)})
	}
	return out, nil
}
