package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Normaliser turns the bytes of one file format into plain document text.
// The registry picks the highest Priority among normalisers claiming a MIME
// type: format-specific ones use 50-89, catch-alls 1-9.
type Normaliser interface {
	SupportedMIMETypes() []string
	Priority() int
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult carries the document with Content filled in. Chunking
// happens later in the postprocessor pipeline.
type NormaliseResult struct {
	Document domain.Document
}
