package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentService manages indexed documents.
type DocumentService interface {
	// UploadDocument ingests one document. Ingestion failures are reported
	// in the result; the error is reserved for invalid input.
	UploadDocument(ctx context.Context, doc domain.DocumentInput, collection string) (*domain.IngestResult, error)

	// UploadBatch ingests documents independently and reports per-document outcomes.
	UploadBatch(ctx context.Context, docs []domain.DocumentInput, collection string) (*domain.BatchReport, error)

	// GetDocument returns a summary of a stored document or domain.ErrNotFound.
	GetDocument(ctx context.Context, documentID, collection string) (*domain.DocumentInfo, error)

	// DeleteDocument removes all chunks of a document. Returns false if none existed.
	DeleteDocument(ctx context.Context, documentID, collection string) (bool, error)
}
