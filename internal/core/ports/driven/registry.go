package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// NormaliserRegistry picks a normaliser by MIME type for files handed to
// ingestion and uploads.
type NormaliserRegistry interface {
	// Normalise extracts text from raw with the highest-priority normaliser
	// for its MIME type, else the fallback. An unsupported type wraps
	// domain.ErrUnsupportedType.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	Register(normaliser Normaliser)

	// SupportedMIMETypes lists the types with a specific normaliser.
	SupportedMIMETypes() []string
}
