package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Connector reads raw documents from a source of files.
type Connector interface {
	// Type identifies the connector (e.g. "filesystem").
	Type() string

	// Validate checks the source is reachable before a sync starts.
	Validate(ctx context.Context) error

	// FullSync streams every document in the source. Both channels close
	// when the walk finishes or ctx is cancelled.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch streams changes until ctx is cancelled or Close is called.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close stops watching. It is safe to call more than once.
	Close() error
}
