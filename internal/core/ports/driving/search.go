package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchService provides retrieval to external actors.
type SearchService interface {
	// Search queries one collection. Filtered searches bypass the result cache.
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error)

	// SearchAll queries every configured collection and fuses the results.
	SearchAll(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)

	// Similar returns documents similar to an indexed document, excluding it.
	Similar(ctx context.Context, documentID string, topK int, collection string) ([]domain.SearchResult, error)
}
