package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorStore abstracts a collection-oriented vector index.
//
// Every backend must reject vectors whose length differs from the
// collection dimension with *domain.DimensionMismatchError, and report
// missing collections as domain.ErrNotFound.
type VectorStore interface {
	// CollectionExists reports whether the collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection. It is a no-op if it already exists.
	CreateCollection(ctx context.Context, name string, dimension int, distance domain.DistanceMetric) error

	// DeleteCollection removes a collection and all its points.
	DeleteCollection(ctx context.Context, name string) error

	// ListCollections returns collection names in lexical order.
	ListCollections(ctx context.Context) ([]string, error)

	// CollectionInfo returns dimension, point count and status.
	CollectionInfo(ctx context.Context, name string) (*domain.Collection, error)

	// Upsert stores points, overwriting any with the same ID.
	// Backends split large inputs into batches internally.
	Upsert(ctx context.Context, collection string, points []domain.Point) error

	// Search returns hits sorted by descending score with score >= params.ScoreThreshold.
	Search(ctx context.Context, collection string, vector []float32, params domain.SearchParams) ([]domain.Hit, error)

	// Retrieve fetches points by ID. Missing IDs are skipped.
	Retrieve(ctx context.Context, collection string, ids []string) ([]domain.Hit, error)

	// Scroll returns up to limit points matching filter, ordered by ID.
	// A limit <= 0 returns every match.
	Scroll(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.Hit, error)

	// DeletePoints removes points by ID.
	DeletePoints(ctx context.Context, collection string, ids []string) error

	// DeleteByFilter removes every point matching filter and returns how many were removed.
	DeleteByFilter(ctx context.Context, collection string, filter domain.Filter) (int, error)

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
