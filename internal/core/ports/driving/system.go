package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SystemService exposes administrative operations.
type SystemService interface {
	// ListCollections returns every collection with its metadata.
	ListCollections(ctx context.Context) ([]domain.Collection, error)

	// ClearCache drops every cached search result.
	ClearCache(ctx context.Context) error

	// CacheStats reports result cache occupancy.
	CacheStats() domain.CacheStats

	// HealthCheck reports backend reachability.
	HealthCheck(ctx context.Context) (*domain.HealthStatus, error)

	// RepairCollection re-embeds points stored with a zero vector.
	RepairCollection(ctx context.Context, collection string) (int, error)
}
