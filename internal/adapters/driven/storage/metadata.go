// Package storage selects a vector store backend and wraps it with
// collection metadata caching.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sercha-rag/internal/cache"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// metadataCacheSize bounds how many collections keep cached info.
const metadataCacheSize = 256

// MetadataCache serves CollectionInfo from a TTL cache and passes every
// other call through. Entries for a collection are dropped whenever the
// collection is created, deleted or written to, so point counts never lag
// writes made through this store.
type MetadataCache struct {
	driven.VectorStore
	info    *cache.TTL[string, domain.Collection]
	flight  singleflight.Group
	timeout time.Duration

	mu    sync.Mutex
	gens  map[string]uint64 // bumped after every write to a collection
	epoch uint64            // bumped by Invalidate
}

var _ driven.VectorStore = (*MetadataCache)(nil)

// NewMetadataCache wraps store. A ttl <= 0 uses domain.DefaultCacheTTL.
func NewMetadataCache(store driven.VectorStore, ttl time.Duration, opts ...cache.Option) *MetadataCache {
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	return &MetadataCache{
		VectorStore: store,
		info:        cache.New[string, domain.Collection](ttl, metadataCacheSize, opts...),
		timeout:     domain.DefaultRequestTimeout,
		gens:        make(map[string]uint64),
	}
}

// CollectionInfo returns cached info, loading it once per expiry even under
// concurrent callers. Errors are not cached. The shared load is detached
// from every caller's cancellation; each caller still stops waiting when its
// own context ends.
func (m *MetadataCache) CollectionInfo(ctx context.Context, name string) (*domain.Collection, error) {
	if c, ok := m.info.Get(name); ok {
		return &c, nil
	}
	gen := m.generation(name)
	ch := m.flight.DoChan(fmt.Sprintf("%s@%d", name, gen), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		c, err := m.VectorStore.CollectionInfo(loadCtx, name)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		if m.gens[name]+m.epoch == gen {
			m.info.Set(name, *c)
		}
		m.mu.Unlock()
		return *c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		c := res.Val.(domain.Collection)
		return &c, nil
	}
}

func (m *MetadataCache) generation(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[name] + m.epoch
}

// invalidate drops cached info for name. Loads that started earlier will
// not store their result.
func (m *MetadataCache) invalidate(name string) {
	m.mu.Lock()
	m.gens[name]++
	m.info.Delete(name)
	m.mu.Unlock()
}

// CreateCollection creates the collection and drops any stale info.
func (m *MetadataCache) CreateCollection(ctx context.Context, name string, dimension int, distance domain.DistanceMetric) error {
	defer m.invalidate(name)
	return m.VectorStore.CreateCollection(ctx, name, dimension, distance)
}

// DeleteCollection deletes the collection and its cached info.
func (m *MetadataCache) DeleteCollection(ctx context.Context, name string) error {
	defer m.invalidate(name)
	return m.VectorStore.DeleteCollection(ctx, name)
}

// Upsert writes points and invalidates the collection's info.
func (m *MetadataCache) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	defer m.invalidate(collection)
	return m.VectorStore.Upsert(ctx, collection, points)
}

// DeletePoints removes points and invalidates the collection's info.
func (m *MetadataCache) DeletePoints(ctx context.Context, collection string, ids []string) error {
	defer m.invalidate(collection)
	return m.VectorStore.DeletePoints(ctx, collection, ids)
}

// DeleteByFilter removes matching points and invalidates the collection's info.
func (m *MetadataCache) DeleteByFilter(ctx context.Context, collection string, filter domain.Filter) (int, error) {
	defer m.invalidate(collection)
	return m.VectorStore.DeleteByFilter(ctx, collection, filter)
}

// Invalidate drops all cached collection info.
func (m *MetadataCache) Invalidate() {
	m.mu.Lock()
	m.epoch++
	m.info.Clear()
	m.mu.Unlock()
}
