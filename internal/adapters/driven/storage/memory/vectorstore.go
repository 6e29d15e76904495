package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

type collection struct {
	info   domain.Collection
	points map[string]domain.Point
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// Search is a brute-force scan, which is fine for tests and small corpora.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*collection),
	}
}

// CollectionExists reports whether the collection exists.
func (s *VectorStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// CreateCollection creates a collection if it does not exist.
func (s *VectorStore) CreateCollection(_ context.Context, name string, dimension int, distance domain.DistanceMetric) error {
	if name == "" || dimension <= 0 {
		return domain.ValidationErrorf("collection needs a name and positive dimension")
	}
	if !distance.IsValid() {
		return domain.ValidationErrorf("unknown distance metric %q", distance)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &collection{
		info: domain.Collection{
			Name:      name,
			Dimension: dimension,
			Distance:  distance,
			Status:    domain.CollectionGreen,
		},
		points: make(map[string]domain.Point),
	}
	return nil
}

// DeleteCollection removes a collection.
func (s *VectorStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	delete(s.collections, name)
	return nil
}

// ListCollections returns collection names in lexical order.
func (s *VectorStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CollectionInfo returns collection metadata.
func (s *VectorStore) CollectionInfo(_ context.Context, name string) (*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	info := c.info
	info.PointCount = len(c.points)
	return &info, nil
}

// Upsert stores points, rejecting the whole call if any vector has the wrong size.
func (s *VectorStore) Upsert(_ context.Context, name string, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := c.info.CheckDimension(p.Vector); err != nil {
			return err
		}
	}
	for _, p := range points {
		p.Vector = append([]float32(nil), p.Vector...)
		c.points[p.ID] = p
	}
	return nil
}

// Search scores every point in the collection.
func (s *VectorStore) Search(_ context.Context, name string, vector []float32, params domain.SearchParams) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	if err := c.info.CheckDimension(vector); err != nil {
		return nil, err
	}

	var hits []domain.Hit
	for _, p := range c.points {
		if len(params.Filter) > 0 && !params.Filter.Matches(p.Payload.Fields()) {
			continue
		}
		score := domain.Similarity(c.info.Distance, vector, p.Vector)
		if score < params.ScoreThreshold {
			continue
		}
		hits = append(hits, domain.Hit{ID: p.ID, Score: score, Payload: p.Payload})
	}
	domain.SortHits(hits)
	if params.Limit > 0 && len(hits) > params.Limit {
		hits = hits[:params.Limit]
	}
	return hits, nil
}

// Retrieve fetches points by ID, skipping unknown IDs.
func (s *VectorStore) Retrieve(_ context.Context, name string, ids []string) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.points[id]; ok {
			hits = append(hits, domain.Hit{ID: p.ID, Payload: p.Payload})
		}
	}
	return hits, nil
}

// Scroll returns matching points ordered by ID.
func (s *VectorStore) Scroll(_ context.Context, name string, filter domain.Filter, limit int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.get(name)
	if err != nil {
		return nil, err
	}
	ids := s.matching(c, filter)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	hits := make([]domain.Hit, 0, len(ids))
	for _, id := range ids {
		hits = append(hits, domain.Hit{ID: id, Payload: c.points[id].Payload})
	}
	return hits, nil
}

// DeletePoints removes points by ID.
func (s *VectorStore) DeletePoints(_ context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.points, id)
	}
	return nil
}

// DeleteByFilter removes every matching point.
func (s *VectorStore) DeleteByFilter(_ context.Context, name string, filter domain.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.get(name)
	if err != nil {
		return 0, err
	}
	ids := s.matching(c, filter)
	for _, id := range ids {
		delete(c.points, id)
	}
	return len(ids), nil
}

// Ping always succeeds.
func (s *VectorStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}

// get must be called with the lock held.
func (s *VectorStore) get(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return c, nil
}

func (s *VectorStore) matching(c *collection, filter domain.Filter) []string {
	ids := make([]string, 0, len(c.points))
	for id, p := range c.points {
		if len(filter) == 0 || filter.Matches(p.Payload.Fields()) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
