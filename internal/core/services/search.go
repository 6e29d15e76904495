package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sercha-rag/internal/cache"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// QueryEmbedder turns a query into a vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchConfig configures a SearchOrchestrator.
type SearchConfig struct {
	// DefaultCollection is searched when a request names none.
	DefaultCollection string

	// Collections are searched by SearchAll.
	Collections []string

	DefaultTopK    int
	MaxTopK        int
	ScoreThreshold float64

	CacheEnabled bool
	CacheTTL     time.Duration
	CacheMaxSize int

	// BranchTimeout bounds each collection search in a fan-out.
	BranchTimeout time.Duration
}

// SearchOption configures a SearchOrchestrator.
type SearchOption func(*searchOptions)

type searchOptions struct {
	cacheOpts []cache.Option
}

// WithCacheOptions passes options to the result cache, e.g. a fake clock.
func WithCacheOptions(opts ...cache.Option) SearchOption {
	return func(o *searchOptions) {
		o.cacheOpts = append(o.cacheOpts, opts...)
	}
}

// searchKey identifies a cached result list.
type searchKey struct {
	collection string
	topK       int
	threshold  float64
	query      string
}

func (k searchKey) String() string {
	return fmt.Sprintf("%s|%d|%g|%s", k.collection, k.topK, k.threshold, k.query)
}

// SearchOrchestrator runs vector searches with result caching and
// multi-collection fusion.
type SearchOrchestrator struct {
	store    driven.VectorStore
	embedder QueryEmbedder
	cfg      SearchConfig
	results  *cache.TTL[searchKey, []domain.SearchResult]
	flight   singleflight.Group
}

// NewSearchOrchestrator creates an orchestrator. Zero config fields take defaults.
func NewSearchOrchestrator(
	store driven.VectorStore,
	embedder QueryEmbedder,
	cfg SearchConfig,
	opts ...SearchOption,
) *SearchOrchestrator {
	if cfg.DefaultCollection == "" {
		cfg.DefaultCollection = domain.DefaultCollection
	}
	if len(cfg.Collections) == 0 {
		cfg.Collections = []string{cfg.DefaultCollection}
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = domain.DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = domain.DefaultMaxTopK
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = domain.DefaultCacheTTL
	}
	if cfg.CacheMaxSize <= 0 {
		cfg.CacheMaxSize = domain.DefaultCacheMaxSize
	}
	if cfg.BranchTimeout <= 0 {
		cfg.BranchTimeout = domain.DefaultRequestTimeout
	}

	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &SearchOrchestrator{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		results:  cache.New[searchKey, []domain.SearchResult](cfg.CacheTTL, cfg.CacheMaxSize, o.cacheOpts...),
	}
}

// DefaultCollection returns the collection used when none is named.
func (s *SearchOrchestrator) DefaultCollection() string {
	return s.cfg.DefaultCollection
}

// Collections returns the collections SearchAll fans out to.
func (s *SearchOrchestrator) Collections() []string {
	return append([]string(nil), s.cfg.Collections...)
}

// Search queries one collection. Identical unfiltered queries within the
// cache TTL are answered from the cache without touching any backend.
func (s *SearchOrchestrator) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	req, err := s.normalise(req)
	if err != nil {
		return nil, err
	}
	logger.Debug("Search %q in %s (top_k=%d, threshold=%.2f)", req.Query, req.Collection, req.TopK, *req.Threshold)

	if len(req.Filter) > 0 || !s.cfg.CacheEnabled {
		vector, err := s.embedder.EmbedQuery(ctx, req.Query)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		return s.searchVector(ctx, req, vector)
	}

	key := searchKey{collection: req.Collection, topK: req.TopK, threshold: *req.Threshold, query: req.Query}
	if cached, ok := s.results.Get(key); ok {
		logger.Debug("Search cache hit for %q", req.Query)
		return cached, nil
	}

	// The shared load outlives any one caller; each caller still stops
	// waiting when its own context ends.
	ch := s.flight.DoChan(key.String(), func() (any, error) {
		if cached, ok := s.results.Get(key); ok {
			return cached, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BranchTimeout)
		defer cancel()

		vector, err := s.embedder.EmbedQuery(loadCtx, req.Query)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		results, err := s.searchVector(loadCtx, req, vector)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			s.results.Set(key, results)
		}
		return results, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("search: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.SearchResult), nil
	}
}

// MultiCollectionSearch embeds the query once and searches every
// collection concurrently. A failing collection yields an empty list.
func (s *SearchOrchestrator) MultiCollectionSearch(
	ctx context.Context, query string, collections []string, topK int,
) (map[string][]domain.SearchResult, error) {
	req, err := s.normalise(domain.SearchRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		collections = s.cfg.Collections
	}

	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("multi-collection search: %w", err)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string][]domain.SearchResult, len(collections))
	)
	for _, name := range collections {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			branchCtx, cancel := context.WithTimeout(ctx, s.cfg.BranchTimeout)
			defer cancel()

			branch := req
			branch.Collection = name
			results, err := s.searchVector(branchCtx, branch, vector)
			if err != nil {
				logger.Warn("Search in collection %s failed: %v", name, err)
				results = []domain.SearchResult{}
			}

			mu.Lock()
			out[name] = results
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	return out, nil
}

// SearchAll searches every configured collection and fuses the results.
func (s *SearchOrchestrator) SearchAll(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	perCollection, err := s.MultiCollectionSearch(ctx, query, s.cfg.Collections, topK)
	if err != nil {
		return nil, err
	}
	return Fuse(perCollection, topK), nil
}

// Fuse pools per-collection results, orders them by score (ties broken by
// original rank, then collection name) and re-ranks the top topK from 1.
func Fuse(perCollection map[string][]domain.SearchResult, topK int) []domain.SearchResult {
	var pooled []domain.SearchResult
	for name, results := range perCollection {
		for _, r := range results {
			r.Collection = name
			pooled = append(pooled, r)
		}
	}

	sort.SliceStable(pooled, func(i, j int) bool {
		a, b := pooled[i], pooled[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Collection < b.Collection
	})

	if topK >= 0 && len(pooled) > topK {
		pooled = pooled[:topK]
	}
	for i := range pooled {
		pooled[i].Rank = i + 1
	}
	return pooled
}

// Similar finds documents resembling documentID, seeded by its first chunk.
// The seed document never appears in the results.
func (s *SearchOrchestrator) Similar(
	ctx context.Context, documentID string, topK int, collection string,
) ([]domain.SearchResult, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.ValidationErrorf("document id is required")
	}
	if collection == "" {
		collection = s.cfg.DefaultCollection
	}
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	seed, err := s.store.Scroll(ctx, collection, domain.Filter{
		domain.PayloadDocumentID: documentID,
		domain.PayloadChunkIndex: 0,
	}, 1)
	if err != nil {
		return nil, fmt.Errorf("similar: %w", err)
	}
	if len(seed) == 0 || strings.TrimSpace(seed[0].Payload.Content) == "" {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	// Every chunk of the seed document may rank ahead of other documents.
	results, err := s.Search(ctx, domain.SearchRequest{
		Query:      seed[0].Payload.Content,
		TopK:       min(topK+max(seed[0].Payload.TotalChunks, 1), s.cfg.MaxTopK),
		Collection: collection,
	})
	if err != nil {
		return nil, err
	}

	similar := make([]domain.SearchResult, 0, topK)
	for _, r := range results {
		if r.DocumentID == documentID {
			continue
		}
		similar = append(similar, r)
		if len(similar) == topK {
			break
		}
	}
	for i := range similar {
		similar[i].Rank = i + 1
	}
	return similar, nil
}

// InvalidateCollection drops every cached result for a collection.
func (s *SearchOrchestrator) InvalidateCollection(collection string) {
	if n := s.results.DeleteFunc(func(k searchKey) bool { return k.collection == collection }); n > 0 {
		logger.Debug("Invalidated %d cached searches for %s", n, collection)
	}
}

// ClearCache drops every cached result.
func (s *SearchOrchestrator) ClearCache() {
	s.results.Clear()
}

// PurgeCache drops expired entries and returns how many were removed.
func (s *SearchOrchestrator) PurgeCache() int {
	return s.results.Purge()
}

// CacheStats reports result cache occupancy.
func (s *SearchOrchestrator) CacheStats() domain.CacheStats {
	s.results.Purge()
	return domain.CacheStats{
		Enabled: s.cfg.CacheEnabled,
		Size:    s.results.Len(),
		MaxSize: s.results.MaxSize(),
	}
}

// normalise validates a request and fills in defaults.
func (s *SearchOrchestrator) normalise(req domain.SearchRequest) (domain.SearchRequest, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, domain.ValidationErrorf("query must not be empty")
	}
	if req.TopK == 0 {
		req.TopK = s.cfg.DefaultTopK
	}
	if req.TopK < 1 || req.TopK > s.cfg.MaxTopK {
		return req, domain.ValidationErrorf("top_k must be between 1 and %d", s.cfg.MaxTopK)
	}
	if req.Collection == "" {
		req.Collection = s.cfg.DefaultCollection
	}
	threshold := s.cfg.ScoreThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
		if threshold < 0 || threshold > 1 {
			return req, domain.ValidationErrorf("threshold must be between 0 and 1")
		}
	}
	req.Threshold = &threshold
	return req, nil
}

func (s *SearchOrchestrator) searchVector(
	ctx context.Context, req domain.SearchRequest, vector []float32,
) ([]domain.SearchResult, error) {
	hits, err := s.store.Search(ctx, req.Collection, vector, domain.SearchParams{
		Limit:          req.TopK,
		ScoreThreshold: *req.Threshold,
		Filter:         req.Filter,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.Collection, err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for i, hit := range hits {
		results = append(results, toSearchResult(hit, req.Collection, i+1))
	}
	return results, nil
}

// toSearchResult maps a backend hit. Metadata carries every payload field
// except the chunk text and title, which have their own fields.
func toSearchResult(hit domain.Hit, collection string, rank int) domain.SearchResult {
	fields := hit.Payload.Fields()
	delete(fields, domain.PayloadContent)
	delete(fields, domain.PayloadText)
	delete(fields, domain.PayloadTitle)

	return domain.SearchResult{
		ID:         hit.ID,
		Score:      hit.Score,
		Rank:       rank,
		Content:    hit.Payload.Content,
		Title:      hit.Payload.Title,
		Metadata:   fields,
		Collection: collection,
		DocumentID: hit.Payload.DocumentID,
	}
}
