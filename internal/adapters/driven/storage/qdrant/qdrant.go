// Package qdrant provides a VectorStore backed by a Qdrant server over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL       = "http://localhost:6333"
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 100
)

const providerName = "qdrant"

// scrollPage bounds points fetched per scroll request.
const scrollPage = 256

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant REST endpoint (default: http://localhost:6333).
	URL string

	// APIKey authenticates against Qdrant Cloud. Optional for local servers.
	APIKey string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// BatchSize bounds points per upsert request (default: 100).
	BatchSize int
}

// Store is a minimal REST client to Qdrant.
type Store struct {
	url       string
	apiKey    string
	batchSize int
	client    *http.Client

	// Collection geometry is fixed at creation, so it is looked up once.
	mu     sync.RWMutex
	shapes map[string]shape
}

type shape struct {
	dimension int
	distance  domain.DistanceMetric
}

// New creates a Qdrant store. It does not contact the server.
func New(cfg Config) *Store {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Store{
		url:       strings.TrimRight(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
		shapes:    make(map[string]shape),
	}
}

// Wire types.

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type collectionInfo struct {
	Status      string `json:"status"`
	PointsCount *int   `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors vectorParams `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

type wirePoint struct {
	ID      any            `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Score   float64        `json:"score,omitempty"`
}

type condition struct {
	Key   string `json:"key"`
	Match struct {
		Value any `json:"value"`
	} `json:"match"`
}

type filter struct {
	Must []condition `json:"must"`
}

type errorBody struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

var distanceNames = map[domain.DistanceMetric]string{
	domain.DistanceCosine:    "Cosine",
	domain.DistanceDot:       "Dot",
	domain.DistanceEuclidean: "Euclid",
}

func metricFromName(name string) domain.DistanceMetric {
	for m, n := range distanceNames {
		if strings.EqualFold(n, name) {
			return m
		}
	}
	return domain.DistanceCosine
}

// CollectionExists reports whether the collection exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := s.info(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateCollection creates a collection. Existing collections are left unchanged.
func (s *Store) CreateCollection(ctx context.Context, name string, dimension int, distance domain.DistanceMetric) error {
	if name == "" || dimension <= 0 {
		return domain.ValidationErrorf("collection needs a name and positive dimension")
	}
	wireDistance, ok := distanceNames[distance]
	if !ok {
		return domain.ValidationErrorf("unknown distance metric %q", distance)
	}

	exists, err := s.CollectionExists(ctx, name)
	if err != nil || exists {
		return err
	}

	body := map[string]any{"vectors": vectorParams{Size: dimension, Distance: wireDistance}}
	err = s.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(name), body, nil)
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusConflict {
		return nil // created concurrently
	}
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	logger.Info("Created qdrant collection %s (dim=%d, %s)", name, dimension, distance)
	return nil
}

// DeleteCollection removes a collection and all its points.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.info(ctx, name); err != nil {
		return err
	}
	s.forget(name)
	if err := s.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(name), nil, nil); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	return nil
}

// ListCollections returns collection names in lexical order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections", nil, &result); err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	names := make([]string, len(result.Collections))
	for i, c := range result.Collections {
		names[i] = c.Name
	}
	slices.Sort(names)
	return names, nil
}

// CollectionInfo returns dimension, point count and status.
func (s *Store) CollectionInfo(ctx context.Context, name string) (*domain.Collection, error) {
	info, err := s.info(ctx, name)
	if err != nil {
		return nil, err
	}
	c := &domain.Collection{
		Name:      name,
		Dimension: info.Config.Params.Vectors.Size,
		Distance:  metricFromName(info.Config.Params.Vectors.Distance),
		Status:    domain.CollectionStatus(info.Status),
	}
	if info.PointsCount != nil {
		c.PointCount = *info.PointsCount
	}
	return c, nil
}

// Upsert validates every vector, then writes points in batches and waits for each to apply.
func (s *Store) Upsert(ctx context.Context, name string, points []domain.Point) error {
	sh, err := s.shape(ctx, name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != sh.dimension {
			return &domain.DimensionMismatchError{Collection: name, Expected: sh.dimension, Got: len(p.Vector)}
		}
	}

	path := "/collections/" + url.PathEscape(name) + "/points?wait=true"
	for start := 0; start < len(points); start += s.batchSize {
		batch := points[start:min(start+s.batchSize, len(points))]
		wire := make([]wirePoint, len(batch))
		for i, p := range batch {
			wire[i] = wirePoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload.Fields()}
		}
		if err := s.do(ctx, http.MethodPut, path, map[string]any{"points": wire}, nil); err != nil {
			return fmt.Errorf("upserting %d points into %s: %w", len(batch), name, err)
		}
	}
	return nil
}

// Search returns hits by descending score. Euclidean distances are
// converted so that higher is better, matching the other backends.
func (s *Store) Search(ctx context.Context, name string, vector []float32, params domain.SearchParams) ([]domain.Hit, error) {
	sh, err := s.shape(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != sh.dimension {
		return nil, &domain.DimensionMismatchError{Collection: name, Expected: sh.dimension, Got: len(vector)}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = domain.DefaultMaxTopK
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if f := toFilter(params.Filter); f != nil {
		body["filter"] = f
	}
	euclid := sh.distance == domain.DistanceEuclidean
	if !euclid && params.ScoreThreshold > 0 {
		body["score_threshold"] = params.ScoreThreshold
	}

	var result []wirePoint
	if err := s.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(name)+"/points/search", body, &result); err != nil {
		return nil, fmt.Errorf("searching %s: %w", name, err)
	}

	hits := make([]domain.Hit, 0, len(result))
	for _, r := range result {
		score := r.Score
		if euclid {
			score = 1 / (1 + r.Score)
		}
		if score < params.ScoreThreshold {
			continue
		}
		hits = append(hits, domain.Hit{ID: idString(r.ID), Score: score, Payload: domain.PayloadFromFields(r.Payload)})
	}
	domain.SortHits(hits)
	return hits, nil
}

// Retrieve fetches points by ID. Missing IDs are skipped.
func (s *Store) Retrieve(ctx context.Context, name string, ids []string) ([]domain.Hit, error) {
	if len(ids) == 0 {
		if _, err := s.shape(ctx, name); err != nil {
			return nil, err
		}
		return []domain.Hit{}, nil
	}
	var result []wirePoint
	body := map[string]any{"ids": ids, "with_payload": true}
	if err := s.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(name)+"/points", body, &result); err != nil {
		return nil, s.notFound(name, fmt.Errorf("retrieving points from %s: %w", name, err))
	}
	return toHits(result), nil
}

// Scroll pages through matching points in ID order.
func (s *Store) Scroll(ctx context.Context, name string, f domain.Filter, limit int) ([]domain.Hit, error) {
	hits := []domain.Hit{}
	var offset any
	for {
		page := scrollPage
		if limit > 0 {
			page = min(page, limit-len(hits))
		}
		body := map[string]any{"limit": page, "with_payload": true, "with_vector": false}
		if wf := toFilter(f); wf != nil {
			body["filter"] = wf
		}
		if offset != nil {
			body["offset"] = offset
		}

		var result struct {
			Points         []wirePoint `json:"points"`
			NextPageOffset any         `json:"next_page_offset"`
		}
		if err := s.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(name)+"/points/scroll", body, &result); err != nil {
			return nil, s.notFound(name, fmt.Errorf("scrolling %s: %w", name, err))
		}
		hits = append(hits, toHits(result.Points)...)

		if result.NextPageOffset == nil || (limit > 0 && len(hits) >= limit) {
			return hits, nil
		}
		offset = result.NextPageOffset
	}
}

// DeletePoints removes points by ID.
func (s *Store) DeletePoints(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	path := "/collections/" + url.PathEscape(name) + "/points/delete?wait=true"
	if err := s.do(ctx, http.MethodPost, path, map[string]any{"points": ids}, nil); err != nil {
		return s.notFound(name, fmt.Errorf("deleting points from %s: %w", name, err))
	}
	return nil
}

// DeleteByFilter scrolls the matching points, then deletes them by ID.
func (s *Store) DeleteByFilter(ctx context.Context, name string, f domain.Filter) (int, error) {
	hits, err := s.Scroll(ctx, name, f, 0)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	if err := s.DeletePoints(ctx, name, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Ping lists collections, which also validates the API key.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/collections", nil, nil)
}

// Close releases resources.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) info(ctx context.Context, name string) (*collectionInfo, error) {
	var info collectionInfo
	if err := s.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(name), nil, &info); err != nil {
		return nil, s.notFound(name, fmt.Errorf("collection info %s: %w", name, err))
	}
	return &info, nil
}

func (s *Store) shape(ctx context.Context, name string) (shape, error) {
	s.mu.RLock()
	sh, ok := s.shapes[name]
	s.mu.RUnlock()
	if ok {
		return sh, nil
	}

	info, err := s.info(ctx, name)
	if err != nil {
		return shape{}, err
	}
	sh = shape{
		dimension: info.Config.Params.Vectors.Size,
		distance:  metricFromName(info.Config.Params.Vectors.Distance),
	}
	s.mu.Lock()
	s.shapes[name] = sh
	s.mu.Unlock()
	return sh, nil
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	delete(s.shapes, name)
	s.mu.Unlock()
}

// notFound rewrites a 404 into domain.ErrNotFound and drops the cached shape.
func (s *Store) notFound(name string, err error) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound {
		s.forget(name)
		return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return err
}

// do sends a JSON request and decodes the "result" field of the response into out.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.NewProviderError(providerName, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewProviderError(providerName, 0, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(string(raw))
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Status.Error != "" {
			msg = eb.Status.Error
		}
		return domain.NewProviderError(providerName, resp.StatusCode, fmt.Errorf("%s %s: %s", method, path, msg))
	}
	if out == nil {
		return nil
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.NewProviderError(providerName, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return domain.NewProviderError(providerName, resp.StatusCode, fmt.Errorf("decode result: %w", err))
	}
	return nil
}

func toFilter(f domain.Filter) *filter {
	if len(f) == 0 {
		return nil
	}
	out := &filter{Must: make([]condition, 0, len(f))}
	for _, k := range slices.Sorted(maps.Keys(f)) {
		c := condition{Key: k}
		c.Match.Value = f[k]
		out.Must = append(out.Must, c)
	}
	return out
}

func toHits(points []wirePoint) []domain.Hit {
	hits := make([]domain.Hit, len(points))
	for i, p := range points {
		hits[i] = domain.Hit{ID: idString(p.ID), Payload: domain.PayloadFromFields(p.Payload)}
	}
	return hits
}

// idString renders UUID and integer point IDs alike.
func idString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}
