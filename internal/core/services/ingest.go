package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// untitled is stored when a document is submitted without a title.
const untitled = "Untitled"

// DocumentEmbedder embeds chunk texts for indexing.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) (*EmbedBatch, error)
	Dimensions() int
}

// CacheInvalidator drops cached search results for a collection.
type CacheInvalidator interface {
	InvalidateCollection(collection string)
}

// IngestOption configures an IngestionPipeline.
type IngestOption func(*IngestionPipeline)

// WithInvalidator registers the search cache to invalidate after writes.
func WithInvalidator(inv CacheInvalidator) IngestOption {
	return func(p *IngestionPipeline) {
		p.invalidator = inv
	}
}

// WithIngestClock replaces time.Now for upload timestamps.
func WithIngestClock(now func() time.Time) IngestOption {
	return func(p *IngestionPipeline) {
		p.now = now
	}
}

// WithDistance sets the metric for collections created on first ingest.
func WithDistance(d domain.DistanceMetric) IngestOption {
	return func(p *IngestionPipeline) {
		p.distance = d
	}
}

// IngestionPipeline turns documents into stored points:
// chunk, embed, build points, upsert, invalidate the search cache.
type IngestionPipeline struct {
	store             driven.VectorStore
	embedder          DocumentEmbedder
	chunker           driven.PostProcessorPipeline
	invalidator       CacheInvalidator
	defaultCollection string
	distance          domain.DistanceMetric
	now               func() time.Time

	// collMu serialises lazy collection creation.
	collMu sync.Mutex
}

// NewIngestionPipeline creates a pipeline writing to defaultCollection
// when callers name none.
func NewIngestionPipeline(
	store driven.VectorStore,
	embedder DocumentEmbedder,
	chunker driven.PostProcessorPipeline,
	defaultCollection string,
	opts ...IngestOption,
) *IngestionPipeline {
	if defaultCollection == "" {
		defaultCollection = domain.DefaultCollection
	}
	p := &IngestionPipeline{
		store:             store,
		embedder:          embedder,
		chunker:           chunker,
		defaultCollection: defaultCollection,
		distance:          domain.DistanceCosine,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest stores one document. Failures are reported in the result and
// leave the index untouched.
func (p *IngestionPipeline) Ingest(ctx context.Context, input domain.DocumentInput, collection string) domain.IngestResult {
	collection = p.collection(collection)
	result := domain.IngestResult{
		Title:      titleOrDefault(input.Title),
		Collection: collection,
		State:      domain.StateNew,
	}

	if err := validateInput(input); err != nil {
		result.Fail(err)
		return result
	}

	doc := domain.NewDocument(input.Content, result.Title, input.Metadata)
	doc.CreatedAt = p.now().UTC()
	result.DocumentID = doc.ID

	chunks, err := p.chunker.Process(ctx, doc)
	if err != nil {
		result.Fail(fmt.Errorf("chunk: %w", err))
		return result
	}
	if len(chunks) == 0 {
		result.Fail(domain.ErrEmptyDocument)
		return result
	}
	result.State = domain.StateChunked
	result.ChunkCount = len(chunks)

	if err := p.ensureCollection(ctx, collection); err != nil {
		result.Fail(err)
		return result
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	batch, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		result.Fail(err)
		return result
	}
	result.State = domain.StateEmbedded
	result.ZeroFilled = batch.ZeroFilled

	if err := p.store.Upsert(ctx, collection, buildPoints(doc, chunks, batch)); err != nil {
		result.Fail(fmt.Errorf("upsert: %w", err))
		return result
	}
	result.State = domain.StateStored
	p.invalidate(collection)

	if len(batch.ZeroFilled) > 0 {
		logger.Warn("Document %s stored with %d zero-filled chunks", doc.ID, len(batch.ZeroFilled))
	}
	logger.Info("Ingested %s (%q) into %s: %d chunks", doc.ID, doc.Title, collection, len(chunks))
	return result
}

// IngestBatch ingests documents in order, isolating failures per document.
// Once ctx is cancelled the remaining documents fail with the context error.
func (p *IngestionPipeline) IngestBatch(ctx context.Context, docs []domain.DocumentInput, collection string) domain.BatchReport {
	collection = p.collection(collection)
	report := domain.BatchReport{Total: len(docs), Results: make([]domain.IngestResult, 0, len(docs))}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			skipped := domain.IngestResult{
				Title:      titleOrDefault(doc.Title),
				Collection: collection,
				State:      domain.StateNew,
			}
			if strings.TrimSpace(doc.Content) != "" {
				skipped.DocumentID = domain.DocumentID(doc.Content)
			}
			skipped.Fail(err)
			report.Add(skipped)
			continue
		}
		report.Add(p.Ingest(ctx, doc, collection))
	}

	logger.Info("Batch into %s: %d succeeded, %d failed", collection, report.Succeeded, report.Failed)
	return report
}

// DeleteDocument removes every point of a document. It reports false when
// nothing matched, including when the collection does not exist.
func (p *IngestionPipeline) DeleteDocument(ctx context.Context, documentID, collection string) (bool, error) {
	collection = p.collection(collection)
	n, err := p.store.DeleteByFilter(ctx, collection, domain.Filter{domain.PayloadDocumentID: documentID})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete document %s: %w", documentID, err)
	}
	if n > 0 {
		p.invalidate(collection)
		logger.Info("Deleted %d points of %s from %s", n, documentID, collection)
	}
	return n > 0, nil
}

// PruneSource removes points ingested from source whose document differs
// from keep, and returns how many were removed. An empty keep removes every
// point from source. A missing collection prunes nothing.
func (p *IngestionPipeline) PruneSource(ctx context.Context, source, keep, collection string) (int, error) {
	collection = p.collection(collection)
	hits, err := p.store.Scroll(ctx, collection, domain.Filter{domain.MetadataSource: source}, 0)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", source, err)
	}

	var stale []string
	for _, h := range hits {
		if h.Payload.DocumentID != keep {
			stale = append(stale, h.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := p.store.DeletePoints(ctx, collection, stale); err != nil {
		return 0, fmt.Errorf("prune %s: %w", source, err)
	}
	p.invalidate(collection)
	logger.Info("Pruned %d stale points of %s from %s", len(stale), source, collection)
	return len(stale), nil
}

// GetDocumentInfo summarises a stored document from its first chunk.
func (p *IngestionPipeline) GetDocumentInfo(ctx context.Context, documentID, collection string) (*domain.DocumentInfo, error) {
	collection = p.collection(collection)
	hits, err := p.store.Scroll(ctx, collection, domain.Filter{
		domain.PayloadDocumentID: documentID,
		domain.PayloadChunkIndex: 0,
	}, 1)
	if err == nil && len(hits) == 0 {
		hits, err = p.store.Scroll(ctx, collection, domain.Filter{domain.PayloadDocumentID: documentID}, 1)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	payload := hits[0].Payload
	metadata := payload.Extra
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &domain.DocumentInfo{
		DocumentID:  documentID,
		Title:       payload.Title,
		Collection:  collection,
		TotalChunks: payload.TotalChunks,
		UploadedAt:  payload.UploadedAt,
		Metadata:    metadata,
	}, nil
}

// RepairZeroFilled re-embeds points stored with a zero vector and returns
// how many were repaired. Points that fail again keep their zero vector.
func (p *IngestionPipeline) RepairZeroFilled(ctx context.Context, collection string) (int, error) {
	collection = p.collection(collection)
	hits, err := p.store.Scroll(ctx, collection, domain.Filter{
		domain.PayloadEmbeddingStatus: string(domain.EmbeddingZeroFilled),
	}, 0)
	if err != nil {
		return 0, fmt.Errorf("repair %s: %w", collection, err)
	}
	if len(hits) == 0 {
		return 0, nil
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Payload.Content
	}
	batch, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("repair %s: %w", collection, err)
	}

	failed := make(map[int]bool, len(batch.ZeroFilled))
	for _, i := range batch.ZeroFilled {
		failed[i] = true
	}
	points := make([]domain.Point, 0, len(hits))
	for i, h := range hits {
		if failed[i] {
			continue
		}
		payload := h.Payload
		payload.EmbeddingStatus = domain.EmbeddingOK
		points = append(points, domain.Point{ID: h.ID, Vector: batch.Vectors[i], Payload: payload})
	}
	if len(points) == 0 {
		return 0, nil
	}

	if err := p.store.Upsert(ctx, collection, points); err != nil {
		return 0, fmt.Errorf("repair %s: %w", collection, err)
	}
	p.invalidate(collection)
	logger.Info("Repaired %d of %d zero-filled points in %s", len(points), len(hits), collection)
	return len(points), nil
}

// ensureCollection creates the collection on first use and rejects an
// existing collection whose dimension differs from the embedder's.
func (p *IngestionPipeline) ensureCollection(ctx context.Context, collection string) error {
	p.collMu.Lock()
	defer p.collMu.Unlock()

	dims := p.embedder.Dimensions()
	exists, err := p.store.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		logger.Info("Creating collection %s (dimension %d, %s)", collection, dims, p.distance)
		if err := p.store.CreateCollection(ctx, collection, dims, p.distance); err != nil {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
		return nil
	}

	info, err := p.store.CollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("collection info %s: %w", collection, err)
	}
	if info.Dimension != dims {
		return &domain.DimensionMismatchError{Collection: collection, Expected: info.Dimension, Got: dims}
	}
	return nil
}

func (p *IngestionPipeline) collection(name string) string {
	if name == "" {
		return p.defaultCollection
	}
	return name
}

func (p *IngestionPipeline) invalidate(collection string) {
	if p.invalidator != nil {
		p.invalidator.InvalidateCollection(collection)
	}
}

func buildPoints(doc *domain.Document, chunks []domain.Chunk, batch *EmbedBatch) []domain.Point {
	zero := make(map[int]bool, len(batch.ZeroFilled))
	for _, i := range batch.ZeroFilled {
		zero[i] = true
	}

	points := make([]domain.Point, len(chunks))
	for i, c := range chunks {
		status := domain.EmbeddingOK
		if zero[i] {
			status = domain.EmbeddingZeroFilled
		}
		points[i] = domain.Point{
			ID:     PointID(doc.ID, c.Index),
			Vector: batch.Vectors[i],
			Payload: domain.Payload{
				DocumentID:      doc.ID,
				Title:           doc.Title,
				Content:         c.Content,
				ChunkIndex:      c.Index,
				TotalChunks:     len(chunks),
				UploadedAt:      doc.CreatedAt,
				EmbeddingStatus: status,
				Extra:           doc.Metadata,
			},
		}
	}
	return points
}

func validateInput(input domain.DocumentInput) error {
	if strings.TrimSpace(input.Content) == "" {
		return domain.ErrEmptyDocument
	}
	return domain.ValidateMetadata(input.Metadata)
}

func titleOrDefault(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return untitled
}
