package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure RAGService implements the driving interfaces.
var (
	_ driving.SearchService   = (*RAGService)(nil)
	_ driving.DocumentService = (*RAGService)(nil)
	_ driving.ChatService     = (*RAGService)(nil)
	_ driving.SystemService   = (*RAGService)(nil)
)

// Health component states.
const (
	componentOK       = "ok"
	componentDisabled = "disabled"
)

const healthTimeout = 5 * time.Second

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RAGService is the request surface shared by every transport.
// It validates input, routes to retrieval, ingestion or generation, and
// maps outcomes onto the error taxonomy.
type RAGService struct {
	search   *SearchOrchestrator
	ingest   *IngestionPipeline
	answers  *AnswerGenerator
	store    driven.VectorStore
	embedder Pinger
	llm      Pinger

	maxBatch int
}

// RAGDeps wires a RAGService. Answers and LLM may be nil, which disables chat.
type RAGDeps struct {
	Search   *SearchOrchestrator
	Ingest   *IngestionPipeline
	Answers  *AnswerGenerator
	Store    driven.VectorStore
	Embedder Pinger
	LLM      Pinger

	// MaxBatch bounds UploadBatch. Zero means domain.DefaultUploadBatchSize.
	MaxBatch int
}

// NewRAGService creates the facade.
func NewRAGService(deps RAGDeps) *RAGService {
	maxBatch := deps.MaxBatch
	if maxBatch <= 0 {
		maxBatch = domain.DefaultUploadBatchSize
	}
	return &RAGService{
		search:   deps.Search,
		ingest:   deps.Ingest,
		answers:  deps.Answers,
		store:    deps.Store,
		embedder: deps.Embedder,
		llm:      deps.LLM,
		maxBatch: maxBatch,
	}
}

// Chat retrieves context and returns a complete grounded answer.
func (s *RAGService) Chat(ctx context.Context, req domain.ChatRequest) (*domain.Answer, error) {
	if err := s.validateChat(req); err != nil {
		return nil, err
	}
	results, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.answers.Generate(ctx, AnswerRequest{
		Question:    req.Message,
		Results:     results,
		History:     req.History,
		Temperature: req.Temperature,
	})
}

// ChatStream retrieves context and streams the answer. Retrieval errors
// are returned directly; generation errors arrive as a terminal event.
func (s *RAGService) ChatStream(ctx context.Context, req domain.ChatRequest) (driving.AnswerStream, error) {
	if err := s.validateChat(req); err != nil {
		return nil, err
	}
	results, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	stream, err := s.answers.GenerateStream(ctx, AnswerRequest{
		Question:    req.Message,
		Results:     results,
		History:     req.History,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// PlainChat answers without retrieval.
func (s *RAGService) PlainChat(ctx context.Context, req domain.ChatRequest) (*domain.Answer, error) {
	if err := s.validateChat(req); err != nil {
		return nil, err
	}
	return s.answers.Plain(ctx, AnswerRequest{
		Question:    req.Message,
		History:     req.History,
		Temperature: req.Temperature,
	})
}

// retrieve searches the named collection, or fans out when several
// collections are configured and none is named.
func (s *RAGService) retrieve(ctx context.Context, req domain.ChatRequest) ([]domain.SearchResult, error) {
	if req.Collection == "" && len(s.search.Collections()) > 1 {
		return s.search.SearchAll(ctx, req.Message, req.TopK)
	}
	return s.search.Search(ctx, domain.SearchRequest{
		Query:      req.Message,
		TopK:       req.TopK,
		Collection: req.Collection,
	})
}

func (s *RAGService) validateChat(req domain.ChatRequest) error {
	if s.answers == nil {
		return domain.ErrLLMUnavailable
	}
	if strings.TrimSpace(req.Message) == "" {
		return domain.ValidationErrorf("message must not be empty")
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return domain.ValidationErrorf("temperature must be between 0 and 2")
	}
	if req.TopK < 0 {
		return domain.ValidationErrorf("top_k must be positive")
	}
	return nil
}

// Search queries one collection.
func (s *RAGService) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	return s.search.Search(ctx, req)
}

// SearchAll queries every configured collection and fuses the results.
func (s *RAGService) SearchAll(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	return s.search.SearchAll(ctx, query, topK)
}

// Similar returns documents similar to documentID.
func (s *RAGService) Similar(ctx context.Context, documentID string, topK int, collection string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.ValidationErrorf("document id must not be empty")
	}
	return s.search.Similar(ctx, documentID, topK, collection)
}

// UploadDocument ingests one document.
func (s *RAGService) UploadDocument(
	ctx context.Context, doc domain.DocumentInput, collection string,
) (*domain.IngestResult, error) {
	if err := validateInput(doc); err != nil {
		return nil, err
	}
	result := s.ingest.Ingest(ctx, doc, collection)
	return &result, nil
}

// UploadBatch ingests up to the batch limit of documents.
func (s *RAGService) UploadBatch(
	ctx context.Context, docs []domain.DocumentInput, collection string,
) (*domain.BatchReport, error) {
	if len(docs) == 0 {
		return nil, domain.ValidationErrorf("batch must contain at least one document")
	}
	if len(docs) > s.maxBatch {
		return nil, domain.ValidationErrorf("batch of %d exceeds the limit of %d", len(docs), s.maxBatch)
	}
	report := s.ingest.IngestBatch(ctx, docs, collection)
	return &report, nil
}

// GetDocument returns a stored document summary.
func (s *RAGService) GetDocument(ctx context.Context, documentID, collection string) (*domain.DocumentInfo, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.ValidationErrorf("document id must not be empty")
	}
	return s.ingest.GetDocumentInfo(ctx, documentID, collection)
}

// DeleteDocument removes every chunk of a document.
func (s *RAGService) DeleteDocument(ctx context.Context, documentID, collection string) (bool, error) {
	if strings.TrimSpace(documentID) == "" {
		return false, domain.ValidationErrorf("document id must not be empty")
	}
	return s.ingest.DeleteDocument(ctx, documentID, collection)
}

// ListCollections returns every collection with its metadata.
// Collections deleted while listing are skipped.
func (s *RAGService) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]domain.Collection, 0, len(names))
	for _, name := range names {
		info, err := s.store.CollectionInfo(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("collection info %s: %w", name, err)
		}
		out = append(out, *info)
	}
	return out, nil
}

// ClearCache drops every cached search result.
func (s *RAGService) ClearCache(_ context.Context) error {
	s.search.ClearCache()
	logger.Info("Search cache cleared")
	return nil
}

// CacheStats reports result cache occupancy.
func (s *RAGService) CacheStats() domain.CacheStats {
	return s.search.CacheStats()
}

// PurgeCache drops expired search results.
func (s *RAGService) PurgeCache() int {
	return s.search.PurgeCache()
}

// RepairCollection re-embeds zero-filled points.
func (s *RAGService) RepairCollection(ctx context.Context, collection string) (int, error) {
	return s.ingest.RepairZeroFilled(ctx, collection)
}

// HealthCheck pings every backend concurrently. The service is degraded
// when any configured backend is unreachable; a missing LLM is not a fault.
func (s *RAGService) HealthCheck(ctx context.Context) (*domain.HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	components := map[string]Pinger{
		"vector_store": s.store,
		"embedding":    s.embedder,
		"llm":          s.llm,
	}

	var (
		mu     sync.Mutex
		g      errgroup.Group
		status = &domain.HealthStatus{Status: domain.HealthOK, Components: map[string]string{}}
	)
	for name, p := range components {
		if p == nil {
			mu.Lock()
			status.Components[name] = componentDisabled
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			state := componentOK
			if err := p.Ping(ctx); err != nil {
				logger.Warn("Health check %s: %v", name, err)
				state = "error: " + err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			status.Components[name] = state
			if state != componentOK {
				status.Status = domain.HealthDegraded
			}
			return nil
		})
	}
	_ = g.Wait()

	if status.Components["vector_store"] == componentOK {
		names, err := s.store.ListCollections(ctx)
		if err != nil {
			status.Components["vector_store"] = "error: " + err.Error()
			status.Status = domain.HealthDegraded
		} else {
			status.CollectionsCount = len(names)
		}
	}
	return status, nil
}
