package httpapi

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// --- Mock implementations ---

type mockSearchService struct {
	results     []domain.SearchResult
	err         error
	lastReq     domain.SearchRequest
	lastSimilar string
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	m.lastReq = req
	return m.results, m.err
}

func (m *mockSearchService) SearchAll(_ context.Context, query string, topK int) ([]domain.SearchResult, error) {
	m.lastReq = domain.SearchRequest{Query: query, TopK: topK}
	return m.results, m.err
}

func (m *mockSearchService) Similar(_ context.Context, documentID string, topK int, collection string) ([]domain.SearchResult, error) {
	m.lastSimilar = documentID
	m.lastReq = domain.SearchRequest{TopK: topK, Collection: collection}
	return m.results, m.err
}

type mockStream struct {
	events  chan domain.StreamEvent
	sources []domain.SearchResult
	closed  bool
}

func newMockStream(events ...domain.StreamEvent) *mockStream {
	ch := make(chan domain.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &mockStream{events: ch}
}

func (s *mockStream) Events() <-chan domain.StreamEvent { return s.events }
func (s *mockStream) Sources() []domain.SearchResult { return s.sources }
func (s *mockStream) Close() { s.closed = true }

type mockChatService struct {
	answer  *domain.Answer
	stream  *mockStream
	err     error
	lastReq domain.ChatRequest
	plain   bool
}

func (m *mockChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.Answer, error) {
	m.lastReq = req
	return m.answer, m.err
}

func (m *mockChatService) ChatStream(_ context.Context, req domain.ChatRequest) (driving.AnswerStream, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

func (m *mockChatService) PlainChat(_ context.Context, req domain.ChatRequest) (*domain.Answer, error) {
	m.lastReq = req
	m.plain = true
	return m.answer, m.err
}

type mockDocumentService struct {
	result     *domain.IngestResult
	report     *domain.BatchReport
	info       *domain.DocumentInfo
	deleted    bool
	err        error
	lastDoc    domain.DocumentInput
	lastBatch  []domain.DocumentInput
	collection string
}

func (m *mockDocumentService) UploadDocument(
	_ context.Context, doc domain.DocumentInput, collection string,
) (*domain.IngestResult, error) {
	m.lastDoc = doc
	m.collection = collection
	return m.result, m.err
}

func (m *mockDocumentService) UploadBatch(
	_ context.Context, docs []domain.DocumentInput, collection string,
) (*domain.BatchReport, error) {
	m.lastBatch = docs
	m.collection = collection
	return m.report, m.err
}

func (m *mockDocumentService) GetDocument(_ context.Context, _, collection string) (*domain.DocumentInfo, error) {
	m.collection = collection
	return m.info, m.err
}

func (m *mockDocumentService) DeleteDocument(_ context.Context, _, _ string) (bool, error) {
	return m.deleted, m.err
}

type mockSystemService struct {
	collections []domain.Collection
	health      *domain.HealthStatus
	stats       domain.CacheStats
	err         error
	cleared     int
}

func (m *mockSystemService) ListCollections(_ context.Context) ([]domain.Collection, error) {
	return m.collections, m.err
}

func (m *mockSystemService) ClearCache(_ context.Context) error {
	m.cleared++
	return m.err
}

func (m *mockSystemService) CacheStats() domain.CacheStats { return m.stats }

func (m *mockSystemService) HealthCheck(_ context.Context) (*domain.HealthStatus, error) {
	if m.health == nil {
		return &domain.HealthStatus{Status: domain.HealthOK}, m.err
	}
	return m.health, m.err
}

func (m *mockSystemService) RepairCollection(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

type mockSettingsService struct {
	settings domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(string, string) error { return nil }
func (m *mockSettingsService) Lookup(string) (any, bool) { return nil, false }
func (m *mockSettingsService) Keys() []string { return nil }
func (m *mockSettingsService) Validate() error { return nil }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
