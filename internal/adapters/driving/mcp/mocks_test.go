package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// --- Mock implementations ---

type mockSearchService struct {
	results  []domain.SearchResult
	err      error
	lastReq  domain.SearchRequest
	allCalls int
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	m.lastReq = req
	return m.results, m.err
}

func (m *mockSearchService) SearchAll(_ context.Context, query string, topK int) ([]domain.SearchResult, error) {
	m.allCalls++
	m.lastReq = domain.SearchRequest{Query: query, TopK: topK}
	return m.results, m.err
}

func (m *mockSearchService) Similar(_ context.Context, _ string, _ int, _ string) ([]domain.SearchResult, error) {
	return m.results, m.err
}

type mockChatService struct {
	answer  *domain.Answer
	err     error
	lastReq domain.ChatRequest
}

func (m *mockChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.Answer, error) {
	m.lastReq = req
	return m.answer, m.err
}

func (m *mockChatService) ChatStream(_ context.Context, _ domain.ChatRequest) (driving.AnswerStream, error) {
	return nil, m.err
}

func (m *mockChatService) PlainChat(_ context.Context, req domain.ChatRequest) (*domain.Answer, error) {
	m.lastReq = req
	return m.answer, m.err
}

type mockDocumentService struct {
	info *domain.DocumentInfo
	err  error
}

func (m *mockDocumentService) UploadDocument(
	_ context.Context, _ domain.DocumentInput, _ string,
) (*domain.IngestResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) UploadBatch(
	_ context.Context, _ []domain.DocumentInput, _ string,
) (*domain.BatchReport, error) {
	return nil, m.err
}

func (m *mockDocumentService) GetDocument(_ context.Context, _, _ string) (*domain.DocumentInfo, error) {
	return m.info, m.err
}

func (m *mockDocumentService) DeleteDocument(_ context.Context, _, _ string) (bool, error) {
	return false, m.err
}

type mockSystemService struct {
	collections []domain.Collection
	err         error
}

func (m *mockSystemService) ListCollections(_ context.Context) ([]domain.Collection, error) {
	return m.collections, m.err
}

func (m *mockSystemService) ClearCache(_ context.Context) error { return m.err }

func (m *mockSystemService) CacheStats() domain.CacheStats { return domain.CacheStats{} }

func (m *mockSystemService) HealthCheck(_ context.Context) (*domain.HealthStatus, error) {
	return &domain.HealthStatus{Status: domain.HealthOK}, m.err
}

func (m *mockSystemService) RepairCollection(_ context.Context, _ string) (int, error) {
	return 0, m.err
}
