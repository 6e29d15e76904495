package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

type mockSearchService struct {
	results  []domain.SearchResult
	err      error
	lastReq  domain.SearchRequest
	allQuery string
	allTopK  int
	similar  string
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	m.lastReq = req
	return m.results, m.err
}

func (m *mockSearchService) SearchAll(_ context.Context, query string, topK int) ([]domain.SearchResult, error) {
	m.allQuery = query
	m.allTopK = topK
	return m.results, m.err
}

func (m *mockSearchService) Similar(_ context.Context, documentID string, _ int, _ string) ([]domain.SearchResult, error) {
	m.similar = documentID
	return m.results, m.err
}

type mockStream struct {
	events  chan domain.StreamEvent
	sources []domain.SearchResult
	closed  bool
}

func newMockStream(sources []domain.SearchResult, events ...domain.StreamEvent) *mockStream {
	ch := make(chan domain.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &mockStream{events: ch, sources: sources}
}

func (m *mockStream) Events() <-chan domain.StreamEvent { return m.events }
func (m *mockStream) Sources() []domain.SearchResult { return m.sources }
func (m *mockStream) Close() { m.closed = true }

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
	docs    map[string]*domain.DocumentInfo
	uploads []domain.DocumentInput
	batches int
	err     error
}

func (m *mockDocumentService) UploadDocument(_ context.Context, doc domain.DocumentInput, collection string) (*domain.IngestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.uploads = append(m.uploads, doc)
	if collection == "" {
		collection = domain.DefaultCollection
	}
	return &domain.IngestResult{
		DocumentID: domain.DocumentID(doc.Content),
		Title:      doc.Title,
		Collection: collection,
		ChunkCount: 1,
		State:      domain.StateStored,
	}, nil
}

func (m *mockDocumentService) UploadBatch(ctx context.Context, docs []domain.DocumentInput, collection string) (*domain.BatchReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.batches++
	report := &domain.BatchReport{Total: len(docs)}
	for _, d := range docs {
		if d.Content == "" {
			r := domain.IngestResult{Title: d.Title}
			r.Fail(domain.ErrEmptyDocument)
			report.Add(r)
			continue
		}
		res, _ := m.UploadDocument(ctx, d, collection)
		report.Add(*res)
	}
	return report, nil
}

func (m *mockDocumentService) GetDocument(_ context.Context, documentID, _ string) (*domain.DocumentInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentService) DeleteDocument(_ context.Context, documentID, _ string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.docs[documentID]
	delete(m.docs, documentID)
	return ok, nil
}

type mockSystemService struct {
	collections []domain.Collection
	stats       domain.CacheStats
	health      *domain.HealthStatus
	repaired    int
	repairColl  string
	cleared     bool
	err         error
}

func (m *mockSystemService) ListCollections(context.Context) ([]domain.Collection, error) {
	return m.collections, m.err
}

func (m *mockSystemService) ClearCache(context.Context) error {
	m.cleared = true
	return m.err
}

func (m *mockSystemService) CacheStats() domain.CacheStats { return m.stats }

func (m *mockSystemService) HealthCheck(context.Context) (*domain.HealthStatus, error) {
	return m.health, m.err
}

func (m *mockSystemService) RepairCollection(_ context.Context, collection string) (int, error) {
	m.repairColl = collection
	return m.repaired, m.err
}

type mockSettingsService struct {
	settings domain.AppSettings
	values   map[string]any
	set      map[string]string
	invalid  error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		values:   map[string]any{"llm.model": "llama3.2", "llm.api_key": "sk-abcdefghijkl"},
		set:      map[string]string{},
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) { return &m.settings, nil }

func (m *mockSettingsService) Set(key, value string) error {
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Lookup(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockSettingsService) Keys() []string { return []string{"llm.api_key", "llm.model"} }

func (m *mockSettingsService) Validate() error { return m.invalid }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

type mockValidator struct{ err error }

func (m mockValidator) ValidateProviders(context.Context) error { return m.err }

// testServices is the set injected by setupTestServices.
type testServices struct {
	search    *mockSearchService
	chat      *mockChatService
	documents *mockDocumentService
	system    *mockSystemService
	settings  *mockSettingsService
}

// setupTestServices injects mocks and returns them with a cleanup that
// clears every service and flag.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		search: &mockSearchService{results: []domain.SearchResult{
			{ID: "c1", DocumentID: "doc-1", Title: "Leave Policy", Content: "Employees receive\n30 days of leave.", Score: 0.91, Rank: 1, Collection: "documents"},
		}},
		chat: &mockChatService{answer: &domain.Answer{
			Answer:  "You get 30 days.",
			Sources: []domain.SearchResult{{DocumentID: "doc-1", Title: "Leave Policy", Score: 0.91, Rank: 1}},
		}},
		documents: &mockDocumentService{docs: map[string]*domain.DocumentInfo{
			"doc-1": {DocumentID: "doc-1", Title: "Leave Policy", Collection: "documents", TotalChunks: 3, Metadata: map[string]any{"category": "hr"}},
		}},
		system: &mockSystemService{
			collections: []domain.Collection{{Name: "documents", Dimension: 768, Distance: domain.DistanceCosine, PointCount: 12, Status: domain.CollectionGreen}},
			stats:       domain.CacheStats{Enabled: true, Size: 2, MaxSize: 100},
			health:      &domain.HealthStatus{Status: domain.HealthOK, CollectionsCount: 1, Components: map[string]string{"vector_store": "ok", "embedding": "ok"}},
			repaired:    4,
		},
		settings: newMockSettingsService(),
	}
	SetServices(Services{
		Chat:      ts.chat,
		Search:    ts.search,
		Documents: ts.documents,
		System:    ts.system,
		Settings:  ts.settings,
	})
	return ts, func() {
		SetServices(Services{})
		resetFlags()
	}
}

// resetFlags restores flag variables, which persist across executions.
func resetFlags() {
	searchLimit, searchCollection, searchAll, searchThreshold, searchJSON = 0, "", false, -1, false
	chatCollection, chatTopK, chatTemperature = "", 0, -1
	chatPlain, chatStream, chatJSON = false, false, false
	documentCollection, documentTitle, documentLimit = "", "", 0
	ingestCollection, ingestWatch, ingestManifest, ingestBatchSize = "", false, "", domain.DefaultUploadBatchSize
	collectionsJSON = false
	serveAddr, mcpPort = "", 0
	verbose, quiet = false, false
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return buf.String(), err
}

func requireCommand(t *testing.T, name string) {
	t.Helper()
	for _, c := range rootCmd.Commands() {
		if c.Name() == name {
			return
		}
	}
	require.Failf(t, "command not registered", "%s", name)
}
