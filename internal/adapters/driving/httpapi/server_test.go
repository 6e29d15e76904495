package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	server   *Server
	search   *mockSearchService
	chat     *mockChatService
	docs     *mockDocumentService
	system   *mockSystemService
	settings *mockSettingsService
}

func newFixture() *fixture {
	f := &fixture{
		search:   &mockSearchService{},
		chat:     &mockChatService{},
		docs:     &mockDocumentService{},
		system:   &mockSystemService{},
		settings: &mockSettingsService{settings: domain.DefaultAppSettings()},
	}
	f.server = NewServer(Services{
		Chat:        f.chat,
		Search:      f.search,
		Documents:   f.docs,
		System:      f.system,
		Settings:    f.settings,
		Normalisers: normalisers.Default(),
	}, WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	detail, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error object: %s", rec.Body.String())
	return detail["type"].(string)
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/health", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody)
	req.Header.Set(requestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

type panickingSystem struct{ mockSystemService }

func (p *panickingSystem) ListCollections(context.Context) ([]domain.Collection, error) {
	panic("boom")
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	srv := NewServer(Services{System: &panickingSystem{}})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collections", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errTypeInternal, errorType(t, rec))
}

func TestRoutes_UnknownMethod(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", domain.ValidationErrorf("bad"), http.StatusBadRequest, errTypeValidation},
		{"empty document", domain.ErrEmptyDocument, http.StatusBadRequest, errTypeValidation},
		{"not found", domain.ErrNotFound, http.StatusNotFound, errTypeNotFound},
		{"dimension", &domain.DimensionMismatchError{Collection: "c", Expected: 3, Got: 2}, http.StatusUnprocessableEntity, errTypeDimension},
		{"unsupported", domain.ErrUnsupportedType, http.StatusUnsupportedMediaType, errTypeUnsupported},
		{"llm unavailable", domain.ErrLLMUnavailable, http.StatusServiceUnavailable, errTypeUnavailable},
		{"embedding unavailable", domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, errTypeUnavailable},
		{"transient", domain.NewProviderError("openai", 429, errors.New("slow down")), http.StatusServiceUnavailable, errTypeProvider},
		{"permanent", domain.NewProviderError("openai", 401, errors.New("bad key")), http.StatusBadGateway, errTypeProvider},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, errTypeTimeout},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, errTypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := classifyError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.server.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListenAndServe_BadAddress(t *testing.T) {
	f := newFixture()
	err := f.server.ListenAndServe(context.Background(), "256.0.0.1:bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
}
