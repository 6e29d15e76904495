// Package httpapi serves the JSON and server-sent-events API over net/http.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultMaxUploadSize bounds multipart file uploads.
const DefaultMaxUploadSize int64 = 10 << 20

const (
	requestIDHeader = "X-Request-ID"
	shutdownTimeout = 10 * time.Second
)

// Services are the driving ports the API routes to.
type Services struct {
	Chat      driving.ChatService
	Search    driving.SearchService
	Documents driving.DocumentService
	System    driving.SystemService
	Settings  driving.SettingsService

	// Normalisers extract text from uploaded files.
	Normalisers driven.NormaliserRegistry
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadSize bounds multipart uploads to n bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// WithClock replaces time.Now for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server routes HTTP requests to the driving ports.
type Server struct {
	svc       Services
	mux       *http.ServeMux
	upgrader  websocket.Upgrader
	maxUpload int64
	now       func() time.Time
}

// NewServer creates a server and registers its routes.
func NewServer(svc Services, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		mux:       http.NewServeMux(),
		upgrader:  websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		maxUpload: DefaultMaxUploadSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/chat/plain", s.handlePlainChat)
	s.mux.HandleFunc("GET /api/chat/ws", s.handleChatSocket)

	s.mux.HandleFunc("POST /api/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/search/all", s.handleSearchAll)

	s.mux.HandleFunc("POST /api/documents", s.handleUpload)
	s.mux.HandleFunc("POST /api/documents/batch", s.handleUploadBatch)
	s.mux.HandleFunc("POST /api/documents/file", s.handleUploadFile)
	s.mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	s.mux.HandleFunc("GET /api/documents/{id}/similar", s.handleSimilar)

	s.mux.HandleFunc("GET /api/collections", s.handleCollections)
	s.mux.HandleFunc("POST /api/cache/clear", s.handleClearCache)
	s.mux.HandleFunc("DELETE /api/cache", s.handleClearCache)
	s.mux.HandleFunc("GET /api/cache", s.handleCacheStats)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/config", s.handleConfig)
}

// Handler returns the routed handler wrapped in request logging, panic
// recovery and OpenTelemetry spans. Health checks are not traced.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.middleware(s.mux), "sercha-rag",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/api/health" }),
	)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	logger.Info("HTTP API stopped")
	return nil
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		m := httpsnoop.CaptureMetricsFn(w, func(w http.ResponseWriter) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("[%s] panic serving %s %s: %v", id, r.Method, r.URL.Path, p)
					writeError(w, fmt.Errorf("internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
		logger.Debug("[%s] %s %s %d %s", id, r.Method, r.URL.Path, m.Code, m.Duration.Round(time.Millisecond))
	})
}
