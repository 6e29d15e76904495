// Package mcp exposes retrieval and grounded answers to AI assistants over
// the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// ErrMissingSearchService is returned by NewServer without a search port.
var ErrMissingSearchService = errors.New("mcp: search service is required")

const instructions = "Call search to find passages in the indexed documents, ask for an answer " +
	"grounded on them with citations, and get_document to read a whole document by id."

// Ports are the services behind the tools. Only Search is required; tools
// for the others are registered when they are set.
type Ports struct {
	Search   driving.SearchService
	Chat     driving.ChatService
	Document driving.DocumentService
	System   driving.SystemService
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported during initialisation.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithShutdownTimeout bounds how long RunHTTP waits for open sessions.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// Server is an MCP server bound to the RAG services.
type Server struct {
	ports           Ports
	version         string
	shutdownTimeout time.Duration
	server          *mcp.Server
}

// NewServer registers a tool for every port that is set.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if ports == nil || ports.Search == nil {
		return nil, ErrMissingSearchService
	}

	s := &Server{ports: *ports, version: "dev", shutdownTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "sercha-rag", Version: s.version},
		&mcp.ServerOptions{Instructions: instructions},
	)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run speaks JSON-RPC over stdin and stdout until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler is the streamable HTTP transport for this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
}

// RunHTTP serves Handler on addr until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("mcp: listening on %s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
