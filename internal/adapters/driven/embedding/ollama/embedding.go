// Package ollama provides an embedding backend using a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.EmbeddingBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768 // nomic-embed-text default
)

const providerName = "ollama"

// Config holds configuration for the Ollama embedding backend.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int
}

// Backend generates embeddings using the Ollama embed API, which accepts
// a batch of inputs per request.
type Backend struct {
	client     *api.Client
	model      string
	dimensions int
}

// New creates a new Ollama embedding backend.
func New(cfg Config) (*Backend, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		if d, ok := domain.EmbeddingDimensions()[cfg.Model]; ok {
			cfg.Dimensions = d
		} else {
			cfg.Dimensions = DefaultDimensions
		}
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}

	return &Backend{
		client:     api.NewClient(u, &http.Client{Timeout: cfg.Timeout}),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed returns one vector per text in input order.
func (b *Backend) Embed(ctx context.Context, texts []string, _ domain.EmbedMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := b.client.Embed(ctx, &api.EmbedRequest{
		Model: b.model,
		Input: texts,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, domain.NewProviderError(providerName, http.StatusBadGateway,
			fmt.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}
	return resp.Embeddings, nil
}

// Dimensions returns the embedding vector size.
func (b *Backend) Dimensions() int {
	return b.dimensions
}

// ModelName returns the name of the embedding model being used.
func (b *Backend) ModelName() string {
	return b.model
}

// Ping checks the server is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if _, err := b.client.Version(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	return nil
}

// classify maps Ollama client errors onto provider errors.
func classify(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		return domain.NewProviderError(providerName, se.StatusCode, errors.New(se.ErrorMessage))
	}
	return domain.NewProviderError(providerName, 0, err)
}
