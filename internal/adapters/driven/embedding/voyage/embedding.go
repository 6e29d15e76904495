// Package voyage provides an embedding backend using the Voyage AI API.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.EmbeddingBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.voyageai.com/v1"
	DefaultModel   = "voyage-3-large"
	DefaultTimeout = 60 * time.Second
)

const providerName = "voyage"

// Config holds configuration for the Voyage embedding backend.
type Config struct {
	// APIKey is the Voyage API key (required).
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions overrides the model's default output dimension.
	Dimensions int
}

// Backend generates embeddings with Voyage AI. Voyage models are
// asymmetric: documents and queries are embedded with different input types.
type Backend struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

type embeddingRequest struct {
	Input           []string `json:"input"`
	Model           string   `json:"model"`
	InputType       string   `json:"input_type"`
	OutputDimension int      `json:"output_dimension,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// New creates a new Voyage embedding backend.
func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("voyage: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	b := &Backend{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if b.dimensions == 0 {
		var ok bool
		if b.dimensions, ok = domain.EmbeddingDimensions()[cfg.Model]; !ok {
			b.dimensions = 1024
		}
	}
	return b, nil
}

// Embed returns one vector per text in input order.
func (b *Backend) Embed(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputType := "document"
	if mode == domain.EmbedQuery {
		inputType = "query"
	}
	reqBody := embeddingRequest{Input: texts, Model: b.model, InputType: inputType}
	if _, known := domain.EmbeddingDimensions()[b.model]; known && b.dimensions != domain.EmbeddingDimensions()[b.model] {
		reqBody.OutputDimension = b.dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(providerName, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError(providerName, 0, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Detail != "" {
			msg = er.Detail
		}
		return nil, domain.NewProviderError(providerName, resp.StatusCode, errors.New(msg))
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, domain.NewProviderError(providerName, http.StatusBadGateway, fmt.Errorf("decode response: %w", err))
	}
	if len(embedResp.Data) != len(texts) {
		return nil, domain.NewProviderError(providerName, http.StatusBadGateway,
			fmt.Errorf("got %d embeddings for %d inputs", len(embedResp.Data), len(texts)))
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range embedResp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, domain.NewProviderError(providerName, http.StatusBadGateway,
				fmt.Errorf("embedding index %d out of range", d.Index))
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (b *Backend) Dimensions() int {
	return b.dimensions
}

// ModelName returns the name of the embedding model being used.
func (b *Backend) ModelName() string {
	return b.model
}

// Ping embeds a single short query. Voyage has no free metadata endpoint.
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.Embed(ctx, []string{"ping"}, domain.EmbedQuery)
	return err
}

// Close releases resources.
func (b *Backend) Close() error {
	return nil
}
