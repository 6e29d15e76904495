// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

const providerName = "ollama"

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	client *api.Client
	model  string
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}

	return &LLMService{
		client: api.NewClient(u, &http.Client{Timeout: cfg.Timeout}),
		model:  cfg.Model,
	}, nil
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (*driven.ChatResult, error) {
	return s.chat(ctx, messages, opts, false, nil)
}

// ChatStream streams a completion as newline-delimited JSON chunks.
func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	onFragment func(string) error,
) (*driven.ChatResult, error) {
	return s.chat(ctx, messages, opts, true, onFragment)
}

func (s *LLMService) chat(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	stream bool,
	onFragment func(string) error,
) (*driven.ChatResult, error) {
	apiMessages := make([]api.Message, len(messages))
	for i, msg := range messages {
		apiMessages[i] = api.Message{Role: msg.Role, Content: msg.Content}
	}

	options := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}

	req := &api.ChatRequest{
		Model:    s.model,
		Messages: apiMessages,
		Stream:   &stream,
		Options:  options,
	}

	result := &driven.ChatResult{Model: s.model}
	var (
		content strings.Builder
		done    bool
		fragErr error
	)
	err := s.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if text := resp.Message.Content; text != "" {
			content.WriteString(text)
			if onFragment != nil {
				if err := onFragment(text); err != nil {
					fragErr = err
					return err
				}
			}
		}
		if resp.Done {
			done = true
			if resp.Model != "" {
				result.Model = resp.Model
			}
			result.PromptTokens = resp.PromptEvalCount
			result.CompletionTokens = resp.EvalCount
		}
		return nil
	})
	if fragErr != nil {
		return nil, fragErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(err)
	}
	if !done {
		return nil, domain.NewProviderError(providerName, 0, errors.New("response ended before done"))
	}

	result.Content = content.String()
	return result, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the server is reachable.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Version(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

// classify maps Ollama client errors onto provider errors.
func classify(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		msg := se.ErrorMessage
		if msg == "" {
			msg = se.Status
		}
		return domain.NewProviderError(providerName, se.StatusCode, errors.New(msg))
	}
	return domain.NewProviderError(providerName, 0, err)
}
