package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure AnswerStream implements the interface.
var _ driving.AnswerStream = (*AnswerStream)(nil)

// NoContext is the context block used when retrieval found nothing.
const NoContext = "No relevant information found."

const contextSeparator = "\n\n---\n\n"

var errStreamClosed = errors.New("stream closed")

// AnswerConfig configures an AnswerGenerator.
type AnswerConfig struct {
	// HistoryTurns bounds prior turns in grounded prompts.
	HistoryTurns int

	// PlainHistoryTurns bounds prior turns in plain chat.
	PlainHistoryTurns int

	Temperature float64
	MaxTokens   int

	// Timeout bounds a whole completion, streamed or not.
	Timeout time.Duration
}

// AnswerRequest is a question with its retrieved context.
type AnswerRequest struct {
	Question string
	Results  []domain.SearchResult
	History  []domain.ConversationTurn

	// Temperature overrides the configured default when set.
	Temperature *float64
}

// AnswerGenerator assembles grounded prompts and calls the language model.
type AnswerGenerator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     AnswerConfig
}

// NewAnswerGenerator creates a generator. Zero config fields take defaults.
func NewAnswerGenerator(llm driven.LLMService, prompts driven.PromptStore, cfg AnswerConfig) *AnswerGenerator {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = domain.DefaultHistoryTurns
	}
	if cfg.PlainHistoryTurns <= 0 {
		cfg.PlainHistoryTurns = domain.DefaultPlainTurns
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = domain.DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultLLMTimeout
	}
	return &AnswerGenerator{llm: llm, prompts: prompts, cfg: cfg}
}

// ModelName returns the language model name.
func (g *AnswerGenerator) ModelName() string {
	return g.llm.ModelName()
}

// BuildContext renders results in rank order as the prompt context block.
func BuildContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return NoContext
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Document %d] (%s) [Relevance: %.2f]\n%s", i+1, r.Title, r.Score, r.Content)
	}
	return strings.Join(parts, contextSeparator)
}

// Generate produces a complete grounded answer.
func (g *AnswerGenerator) Generate(ctx context.Context, req AnswerRequest) (*domain.Answer, error) {
	messages, err := g.groundedMessages(req)
	if err != nil {
		return nil, err
	}
	return g.complete(ctx, messages, req.Temperature, req.Results)
}

// Plain answers without retrieval.
func (g *AnswerGenerator) Plain(ctx context.Context, req AnswerRequest) (*domain.Answer, error) {
	system, err := g.prompts.Load(driven.PromptPlainSystem)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	messages := buildMessages(system, req.History, g.cfg.PlainHistoryTurns, req.Question)
	return g.complete(ctx, messages, req.Temperature, nil)
}

// GenerateStream starts a streamed grounded answer. The caller must either
// drain Events until it closes or call Close.
func (g *AnswerGenerator) GenerateStream(ctx context.Context, req AnswerRequest) (*AnswerStream, error) {
	messages, err := g.groundedMessages(req)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	s := &AnswerStream{
		events:  make(chan domain.StreamEvent),
		sources: req.Results,
		cancel:  cancel,
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	go s.run(streamCtx, g.llm, messages, g.options(req.Temperature))
	return s, nil
}

func (g *AnswerGenerator) complete(
	ctx context.Context, messages []driven.ChatMessage, temperature *float64, sources []domain.SearchResult,
) (*domain.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	logger.Debug("LLM request: %d messages", len(messages))
	res, err := g.llm.Chat(ctx, messages, g.options(temperature))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	model := res.Model
	if model == "" {
		model = g.llm.ModelName()
	}
	return &domain.Answer{
		Answer:         res.Content,
		Model:          model,
		Usage:          usageOf(res),
		GroundingCount: len(sources),
		Sources:        sources,
	}, nil
}

func (g *AnswerGenerator) groundedMessages(req AnswerRequest) ([]driven.ChatMessage, error) {
	system, err := g.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	template, err := g.prompts.Load(driven.PromptAnswerUser)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	user := strings.NewReplacer(
		"{{context}}", BuildContext(req.Results),
		"{{question}}", req.Question,
	).Replace(template)
	return buildMessages(system, req.History, g.cfg.HistoryTurns, user), nil
}

func (g *AnswerGenerator) options(temperature *float64) driven.ChatOptions {
	opts := driven.ChatOptions{MaxTokens: g.cfg.MaxTokens, Temperature: g.cfg.Temperature}
	if temperature != nil {
		opts.Temperature = *temperature
	}
	return opts
}

// buildMessages keeps at most turns user/assistant entries from the end of history.
func buildMessages(system string, history []domain.ConversationTurn, turns int, user string) []driven.ChatMessage {
	kept := make([]domain.ConversationTurn, 0, len(history))
	for _, t := range history {
		if t.Role == domain.RoleUser || t.Role == domain.RoleAssistant {
			kept = append(kept, t)
		}
	}
	if len(kept) > turns {
		kept = kept[len(kept)-turns:]
	}

	messages := make([]driven.ChatMessage, 0, len(kept)+2)
	if system != "" {
		messages = append(messages, driven.ChatMessage{Role: domain.RoleSystem, Content: system})
	}
	for _, t := range kept {
		messages = append(messages, driven.ChatMessage{Role: t.Role, Content: t.Content})
	}
	return append(messages, driven.ChatMessage{Role: domain.RoleUser, Content: user})
}

func usageOf(res *driven.ChatResult) domain.TokenUsage {
	return domain.TokenUsage{
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
		TotalTokens:      res.PromptTokens + res.CompletionTokens,
	}
}

// AnswerStream is a streamed answer. Fragments are delivered on an
// unbuffered channel, so the provider read loop advances only as fast as
// the consumer receives. The channel ends with exactly one done or error
// event unless the stream is closed early.
type AnswerStream struct {
	events  chan domain.StreamEvent
	sources []domain.SearchResult
	cancel  context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// Events returns the event channel. It is closed after the terminal event.
func (s *AnswerStream) Events() <-chan domain.StreamEvent {
	return s.events
}

// Sources returns the results the answer is grounded on.
func (s *AnswerStream) Sources() []domain.SearchResult {
	return s.sources
}

// Close cancels the upstream request and waits for the producer to exit.
// It is safe to call more than once and after the stream has finished.
func (s *AnswerStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.closed)
	})
	<-s.done
}

func (s *AnswerStream) run(ctx context.Context, llm driven.LLMService, messages []driven.ChatMessage, opts driven.ChatOptions) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	res, err := llm.ChatStream(ctx, messages, opts, func(fragment string) error {
		if fragment == "" {
			return nil
		}
		return s.send(domain.StreamEvent{Type: domain.StreamToken, Content: fragment})
	})
	if err != nil {
		if errors.Is(err, errStreamClosed) || s.isClosed() {
			logger.Debug("Answer stream closed by consumer")
			return
		}
		logger.Warn("Answer stream failed: %v", err)
		_ = s.send(domain.StreamEvent{Type: domain.StreamError, Content: err.Error()})
		return
	}

	usage := usageOf(res)
	_ = s.send(domain.StreamEvent{Type: domain.StreamDone, Usage: &usage})
}

func (s *AnswerStream) send(ev domain.StreamEvent) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.closed:
		return errStreamClosed
	}
}

func (s *AnswerStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
