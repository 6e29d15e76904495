package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AnswerStream delivers a streamed answer.
// Events ends with exactly one terminal event and is then closed.
type AnswerStream interface {
	// Events returns the fragment channel.
	Events() <-chan domain.StreamEvent

	// Sources returns the search results the answer is grounded on.
	Sources() []domain.SearchResult

	// Close stops upstream generation and releases the stream.
	Close()
}

// ChatService answers questions grounded on retrieved documents.
type ChatService interface {
	// Chat retrieves context and returns a complete answer.
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.Answer, error)

	// ChatStream retrieves context and streams the answer.
	ChatStream(ctx context.Context, req domain.ChatRequest) (AnswerStream, error)

	// PlainChat talks to the language model without retrieval.
	PlainChat(ctx context.Context, req domain.ChatRequest) (*domain.Answer, error)
}
