package domain

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one prior message in a chat.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports language model token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage report.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// ChatRequest is a question posed to the RAG chat surface.
type ChatRequest struct {
	Message     string             `json:"message"`
	History     []ConversationTurn `json:"history,omitempty"`
	TopK        int                `json:"top_k,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Collection  string             `json:"collection,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// Answer is a grounded completion.
type Answer struct {
	Answer         string         `json:"answer"`
	Model          string         `json:"model"`
	Usage          TokenUsage     `json:"usage"`
	GroundingCount int            `json:"grounding_count"`
	Sources        []SearchResult `json:"sources,omitempty"`
}

// StreamEventType distinguishes fragments from terminal events.
type StreamEventType string

// Stream event types.
const (
	StreamToken StreamEventType = "token"
	StreamDone  StreamEventType = "done"
	StreamError StreamEventType = "error"
)

// StreamEvent is one element of a streamed answer.
// A stream ends with exactly one done or error event.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
	Usage   *TokenUsage     `json:"usage,omitempty"`
}

// IsTerminal reports whether no further events follow.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == StreamDone || e.Type == StreamError
}
