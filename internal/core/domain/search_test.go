package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Matches(t *testing.T) {
	fields := map[string]any{
		"document_id": "doc-1",
		"chunk_index": float64(2),
		"category":    "hr",
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches", Filter{}, true},
		{"single match", Filter{"document_id": "doc-1"}, true},
		{"numeric match across types", Filter{"chunk_index": 2}, true},
		{"all conditions hold", Filter{"document_id": "doc-1", "category": "hr"}, true},
		{"one condition fails", Filter{"document_id": "doc-1", "category": "it"}, false},
		{"missing key", Filter{"author": "x"}, false},
		{"string vs number", Filter{"chunk_index": "2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(fields))
		})
	}
}

func TestStreamEvent_IsTerminal(t *testing.T) {
	assert.False(t, StreamEvent{Type: StreamToken, Content: "a"}.IsTerminal())
	assert.True(t, StreamEvent{Type: StreamDone}.IsTerminal())
	assert.True(t, StreamEvent{Type: StreamError, Content: "boom"}.IsTerminal())
}

func TestBatchReport_Add(t *testing.T) {
	var report BatchReport
	report.Add(IngestResult{DocumentID: "a", State: StateStored})

	failed := IngestResult{DocumentID: "b"}
	failed.Fail(ErrEmptyDocument)
	report.Add(failed)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, StateFailed, report.Results[1].State)
	assert.Contains(t, report.Results[1].Reason, "document is empty")
}

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	sum := u.Add(TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})

	assert.Equal(t, TokenUsage{PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18}, sum)
}
