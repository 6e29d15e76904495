package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentID_Deterministic(t *testing.T) {
	a := DocumentID("the same content")
	b := DocumentID("the same content")
	c := DocumentID("different content")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestNewDocument(t *testing.T) {
	meta := map[string]any{"source": "handbook"}
	doc := NewDocument("body text", "Handbook", meta)

	assert.Equal(t, DocumentID("body text"), doc.ID)
	assert.Equal(t, "Handbook", doc.Title)
	assert.Equal(t, "body text", doc.Content)
	assert.Equal(t, meta, doc.Metadata)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestChunk_Fields(t *testing.T) {
	chunk := Chunk{DocumentID: "doc-1", Index: 2, Content: "text", TotalChunks: 3}

	assert.Equal(t, "doc-1", chunk.DocumentID)
	assert.Equal(t, 2, chunk.Index)
	assert.Equal(t, 3, chunk.TotalChunks)
}
