package whitespace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNormalise(t *testing.T) {
	in := "Title  \r\n\r\n\r\n\r\nBody line   \nnext\n\n\n"

	assert.Equal(t, "Title\n\nBody line\nnext", Normalise(in))
}

func TestProcess_BeforeChunking(t *testing.T) {
	doc := &domain.Document{Content: "a\n\n\n\nb  "}

	chunks, err := New().Process(context.Background(), doc, nil)

	require.NoError(t, err)
	assert.Nil(t, chunks)
	assert.Equal(t, "a\n\nb", doc.Content)
}

func TestProcess_AfterChunkingReindexes(t *testing.T) {
	in := []domain.Chunk{
		{Index: 0, Content: " first ", TotalChunks: 3},
		{Index: 1, Content: "   ", TotalChunks: 3},
		{Index: 2, Content: "third", TotalChunks: 3},
	}

	out, err := New().Process(context.Background(), &domain.Document{}, in)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Content)
	assert.Equal(t, 1, out[1].Index)
	assert.Equal(t, 2, out[1].TotalChunks)
}
