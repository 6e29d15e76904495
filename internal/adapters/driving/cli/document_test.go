package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range documentCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"add", "get", "delete", "similar"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestDocumentCmd_RequireExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	for _, sub := range []string{"add", "get", "delete", "similar"} {
		t.Run(sub, func(t *testing.T) {
			_, err := execute(t, "document", sub)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "accepts 1 arg(s)")
		})
	}
}

func TestDocumentAddCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "add", "--title", "Leave", "-c", "hr", "Employees receive 30 days.")

	require.NoError(t, err)
	require.Len(t, ts.documents.uploads, 1)
	assert.Equal(t, "Leave", ts.documents.uploads[0].Title)
	assert.Contains(t, out, "indexed into hr (1 chunks)")
}

func TestDocumentAddCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.documents.err = domain.ErrEmbeddingUnavailable

	_, err := execute(t, "document", "add", "text")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestDocumentGetCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "get", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Leave Policy")
	assert.Contains(t, out, "Chunks:      3")
	assert.Contains(t, out, "category: hr")
	assert.NotContains(t, out, "Uploaded:", "zero upload time is omitted")
}

func TestDocumentGetCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "document", "get", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentDeleteCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "delete", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document doc-1 deleted.")
	assert.NotContains(t, ts.documents.docs, "doc-1")
}

func TestDocumentDeleteCmd_Missing(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "document", "delete", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentSimilarCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "document", "similar", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "doc-1", ts.search.similar)
	assert.Contains(t, out, "Leave Policy")
}

func TestDocumentCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(Services{})

	for _, args := range [][]string{
		{"document", "add", "x"},
		{"document", "get", "x"},
		{"document", "delete", "x"},
		{"document", "similar", "x"},
	} {
		_, err := execute(t, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "not configured")
	}
}

func TestDocumentGetCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.documents.err = errors.New("store down")

	_, err := execute(t, "document", "get", "doc-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get document: store down")
}
