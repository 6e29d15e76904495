package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetOverwrites(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("search.top_k", 5))
	require.NoError(t, store.Set("search.top_k", 8))

	assert.Equal(t, 8, store.GetInt("search.top_k"))
	assert.Equal(t, []string{"search.top_k"}, store.Keys())
}

func TestConfigStore_NothingPersists(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("llm.provider", "ollama"))

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, "ollama", store.GetString("llm.provider"), "Load keeps values")
	assert.Equal(t, ":memory:", store.Path())
}
