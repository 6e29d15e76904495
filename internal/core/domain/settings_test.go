package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderVoyage} {
		assert.True(t, p.IsValid(), p)
	}
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("cohere").IsValid())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.True(t, AIProviderVoyage.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"voyage with key", EmbeddingSettings{Provider: AIProviderVoyage, APIKey: "k"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"unset", EmbeddingSettings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderVoyage, APIKey: "k"}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderOpenAI}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, DefaultTopK, s.Search.DefaultTopK)
	assert.Equal(t, 20, s.Search.MaxTopK)
	assert.InDelta(t, 0.3, s.Search.ScoreThreshold, 1e-9)
	assert.True(t, s.Cache.Enabled)
	assert.Equal(t, 100, s.Cache.MaxSize)
	assert.Equal(t, 3, s.Batch.MaxRetries)
	assert.Equal(t, VectorBackendMemory, s.VectorStore.Backend)
	assert.Equal(t, []string{"whitespace", "chunker"}, s.Pipeline.Processors)
	assert.Equal(t, 1000, s.Pipeline.GetProcessorConfig("chunker")["chunk_size"])
}

func TestAppSettings_SearchCollections(t *testing.T) {
	s := DefaultAppSettings()
	assert.Equal(t, []string{DefaultCollection}, s.SearchCollections())

	s.Search.Collections = []string{"laws", "faq"}
	assert.Equal(t, []string{"laws", "faq"}, s.SearchCollections())
}

func TestVectorBackend_IsValid(t *testing.T) {
	assert.True(t, VectorBackendQdrant.IsValid())
	assert.True(t, VectorBackendSQLite.IsValid())
	assert.False(t, VectorBackend("pinecone").IsValid())
}

func TestEmbeddingDimensions_KnownModels(t *testing.T) {
	dims := EmbeddingDimensions()
	assert.Equal(t, 1536, dims["text-embedding-3-small"])
	assert.Equal(t, 1024, dims["voyage-3-large"])
	assert.Equal(t, 768, dims["nomic-embed-text"])
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "****"},
		{"12345678", "****"},
		{"sk-abcdefghijkl", "****ijkl"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskSecret(tt.in), tt.in)
	}
}
