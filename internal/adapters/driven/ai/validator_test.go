package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestConfigValidator_UnconfiguredIsValid(t *testing.T) {
	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateEmbedding(ctx, nil))
	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Model: "x"}))
	assert.NoError(t, v.ValidateLLM(ctx, nil))
	assert.NoError(t, v.ValidateLLM(ctx, &domain.LLMSettings{Provider: domain.AIProviderOpenAI}))
}

func TestConfigValidator_ValidateEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/version", r.URL.Path)
		_, _ = w.Write([]byte(`{"version":"0.13.5"}`))
	}))
	defer srv.Close()

	v := NewConfigValidator()
	err := v.ValidateEmbedding(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
	assert.NoError(t, err)

	err = v.ValidateEmbedding(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: "http://127.0.0.1:1"})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestConfigValidator_ValidateLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	v := NewConfigValidator()
	err := v.ValidateLLM(context.Background(),
		&domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "bad", BaseURL: srv.URL})

	assert.ErrorIs(t, err, domain.ErrPermanentProvider)
	assert.ErrorContains(t, err, "invalid x-api-key")
}

func TestConfigValidator_RejectsUnsupportedPairing(t *testing.T) {
	v := NewConfigValidator()
	err := v.ValidateEmbedding(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"})
	assert.Error(t, err)
}
