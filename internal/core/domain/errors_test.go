package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrValidation", ErrValidation},
		{"ErrNotFound", ErrNotFound},
		{"ErrTransientProvider", ErrTransientProvider},
		{"ErrPermanentProvider", ErrPermanentProvider},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrEmptyDocument", ErrEmptyDocument},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrEmptyDocument_IsValidation(t *testing.T) {
	assert.True(t, errors.Is(ErrEmptyDocument, ErrValidation))
	assert.False(t, errors.Is(ErrEmptyDocument, ErrNotFound))
}

func TestValidationErrorf(t *testing.T) {
	err := ValidationErrorf("top_k must be between %d and %d", 1, 20)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "top_k must be between 1 and 20")
}

func TestNewProviderError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"transport failure", 0, true},
		{"request timeout", http.StatusRequestTimeout, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"unauthorised", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"bad request", http.StatusBadRequest, false},
		{"not found", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProviderError("openai", tt.status, errors.New("boom"))

			assert.Equal(t, tt.transient, err.Transient)
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, !tt.transient, errors.Is(err, ErrPermanentProvider))
		})
	}
}

func TestProviderError_WrappedStillClassified(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("embed batch: %w", NewProviderError("voyage", 0, cause))

	assert.True(t, IsTransient(err))
	assert.True(t, errors.Is(err, cause))

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "voyage", pe.Provider)
}

func TestProviderError_Message(t *testing.T) {
	withStatus := NewProviderError("qdrant", 503, errors.New("unavailable"))
	assert.Equal(t, "qdrant: status 503: unavailable", withStatus.Error())

	noStatus := NewProviderError("ollama", 0, errors.New("dial tcp"))
	assert.Equal(t, "ollama: dial tcp", noStatus.Error())
}

func TestDimensionMismatchError(t *testing.T) {
	err := fmt.Errorf("upsert: %w", &DimensionMismatchError{Collection: "docs", Expected: 768, Got: 1536})

	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), `collection "docs" expects dimension 768, got 1536`)
}
