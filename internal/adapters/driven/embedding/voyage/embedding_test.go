package voyage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newServer(t *testing.T, seen *[]embeddingRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*seen = append(*seen, req)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"index": i, "embedding": []float32{float32(i), 1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestEmbed_InputTypeFollowsMode(t *testing.T) {
	var seen []embeddingRequest
	srv := newServer(t, &seen)
	b, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	docs, err := b.Embed(context.Background(), []string{"a", "b"}, domain.EmbedDocument)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, docs)

	_, err = b.Embed(context.Background(), []string{"q"}, domain.EmbedQuery)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "document", seen[0].InputType)
	assert.Equal(t, "query", seen[1].InputType)
	assert.Equal(t, "voyage-3-large", seen[0].Model)
	assert.Zero(t, seen[0].OutputDimension)
}

func TestEmbed_DimensionOverride(t *testing.T) {
	var seen []embeddingRequest
	srv := newServer(t, &seen)
	b, err := New(Config{APIKey: "k", BaseURL: srv.URL, Dimensions: 256})
	require.NoError(t, err)

	_, err = b.Embed(context.Background(), []string{"a"}, domain.EmbedDocument)
	require.NoError(t, err)
	assert.Equal(t, 256, seen[0].OutputDimension)
	assert.Equal(t, 256, b.Dimensions())
}

func TestEmbed_ErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()

	b, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = b.Embed(context.Background(), []string{"a"}, domain.EmbedDocument)
	assert.ErrorIs(t, err, domain.ErrPermanentProvider)
	assert.ErrorContains(t, err, "invalid key")
}
