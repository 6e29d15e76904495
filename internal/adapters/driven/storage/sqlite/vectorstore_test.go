package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func newVectorStore(t *testing.T, batchSize int) driven.VectorStore {
	t.Helper()
	vs := setupTestStore(t).VectorStore(batchSize)
	require.NoError(t, vs.CreateCollection(context.Background(), "docs", 2, domain.DistanceCosine))
	return vs
}

func point(id, docID string, index int, v ...float32) domain.Point {
	return domain.Point{
		ID:     id,
		Vector: v,
		Payload: domain.Payload{
			DocumentID:      docID,
			Title:           "Doc " + docID,
			Content:         "chunk " + id,
			ChunkIndex:      index,
			TotalChunks:     3,
			EmbeddingStatus: domain.EmbeddingOK,
			Extra:           map[string]any{"source": "wiki", "page": 7},
		},
	}
}

func TestVectorStore_Collections(t *testing.T) {
	vs := newVectorStore(t, 0)
	ctx := context.Background()

	require.NoError(t, vs.CreateCollection(ctx, "docs", 8, domain.DistanceDot), "second create is a no-op")
	require.NoError(t, vs.CreateCollection(ctx, "alpha", 3, domain.DistanceEuclidean))

	info, err := vs.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Dimension)
	assert.Equal(t, domain.DistanceCosine, info.Distance)
	assert.Equal(t, domain.CollectionGreen, info.Status)

	names, err := vs.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "docs"}, names)

	require.NoError(t, vs.DeleteCollection(ctx, "alpha"))
	exists, err := vs.CollectionExists(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.ErrorIs(t, vs.DeleteCollection(ctx, "alpha"), domain.ErrNotFound)

	assert.ErrorIs(t, vs.CreateCollection(ctx, "bad", 0, domain.DistanceCosine), domain.ErrValidation)
	assert.ErrorIs(t, vs.CreateCollection(ctx, "bad", 2, "manhattan"), domain.ErrValidation)
}

func TestVectorStore_UpsertRoundTripsPayload(t *testing.T) {
	vs := newVectorStore(t, 0)
	ctx := context.Background()
	p := point("p1", "d1", 1, 1, 0)
	p.Payload.UploadedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, vs.Upsert(ctx, "docs", []domain.Point{p}))

	hits, err := vs.Retrieve(ctx, "docs", []string{"p1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	got := hits[0].Payload
	assert.Equal(t, "d1", got.DocumentID)
	assert.Equal(t, "Doc d1", got.Title)
	assert.Equal(t, "chunk p1", got.Content)
	assert.Equal(t, 1, got.ChunkIndex)
	assert.Equal(t, 3, got.TotalChunks)
	assert.Equal(t, domain.EmbeddingOK, got.EmbeddingStatus)
	assert.True(t, p.Payload.UploadedAt.Equal(got.UploadedAt))
	assert.Equal(t, "wiki", got.Extra["source"])
	assert.EqualValues(t, 7, got.Extra["page"])
}

func TestVectorStore_UpsertRejectsWrongDimension(t *testing.T) {
	vs := newVectorStore(t, 0)
	ctx := context.Background()

	err := vs.Upsert(ctx, "docs", []domain.Point{point("p1", "d1", 0, 1, 0), point("p2", "d1", 1, 1, 0, 0)})

	var dim *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dim)
	assert.Equal(t, 2, dim.Expected)
	assert.Equal(t, 3, dim.Got)
	info, _ := vs.CollectionInfo(ctx, "docs")
	assert.Equal(t, 0, info.PointCount, "a rejected upsert stores nothing")
}

func TestVectorStore_UpsertInBatchesAndOverwrites(t *testing.T) {
	vs := newVectorStore(t, 2)
	ctx := context.Background()

	points := make([]domain.Point, 5)
	for i := range points {
		points[i] = point(fmt.Sprintf("p%d", i), "d1", i, 1, float32(i))
	}
	require.NoError(t, vs.Upsert(ctx, "docs", points))
	require.NoError(t, vs.Upsert(ctx, "docs", []domain.Point{point("p0", "d1", 0, 0, 1)}))

	info, err := vs.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 5, info.PointCount)

	hits, err := vs.Search(ctx, "docs", []float32{0, 1}, domain.SearchParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p0", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestVectorStore_SearchOrdersThresholdsAndFilters(t *testing.T) {
	vs := newVectorStore(t, 0)
	ctx := context.Background()
	require.NoError(t, vs.Upsert(ctx, "docs", []domain.Point{
		point("a", "d1", 0, 1, 0),
		point("b", "d1", 1, 1, 1),
		point("c", "d2", 0, 0, 1),
		point("z", "d3", 0, 0, 0),
	}))

	hits, err := vs.Search(ctx, "docs", []float32{1, 0}, domain.SearchParams{Limit: 10, ScoreThreshold: 0.5})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)

	hits, err = vs.Search(ctx, "docs", []float32{1, 0}, domain.SearchParams{
		Limit:  10,
		Filter: domain.Filter{domain.PayloadDocumentID: "d1", domain.PayloadChunkIndex: 1},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)

	_, err = vs.Search(ctx, "docs", []float32{1, 0, 0}, domain.SearchParams{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	_, err = vs.Search(ctx, "missing", []float32{1, 0}, domain.SearchParams{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVectorStore_RetrieveScrollAndDelete(t *testing.T) {
	vs := newVectorStore(t, 0)
	ctx := context.Background()
	require.NoError(t, vs.Upsert(ctx, "docs", []domain.Point{
		point("c", "d1", 2, 1, 0),
		point("a", "d1", 0, 1, 0),
		point("b", "d2", 0, 0, 1),
	}))

	hits, err := vs.Retrieve(ctx, "docs", []string{"b", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b", hits[0].ID)
	assert.Equal(t, "a", hits[1].ID)

	hits, err = vs.Scroll(ctx, "docs", domain.Filter{domain.PayloadDocumentID: "d1"}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)

	hits, err = vs.Scroll(ctx, "docs", nil, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	removed, err := vs.DeleteByFilter(ctx, "docs", domain.Filter{domain.PayloadDocumentID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	require.NoError(t, vs.DeletePoints(ctx, "docs", []string{"b"}))
	info, _ := vs.CollectionInfo(ctx, "docs")
	assert.Equal(t, 0, info.PointCount)
}

func TestVectorStore_DeleteCollectionCascades(t *testing.T) {
	store := setupTestStore(t)
	vs := store.VectorStore(0)
	ctx := context.Background()
	require.NoError(t, vs.CreateCollection(ctx, "docs", 2, domain.DistanceCosine))
	require.NoError(t, vs.Upsert(ctx, "docs", []domain.Point{point("a", "d1", 0, 1, 0)}))

	require.NoError(t, vs.DeleteCollection(ctx, "docs"))

	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM points").Scan(&n))
	assert.Zero(t, n)
}

func TestVectorStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)
	vs := store.VectorStore(0)
	require.NoError(t, vs.CreateCollection(ctx, "docs", 2, domain.DistanceDot))
	require.NoError(t, vs.Upsert(ctx, "docs", []domain.Point{point("a", "d1", 0, 0.5, 0.25)}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.VectorStore(0).Search(ctx, "docs", []float32{2, 0}, domain.SearchParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.NoError(t, reopened.VectorStore(0).Ping(ctx))
}
