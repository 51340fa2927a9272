package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel-platform/models"
)

func chunk(id, documentID string, vec []float32) models.Chunk {
	return models.Chunk{
		ChunkID:    id,
		DocumentID: documentID,
		PageIndex:  0,
		Text:       "text for " + id,
		Embedding:  vec,
	}
}

func TestMemoryIndexUpsertIdempotent(t *testing.T) {
	idx := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []models.Chunk{chunk("c1", "doc1", []float32{1, 0})}))
	require.NoError(t, idx.Upsert(ctx, []models.Chunk{chunk("c1", "doc1", []float32{0, 1})}))

	results, err := idx.Query(ctx, []float32{0, 1}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1, "re-upserting the same chunk id must not duplicate")
	assert.InDelta(t, 1.0, results[0].Score, 1e-9, "the second write wins")
}

func TestMemoryIndexOrderingAndTieBreak(t *testing.T) {
	idx := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []models.Chunk{
		chunk("b", "doc1", []float32{1, 0}), // same score as "a"
		chunk("a", "doc1", []float32{1, 0}),
		chunk("c", "doc1", []float32{0, 1}), // orthogonal, lowest
		chunk("d", "doc1", []float32{1, 1}), // in between
	}))

	results, err := idx.Query(ctx, []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 4)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ChunkID
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestMemoryIndexTopKAndFilter(t *testing.T) {
	idx := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()

	var chunks []models.Chunk
	for i := 0; i < 10; i++ {
		doc := "doc1"
		if i%2 == 1 {
			doc = "doc2"
		}
		chunks = append(chunks, chunk(fmt.Sprintf("c%02d", i), doc, []float32{1, float32(i)}))
	}
	require.NoError(t, idx.Upsert(ctx, chunks))

	results, err := idx.Query(ctx, []float32{1, 0}, 3, Filter{DocumentID: "doc1"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	seen := map[string]bool{}
	for _, r := range results {
		assert.Equal(t, "doc1", r.Chunk.DocumentID)
		assert.False(t, seen[r.Chunk.ChunkID], "duplicate chunk id in results")
		seen[r.Chunk.ChunkID] = true
	}
}

func TestMemoryIndexDelete(t *testing.T) {
	idx := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []models.Chunk{
		chunk("c1", "doc1", []float32{1, 0}),
		chunk("c2", "doc2", []float32{1, 0}),
	}))
	require.NoError(t, idx.Delete(ctx, "doc1"))

	results, err := idx.Query(ctx, []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc2", results[0].Chunk.DocumentID)
}

func TestMemoryIndexMetricMismatch(t *testing.T) {
	idx := NewMemoryIndex(2, MetricCosine)

	_, err := idx.Query(context.Background(), []float32{1, 0}, 3, Filter{Metric: MetricEuclidean})
	assert.ErrorIs(t, err, ErrMetricMismatch)

	// naming the matching metric is fine
	_, err = idx.Query(context.Background(), []float32{1, 0}, 3, Filter{Metric: MetricCosine})
	assert.NoError(t, err)
}

func TestMemoryIndexDimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex(3, MetricCosine)
	ctx := context.Background()

	err := idx.Upsert(ctx, []models.Chunk{chunk("c1", "doc1", []float32{1, 0})})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Query(ctx, []float32{1, 0}, 3, Filter{})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryIndexEuclideanRelevance(t *testing.T) {
	idx := NewMemoryIndex(2, MetricEuclidean)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []models.Chunk{
		chunk("near", "doc1", []float32{0, 0}),
		chunk("far", "doc1", []float32{3, 4}),
	}))

	results, err := idx.Query(ctx, []float32{0, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "near", results[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)      // zero distance
	assert.InDelta(t, 1.0/6.0, results[1].Score, 1e-9)  // distance 5
}

func TestRelevanceClampsNegativeCosine(t *testing.T) {
	score := Relevance(MetricCosine, []float32{1, 0}, []float32{-1, 0})
	assert.Equal(t, 0.0, score)
}
