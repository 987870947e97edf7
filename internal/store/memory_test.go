package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sage/internal/models"
)

func chunk(id, source, text string) models.KnowledgeChunk {
	return models.KnowledgeChunk{
		ID:          id,
		Source:      source,
		Text:        text,
		ContentHash: "hash-" + id,
	}
}

func TestMemoryStoreUpsertAndGet(t *testing.T) {
	st := NewMemoryStore(3)
	ctx := context.Background()

	c := chunk("c1", "almanack", "Invert, always invert.")
	c.Tags = []string{"thinking"}
	require.NoError(t, st.Upsert(ctx, c, []float32{1, 0, 0}))

	got, err := st.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Invert, always invert.", got.Text)

	// Mutating the returned chunk must not touch the stored copy.
	got.Tags[0] = "mutated"
	again, err := st.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"thinking"}, again.Tags)
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	st := NewMemoryStore(3)
	_, err := st.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDimensionMismatch(t *testing.T) {
	st := NewMemoryStore(3)
	ctx := context.Background()

	err := st.Upsert(ctx, chunk("c1", "s", "text"), []float32{1, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	require.NoError(t, st.Upsert(ctx, chunk("c1", "s", "text"), []float32{1, 0, 0}))
	_, err = st.Search(ctx, []float32{1, 0}, 10, 0, SearchFilter{})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryStoreDimensionFixedByFirstUpsert(t *testing.T) {
	st := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, chunk("c1", "s", "a"), []float32{1, 0, 0, 0}))
	err := st.Upsert(ctx, chunk("c2", "s", "b"), []float32{1, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryStoreSearchOrdering(t *testing.T) {
	st := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, chunk("far", "s", "far"), []float32{0, 1}))
	require.NoError(t, st.Upsert(ctx, chunk("near", "s", "near"), []float32{1, 0}))
	require.NoError(t, st.Upsert(ctx, chunk("mid", "s", "mid"), []float32{1, 1}))

	results, err := st.Search(ctx, []float32{1, 0}, 10, 0, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Chunk.ID)
	assert.Equal(t, "mid", results[1].Chunk.ID)
	assert.Equal(t, "far", results[2].Chunk.ID)
}

func TestMemoryStoreSearchTieBreakByID(t *testing.T) {
	st := NewMemoryStore(2)
	ctx := context.Background()

	// Identical vectors produce identical scores; order must fall back to ID.
	require.NoError(t, st.Upsert(ctx, chunk("b", "s", "b"), []float32{1, 0}))
	require.NoError(t, st.Upsert(ctx, chunk("a", "s", "a"), []float32{1, 0}))
	require.NoError(t, st.Upsert(ctx, chunk("c", "s", "c"), []float32{1, 0}))

	for i := 0; i < 5; i++ {
		results, err := st.Search(ctx, []float32{1, 0}, 10, 0, SearchFilter{})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "a", results[0].Chunk.ID)
		assert.Equal(t, "b", results[1].Chunk.ID)
		assert.Equal(t, "c", results[2].Chunk.ID)
	}
}

func TestMemoryStoreSearchMinScore(t *testing.T) {
	st := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, chunk("aligned", "s", "a"), []float32{1, 0}))
	require.NoError(t, st.Upsert(ctx, chunk("orthogonal", "s", "o"), []float32{0, 1}))

	results, err := st.Search(ctx, []float32{1, 0}, 10, 0.5, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "aligned", results[0].Chunk.ID)
}

func TestMemoryStoreSearchLimit(t *testing.T) {
	st := NewMemoryStore(2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, st.Upsert(ctx, chunk(id, "s", id), []float32{1, 0}))
	}

	results, err := st.Search(ctx, []float32{1, 0}, 2, 0, SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemoryStoreSearchEmpty(t *testing.T) {
	st := NewMemoryStore(2)
	results, err := st.Search(context.Background(), []float32{1, 0}, 10, 0, SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStoreSearchFilter(t *testing.T) {
	st := NewMemoryStore(2)
	ctx := context.Background()

	a := chunk("a", "almanack", "Invert, always invert.")
	a.Tags = []string{"thinking", "inversion"}
	b := chunk("b", "almanack", "Sit on your hands.")
	b.Tags = []string{"patience"}
	c := chunk("c", "letters", "Circle of competence.")
	c.Tags = []string{"thinking"}
	for _, ch := range []models.KnowledgeChunk{a, b, c} {
		require.NoError(t, st.Upsert(ctx, ch, []float32{1, 0}))
	}

	t.Run("by source", func(t *testing.T) {
		results, err := st.Search(ctx, []float32{1, 0}, 10, 0, SearchFilter{Source: "almanack"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Equal(t, "almanack", r.Chunk.Source)
		}
	})

	t.Run("by tag", func(t *testing.T) {
		results, err := st.Search(ctx, []float32{1, 0}, 10, 0, SearchFilter{Tags: []string{"thinking"}})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Chunk.ID)
		assert.Equal(t, "c", results[1].Chunk.ID)
	})

	t.Run("all tags must match", func(t *testing.T) {
		results, err := st.Search(ctx, []float32{1, 0}, 10, 0, SearchFilter{Tags: []string{"thinking", "inversion"}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a", results[0].Chunk.ID)
	})

	t.Run("source and tag combined", func(t *testing.T) {
		results, err := st.Search(ctx, []float32{1, 0}, 10, 0, SearchFilter{Source: "letters", Tags: []string{"thinking"}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "c", results[0].Chunk.ID)
	})

	t.Run("no match", func(t *testing.T) {
		results, err := st.Search(ctx, []float32{1, 0}, 10, 0, SearchFilter{Source: "unknown"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestMemoryStoreHasContentHash(t *testing.T) {
	st := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, chunk("c1", "s", "text"), []float32{1, 0}))

	ok, err := st.HasContentHash(ctx, "hash-c1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.HasContentHash(ctx, "hash-unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDeleteSource(t *testing.T) {
	st := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, chunk("k1", "keep", "a"), []float32{1, 0}))
	require.NoError(t, st.Upsert(ctx, chunk("d1", "drop", "b"), []float32{1, 0}))
	require.NoError(t, st.Upsert(ctx, chunk("d2", "drop", "c"), []float32{1, 0}))

	require.NoError(t, st.DeleteSource(ctx, "drop"))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalChunks)
	assert.NotContains(t, stats.BySource, "drop")
	assert.Equal(t, int64(1), stats.BySource["keep"])
}

func TestMemoryStoreReset(t *testing.T) {
	st := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, st.Upsert(ctx, chunk("c1", "s", "a"), []float32{1, 0}))
	require.NoError(t, st.Reset(ctx))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalChunks)
}
