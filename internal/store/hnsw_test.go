package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: 4})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func rec(id, docID string, vec ...float32) ChunkRecord {
	return ChunkRecord{ID: id, DocumentID: docID, Text: "text for " + id, Vector: vec}
}

func TestHNSWUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch is a no-op", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Upsert(ctx, nil))
		assert.Zero(t, s.Count())
	})

	t.Run("replaying a batch does not grow the store", func(t *testing.T) {
		s := newTestStore(t)
		batch := []ChunkRecord{
			rec("doc1_chunk_0", "doc1", 1, 0, 0, 0),
			rec("doc1_chunk_1", "doc1", 0, 1, 0, 0),
		}

		require.NoError(t, s.Upsert(ctx, batch))
		require.NoError(t, s.Upsert(ctx, batch))

		assert.Equal(t, 2, s.Count())
	})

	t.Run("upsert replaces the vector for an existing chunk", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Upsert(ctx, []ChunkRecord{rec("c0", "d", 1, 0, 0, 0)}))
		require.NoError(t, s.Upsert(ctx, []ChunkRecord{rec("c0", "d", 0, 0, 0, 1)}))

		hits, err := s.Search(ctx, []float32{0, 0, 0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "c0", hits[0].ChunkID)
		assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	})

	t.Run("wrong dimensions are rejected", func(t *testing.T) {
		s := newTestStore(t)
		err := s.Upsert(ctx, []ChunkRecord{rec("c0", "d", 1, 0)})
		assert.ErrorIs(t, err, ErrDimensionMismatch{Expected: 4, Got: 2})
	})
}

func TestHNSWSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("results carry payload and come back nearest first", func(t *testing.T) {
		// Given three chunks along distinct axes
		s := newTestStore(t)
		require.NoError(t, s.Upsert(ctx, []ChunkRecord{
			rec("a_chunk_0", "a", 1, 0, 0, 0),
			rec("b_chunk_0", "b", 0.9, 0.1, 0, 0),
			rec("c_chunk_0", "c", 0, 0, 1, 0),
		}))

		// When searching near the first axis
		hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)

		// Then ordering is by ascending distance with payload attached
		assert.Equal(t, "a_chunk_0", hits[0].ChunkID)
		assert.Equal(t, "a", hits[0].DocumentID)
		assert.Equal(t, "text for a_chunk_0", hits[0].Text)
		assert.Equal(t, "b_chunk_0", hits[1].ChunkID)
		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
		}
	})

	t.Run("empty index returns empty results", func(t *testing.T) {
		s := newTestStore(t)
		hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("deleted chunks do not surface", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Upsert(ctx, []ChunkRecord{
			rec("a_chunk_0", "a", 1, 0, 0, 0),
			rec("b_chunk_0", "b", 0, 1, 0, 0),
		}))
		require.NoError(t, s.Delete(ctx, []string{"a_chunk_0"}))

		hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)
		for _, h := range hits {
			assert.NotEqual(t, "a_chunk_0", h.ChunkID)
		}
		assert.False(t, s.Contains("a_chunk_0"))
		assert.Equal(t, 1, s.Count())
	})

	t.Run("orphans from replacements do not shrink the result set", func(t *testing.T) {
		// Given two live chunks buried under many replacement orphans
		s := newTestStore(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, s.Upsert(ctx, []ChunkRecord{
				rec("a_chunk_0", "a", 1, 0, 0, float32(i)*0.01),
				rec("b_chunk_0", "b", 0, 1, 0, float32(i)*0.01),
			}))
		}

		// When asking for exactly as many hits as there are live chunks
		hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)

		// Then every live chunk surfaces, once
		require.Len(t, hits, 2)
		assert.Equal(t, "a_chunk_0", hits[0].ChunkID)
		assert.Equal(t, "b_chunk_0", hits[1].ChunkID)
	})
}

func TestHNSWPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	s := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, []ChunkRecord{
		rec("doc1_chunk_0", "doc1", 1, 0, 0, 0),
		rec("doc2_chunk_0", "doc2", 0, 1, 0, 0),
	}))
	require.NoError(t, s.Save(path))

	loaded, err := NewHNSWStore(VectorStoreConfig{Dimensions: 4})
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	hits, err := loaded.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc1_chunk_0", hits[0].ChunkID)
	assert.Equal(t, "text for doc1_chunk_0", hits[0].Text)
}
