package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artsmia/miarag/internal/embed"
	"github.com/artsmia/miarag/internal/errors"
	"github.com/artsmia/miarag/internal/store"
)

// failingEmbedder always errors, for surfacing embedding failures.
type failingEmbedder struct {
	*embed.StaticEmbedder
}

func (f failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("model endpoint unreachable")
}

func newEngineFixture(t *testing.T, texts ...string) (*Engine, *store.HNSWStore) {
	t.Helper()

	vectors, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: embed.StaticDimensions})
	require.NoError(t, err)
	t.Cleanup(func() { vectors.Close() })

	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { embedder.Close() })

	ctx := context.Background()
	for i, text := range texts {
		vec, err := embedder.Embed(ctx, text)
		require.NoError(t, err)
		docID := fmt.Sprintf("doc%d", i)
		require.NoError(t, vectors.Upsert(ctx, []store.ChunkRecord{{
			ID:         fmt.Sprintf("doc%d_chunk_0", i),
			DocumentID: docID,
			Text:       text,
			Vector:     vec,
		}}))
	}

	return NewEngine(embedder, vectors, DefaultTopK, MaxTopK, nil), vectors
}

func TestEngineSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("nearest chunk comes back first with payload", func(t *testing.T) {
		// Given chunks about distinct artworks
		engine, _ := newEngineFixture(t,
			"Title: Sunflowers\nArtist: Vincent van Gogh\nMedium: Oil on canvas",
			"Title: Bronze Bowl\nCulture: Chinese\nMedium: Bronze",
		)

		// When querying for one of them verbatim-ish
		results, err := engine.Search(ctx, "Sunflowers Vincent van Gogh oil canvas", 2)

		// Then it ranks first and carries its text
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "doc0_chunk_0", results[0].ChunkID)
		assert.Equal(t, "doc0", results[0].DocumentID)
		assert.Contains(t, results[0].Text, "Sunflowers")
		assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
	})

	t.Run("zero top_k falls back to the default", func(t *testing.T) {
		engine, _ := newEngineFixture(t, "Title: Vase")

		results, err := engine.Search(ctx, "vase", 0)

		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("configured default bounds a zero top_k", func(t *testing.T) {
		// Given an engine configured with a default of 2 over three chunks
		_, vectors := newEngineFixture(t, "Title: Vase", "Title: Bowl", "Title: Plate")
		embedder := embed.NewStaticEmbedder()
		t.Cleanup(func() { embedder.Close() })
		engine := NewEngine(embedder, vectors, 2, MaxTopK, nil)

		// When searching without asking for a count
		results, err := engine.Search(ctx, "vase bowl plate", 0)

		// Then the configured default caps the result set
		require.NoError(t, err)
		assert.Len(t, results, 2)
		assert.Equal(t, 2, engine.DefaultTopK())
	})

	t.Run("empty index yields empty results", func(t *testing.T) {
		engine, _ := newEngineFixture(t)

		results, err := engine.Search(ctx, "anything", 5)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("blank query is a client error", func(t *testing.T) {
		engine, _ := newEngineFixture(t, "Title: Vase")

		_, err := engine.Search(ctx, "   \n ", 5)

		require.Error(t, err)
		assert.Equal(t, errors.CodeQueryEmpty, errors.CodeOf(err))
		assert.True(t, errors.IsClient(err))
	})

	t.Run("out-of-range top_k is a client error", func(t *testing.T) {
		engine, _ := newEngineFixture(t, "Title: Vase")

		for _, topK := range []int{-1, MaxTopK + 1} {
			_, err := engine.Search(ctx, "vase", topK)
			require.Error(t, err, "top_k=%d", topK)
			assert.Equal(t, errors.CodeTopKOutOfRange, errors.CodeOf(err))
			assert.True(t, errors.IsClient(err))
		}
	})

	t.Run("embedding failure is a service error", func(t *testing.T) {
		vectors, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: embed.StaticDimensions})
		require.NoError(t, err)
		defer vectors.Close()
		engine := NewEngine(failingEmbedder{embed.NewStaticEmbedder()}, vectors, DefaultTopK, MaxTopK, nil)

		_, err = engine.Search(ctx, "vase", 5)

		require.Error(t, err)
		assert.Equal(t, errors.CodeEmbeddingFailed, errors.CodeOf(err))
		assert.False(t, errors.IsClient(err))
	})
}
