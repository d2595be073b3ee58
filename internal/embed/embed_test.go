package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts inner calls, to observe
// cache behavior.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls int
	batchTexts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchTexts += len(texts)
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestStaticEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewStaticEmbedder()
	defer e.Close()

	t.Run("deterministic for identical text", func(t *testing.T) {
		a, err := e.Embed(ctx, "Oil on canvas by Vincent van Gogh")
		require.NoError(t, err)
		b, err := e.Embed(ctx, "Oil on canvas by Vincent van Gogh")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("distinct text embeds differently", func(t *testing.T) {
		a, err := e.Embed(ctx, "Sunflowers")
		require.NoError(t, err)
		b, err := e.Embed(ctx, "Bronze sculpture")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("non-empty vectors are unit length", func(t *testing.T) {
		vec, err := e.Embed(ctx, "Ceramic vase, Ming dynasty")
		require.NoError(t, err)
		require.Len(t, vec, StaticDimensions)

		var sumSquares float64
		for _, v := range vec {
			sumSquares += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
	})

	t.Run("whitespace input yields zero vector", func(t *testing.T) {
		vec, err := e.Embed(ctx, "   \n ")
		require.NoError(t, err)
		assert.Equal(t, make([]float32, StaticDimensions), vec)
	})
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("repeat embeds hit the cache", func(t *testing.T) {
		inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
		c := NewCachedEmbedder(inner, 10)

		first, err := c.Embed(ctx, "Sunflowers")
		require.NoError(t, err)
		second, err := c.Embed(ctx, "Sunflowers")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.embedCalls)
	})

	t.Run("batch embeds only the cache misses", func(t *testing.T) {
		inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
		c := NewCachedEmbedder(inner, 10)

		_, err := c.Embed(ctx, "cached already")
		require.NoError(t, err)
		inner.batchTexts = 0

		vecs, err := c.EmbedBatch(ctx, []string{"cached already", "new text"})
		require.NoError(t, err)

		require.Len(t, vecs, 2)
		assert.Equal(t, 1, inner.batchTexts)
	})
}

func TestOllamaEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("batch request round-trips", func(t *testing.T) {
		// Given a fake Ollama endpoint echoing fixed vectors
		var gotModel string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/embed", r.URL.Path)
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotModel = req.Model

			resp := ollamaEmbedResponse{}
			for range req.Input {
				resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2, 0.3})
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer srv.Close()

		e, err := NewOllamaEmbedder(OllamaConfig{
			Host: srv.URL, Model: "embeddinggemma", Dimensions: 3,
		})
		require.NoError(t, err)
		defer e.Close()

		vecs, err := e.EmbedBatch(ctx, []string{"a", "b"})

		require.NoError(t, err)
		require.Len(t, vecs, 2)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vecs[0])
		assert.Equal(t, "embeddinggemma", gotModel)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		e, err := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "missing"})
		require.NoError(t, err)
		defer e.Close()

		_, err = e.Embed(ctx, "text")
		assert.ErrorContains(t, err, "status 404")
	})

	t.Run("dimension mismatch is rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ollamaEmbedResponse{
				Embeddings: [][]float32{{0.1, 0.2}},
			})
		}))
		defer srv.Close()

		e, err := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Model: "m", Dimensions: 3})
		require.NoError(t, err)
		defer e.Close()

		_, err = e.Embed(ctx, "text")
		assert.ErrorContains(t, err, "dimensions")
	})

	t.Run("model is required", func(t *testing.T) {
		_, err := NewOllamaEmbedder(OllamaConfig{})
		assert.Error(t, err)
	})
}
