// Package search answers similarity queries against the chunk index.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artsmia/miarag/internal/embed"
	"github.com/artsmia/miarag/internal/errors"
	"github.com/artsmia/miarag/internal/store"
)

const (
	// DefaultTopK is the result count used when the caller does not ask
	// for one.
	DefaultTopK = 5
	// MaxTopK caps the requested result count.
	MaxTopK = 100
)

// Result is one retrieved chunk.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Distance   float32 `json:"distance"`
	Score      float32 `json:"score"`
}

// Engine embeds a query and retrieves nearest chunks.
type Engine struct {
	embedder    embed.Embedder
	vectors     store.VectorStore
	defaultTopK int
	maxTopK     int
	logger      *slog.Logger
}

// NewEngine wires an Engine. Zero values for defaultTopK and maxTopK fall
// back to the package constants.
func NewEngine(embedder embed.Embedder, vectors store.VectorStore, defaultTopK, maxTopK int, logger *slog.Logger) *Engine {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder:    embedder,
		vectors:     vectors,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      logger,
	}
}

// DefaultTopK returns the result count used when a caller passes zero.
func (e *Engine) DefaultTopK() int {
	return e.defaultTopK
}

// Search validates the query, embeds it and returns up to topK chunks
// ordered by ascending distance. topK of zero means the configured default.
// An empty index yields an empty result set, not an error.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.ClientError(errors.CodeQueryEmpty, "query must not be empty")
	}
	if topK == 0 {
		topK = e.defaultTopK
	}
	if topK < 1 || topK > e.maxTopK {
		return nil, errors.ClientError(errors.CodeTopKOutOfRange,
			fmt.Sprintf("top_k must be between 1 and %d, got %d", e.maxTopK, topK))
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.CodeEmbeddingFailed, err)
	}

	hits, err := e.vectors.Search(ctx, vector, topK)
	if err != nil {
		return nil, errors.ServiceError(errors.CodeStoreUnavailable, err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			Text:       hit.Text,
			Distance:   hit.Distance,
			Score:      hit.Score,
		}
	}

	e.logger.Debug("search completed", "top_k", topK, "results", len(results))
	return results, nil
}
