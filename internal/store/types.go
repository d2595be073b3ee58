// Package store holds the persistence layer: the HNSW vector index over
// chunk embeddings and the SQLite metadata store that tracks document
// hashes and processed corpus revisions.
package store

import (
	"context"
	"fmt"
)

// ChunkRecord is one embedded chunk headed for the vector index.
type ChunkRecord struct {
	// ID is the deterministic chunk id ({documentID}_chunk_{index}).
	ID string
	// DocumentID is the owning document's id.
	DocumentID string
	// Text is the chunk's decoded text, stored alongside the vector so
	// search results can be returned without a second lookup.
	Text string
	// Vector is the chunk's embedding.
	Vector []float32
}

// SearchHit is one nearest-neighbor result.
type SearchHit struct {
	ChunkID    string
	DocumentID string
	Text       string
	// Distance is the raw metric distance; results are ordered ascending.
	Distance float32
	// Score is the distance mapped to a 0-1 similarity.
	Score float32
}

// VectorStoreConfig configures the HNSW index.
type VectorStoreConfig struct {
	Dimensions int
	// Metric is "cos" or "l2". Defaults to cosine.
	Metric   string
	M        int
	EfSearch int
}

// VectorStore indexes chunk embeddings for nearest-neighbor search.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	// Upsert inserts records, replacing any existing record with the same
	// chunk ID. Replaying a batch is a no-op in effect.
	Upsert(ctx context.Context, records []ChunkRecord) error

	// Search returns up to k nearest hits ordered by ascending distance.
	// An empty index returns an empty slice.
	Search(ctx context.Context, query []float32, k int) ([]*SearchHit, error)

	// Delete removes chunks by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	Contains(id string) bool
	Count() int

	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates a vector whose length does not match the
// index configuration.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
