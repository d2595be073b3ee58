// Package index runs ingestion: it turns changed corpus documents into
// embedded chunks in the vector store and keeps the metadata store's
// document states and revision marker in step.
package index

import (
	"context"
	"log/slog"

	"github.com/artsmia/miarag/internal/chunk"
	"github.com/artsmia/miarag/internal/corpus"
	"github.com/artsmia/miarag/internal/embed"
	"github.com/artsmia/miarag/internal/errors"
	"github.com/artsmia/miarag/internal/store"
)

// Source reads documents out of the corpus checkout.
type Source interface {
	ReadFile(relPath string) ([]byte, error)
	AbsPath(relPath string) string
}

// Indexer embeds one document at a time into the vector store. Metadata
// writes are left to the caller so they can be batched across documents.
type Indexer struct {
	chunker  *chunk.Chunker
	embedder embed.Embedder
	vectors  store.VectorStore
	meta     *store.MetaStore
	maxBatch int
	logger   *slog.Logger
}

// NewIndexer wires an Indexer. maxBatch bounds the size of a single vector
// store upsert.
func NewIndexer(chunker *chunk.Chunker, embedder embed.Embedder, vectors store.VectorStore, meta *store.MetaStore, maxBatch int, logger *slog.Logger) *Indexer {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		meta:     meta,
		maxBatch: maxBatch,
		logger:   logger,
	}
}

// IndexDocument processes a single changed document: hash, parse, assemble,
// chunk, embed, upsert. It returns the document's new state for the caller
// to persist. Document-category errors mean the file should be skipped and
// the run should continue.
func (ix *Indexer) IndexDocument(ctx context.Context, src Source, relPath string) (store.DocumentState, error) {
	hash, err := corpus.HashFile(src.AbsPath(relPath))
	if err != nil {
		return store.DocumentState{}, err
	}

	data, err := src.ReadFile(relPath)
	if err != nil {
		return store.DocumentState{}, err
	}

	doc, err := corpus.Parse(relPath, data)
	if err != nil {
		return store.DocumentState{}, err
	}

	segments := ix.chunker.Chunk(doc.ID, doc.AssembleText())

	if len(segments) > 0 {
		texts := make([]string, len(segments))
		for i, seg := range segments {
			texts[i] = seg.Text
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return store.DocumentState{}, errors.Wrap(errors.CodeEmbeddingFailed, err).WithDetail("path", relPath)
		}

		records := make([]store.ChunkRecord, len(segments))
		for i, seg := range segments {
			records[i] = store.ChunkRecord{
				ID:         seg.ID,
				DocumentID: doc.ID,
				Text:       seg.Text,
				Vector:     vectors[i],
			}
		}
		for start := 0; start < len(records); start += ix.maxBatch {
			end := min(start+ix.maxBatch, len(records))
			if err := ix.vectors.Upsert(ctx, records[start:end]); err != nil {
				return store.DocumentState{}, errors.Wrap(errors.CodeBatchWrite, err).WithDetail("path", relPath)
			}
		}
	}

	if err := ix.pruneStaleChunks(ctx, relPath, doc.ID, len(segments)); err != nil {
		return store.DocumentState{}, err
	}

	return store.DocumentState{
		Path:       relPath,
		DocID:      doc.ID,
		Hash:       hash,
		ChunkCount: len(segments),
	}, nil
}

// pruneStaleChunks removes chunks left over from the document's previous
// version: every chunk past the new count, and the whole old set when the
// document id itself changed.
func (ix *Indexer) pruneStaleChunks(ctx context.Context, relPath, docID string, newCount int) error {
	prev, ok, err := ix.meta.Document(ctx, relPath)
	if err != nil {
		return errors.Wrap(errors.CodeStoreUnavailable, err).WithDetail("path", relPath)
	}
	if !ok {
		return nil
	}

	var stale []string
	if prev.DocID != docID {
		for i := 0; i < prev.ChunkCount; i++ {
			stale = append(stale, chunk.SegmentID(prev.DocID, i))
		}
	} else {
		for i := newCount; i < prev.ChunkCount; i++ {
			stale = append(stale, chunk.SegmentID(docID, i))
		}
	}
	if len(stale) == 0 {
		return nil
	}

	ix.logger.Debug("pruning stale chunks", "path", relPath, "count", len(stale))
	if err := ix.vectors.Delete(ctx, stale); err != nil {
		return errors.Wrap(errors.CodeBatchWrite, err).WithDetail("path", relPath)
	}
	return nil
}
