package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/artsmia/miarag/internal/chunk"
	"github.com/artsmia/miarag/internal/config"
	"github.com/artsmia/miarag/internal/corpus"
	"github.com/artsmia/miarag/internal/embed"
	"github.com/artsmia/miarag/internal/logging"
	"github.com/artsmia/miarag/internal/store"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	embedder embed.Embedder
	vectors  *store.HNSWStore
	meta     *store.MetaStore
	chunker  *chunk.Chunker
	checkout *corpus.Checkout

	logCleanup func()
}

type appOptions struct {
	// offline swaps the configured embedding backend for the static one.
	offline bool
	// withChunker builds the tokenizer-backed chunker (ingest only).
	withChunker bool
	// logToStderr mirrors log output to stderr (serve mode).
	logToStderr bool
}

// newApp loads configuration and wires the shared components. The vector
// index is loaded from disk when present, otherwise created empty with the
// embedder's dimension.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, logCleanup, err := logging.SetupDefault(logging.Config{
		Level:         cfg.LogLevel,
		FilePath:      filepath.Join(cfg.Paths.DataDir, "logs", "miarag.log"),
		WriteToStderr: opts.logToStderr,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, logCleanup: logCleanup}

	a.embedder, err = newEmbedder(cfg, opts.offline)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.vectors, err = openVectorStore(ctx, cfg, a.embedder)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.meta, err = store.NewMetaStore(filepath.Join(cfg.Paths.DataDir, "meta.db"))
	if err != nil {
		a.Close()
		return nil, err
	}

	if opts.withChunker {
		a.chunker, err = chunk.New(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.checkout = corpus.NewCheckout(cfg.Corpus.RepoURL, cfg.Corpus.LocalPath, cfg.Corpus.Subdir, logger)
	return a, nil
}

// indexPath is where the vector index is persisted.
func (a *app) indexPath() string {
	return filepath.Join(a.cfg.Paths.DataDir, a.cfg.Paths.Collection+".hnsw")
}

// Close releases every component. Safe on a partially built app.
func (a *app) Close() {
	if a.meta != nil {
		a.meta.Close()
	}
	if a.vectors != nil {
		a.vectors.Close()
	}
	if a.embedder != nil {
		a.embedder.Close()
	}
	if a.logCleanup != nil {
		a.logCleanup()
	}
}

func newEmbedder(cfg *config.Config, offline bool) (embed.Embedder, error) {
	var inner embed.Embedder
	backend := cfg.Embedding.Backend
	if offline {
		backend = "static"
	}
	switch backend {
	case "static":
		inner = embed.NewStaticEmbedder()
	case "ollama":
		ollama, err := embed.NewOllamaEmbedder(embed.OllamaConfig{
			Host:       cfg.Embedding.OllamaHost,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		inner = ollama
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Embedding.Backend)
	}
	return embed.NewCachedEmbedder(inner, cfg.Embedding.CacheSize), nil
}

// openVectorStore loads the persisted index when one exists. Otherwise it
// creates an empty store sized to the embedder, probing the backend once
// when the dimension is not configured.
func openVectorStore(ctx context.Context, cfg *config.Config, embedder embed.Embedder) (*store.HNSWStore, error) {
	indexPath := filepath.Join(cfg.Paths.DataDir, cfg.Paths.Collection+".hnsw")

	dims, err := store.ReadIndexDimensions(indexPath)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		dims = embedder.Dimensions()
	}
	if dims == 0 {
		vec, err := embedder.Embed(ctx, "dimension probe")
		if err != nil {
			return nil, fmt.Errorf("detect embedding dimensions: %w", err)
		}
		dims = len(vec)
	}

	vectors, err := store.NewHNSWStore(store.VectorStoreConfig{Dimensions: dims})
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(indexPath); err == nil {
		if err := vectors.Load(indexPath); err != nil {
			vectors.Close()
			return nil, fmt.Errorf("load vector index: %w", err)
		}
	}
	return vectors, nil
}
