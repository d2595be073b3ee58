package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/artsmia/miarag/internal/corpus"
	"github.com/artsmia/miarag/internal/errors"
	"github.com/artsmia/miarag/internal/store"
)

// ProgressFunc observes per-document progress during a run. total is the
// number of changed documents; done counts completed ones including skips.
type ProgressFunc func(done, total int, path string)

// SkippedDocument records a document that was passed over and why.
type SkippedDocument struct {
	Path   string
	Reason string
}

// Report summarizes one ingestion run.
type Report struct {
	PreviousRevision string
	Revision         string
	// NoChange is set when the checkout revision matches the recorded
	// marker and the run did nothing.
	NoChange bool
	DryRun   bool

	Changed       int
	Indexed       int
	ChunksWritten int
	Skipped       []SkippedDocument

	// TotalDocuments is the document count recorded in the metadata store
	// after the run.
	TotalDocuments int

	Duration time.Duration
}

// RunnerOptions configures one ingestion run.
type RunnerOptions struct {
	// DataDir holds the ingest lock file.
	DataDir string
	// IndexPath is where the vector index is persisted after the run.
	IndexPath string
	// SkipSync leaves the checkout as-is instead of pulling.
	SkipSync bool
	// DryRun detects and reports changes without writing anything.
	DryRun bool
	// MetaBatchSize bounds a single document-state write. Defaults to 100.
	MetaBatchSize int
	Progress      ProgressFunc
}

// Runner coordinates a full ingestion run: lock, sync, diff, index, record.
type Runner struct {
	checkout *corpus.Checkout
	indexer  *Indexer
	meta     *store.MetaStore
	vectors  store.VectorStore
	opts     RunnerOptions
	logger   *slog.Logger
}

// NewRunner wires a Runner.
func NewRunner(checkout *corpus.Checkout, indexer *Indexer, meta *store.MetaStore, vectors store.VectorStore, opts RunnerOptions, logger *slog.Logger) *Runner {
	if opts.MetaBatchSize <= 0 {
		opts.MetaBatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		checkout: checkout,
		indexer:  indexer,
		meta:     meta,
		vectors:  vectors,
		opts:     opts,
		logger:   logger,
	}
}

// Run executes one ingestion run. Only one run may be active per data
// directory; a second concurrent run fails fast instead of queueing.
//
// Document-category errors (unreadable file, malformed JSON, non-object
// payload) skip the document and appear in the report. Anything else aborts
// the run with nothing recorded, so the next run retries the same diff.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	lock := NewFileLock(r.opts.DataDir)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err)
	}
	if !acquired {
		return nil, errors.New(errors.CodeStoreUnavailable,
			"another ingestion run holds the lock", nil).WithDetail("lock", lock.Path())
	}
	defer lock.Unlock()

	if !r.opts.SkipSync {
		if err := r.checkout.Sync(ctx); err != nil {
			return nil, err
		}
	}

	curr, err := r.checkout.Head()
	if err != nil {
		return nil, err
	}
	prev, err := r.meta.CurrentRevision(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err)
	}

	report := &Report{PreviousRevision: prev, Revision: curr, DryRun: r.opts.DryRun}

	if prev == curr {
		r.logger.Info("revision already processed", "revision", curr)
		report.NoChange = true
		report.Duration = time.Since(start)
		return report, nil
	}

	// Deleted corpus files are ignored; their chunks stay in the index.
	changed, err := r.checkout.ChangedFiles(prev, curr)
	if err != nil {
		return nil, err
	}
	report.Changed = len(changed)

	r.logger.Info("ingestion run starting",
		"previous", prev, "revision", curr,
		"changed", len(changed), "dry_run", r.opts.DryRun)

	if r.opts.DryRun {
		report.Duration = time.Since(start)
		return report, nil
	}

	var pending []store.DocumentState
	flush := func() error {
		if err := r.meta.UpsertDocuments(ctx, pending); err != nil {
			return errors.Wrap(errors.CodeStoreUnavailable, err)
		}
		pending = pending[:0]
		return nil
	}

	for i, relPath := range changed {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err)
		}

		state, err := r.indexer.IndexDocument(ctx, r.checkout, relPath)
		switch {
		case errors.IsSkippable(err):
			r.logger.Warn("skipping document", "path", relPath, "error", err)
			report.Skipped = append(report.Skipped, SkippedDocument{Path: relPath, Reason: err.Error()})
		case err != nil:
			return nil, err
		default:
			report.Indexed++
			report.ChunksWritten += state.ChunkCount
			pending = append(pending, state)
			if len(pending) >= r.opts.MetaBatchSize {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}

		if r.opts.Progress != nil {
			r.opts.Progress(i+1, len(changed), relPath)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if err := r.meta.RecordRevision(ctx, curr); err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err)
	}
	report.TotalDocuments, err = r.meta.DocumentCount(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreUnavailable, err)
	}
	if r.opts.IndexPath != "" {
		if err := r.vectors.Save(r.opts.IndexPath); err != nil {
			return nil, errors.Wrap(errors.CodeStoreUnavailable, err)
		}
	}

	report.Duration = time.Since(start)
	r.logger.Info("ingestion run finished",
		"revision", curr, "indexed", report.Indexed,
		"chunks", report.ChunksWritten, "skipped", len(report.Skipped),
		"documents", report.TotalDocuments, "duration", report.Duration)
	return report, nil
}
