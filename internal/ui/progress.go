// Package ui renders ingestion progress for terminals and pipes.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/artsmia/miarag/internal/index"
)

// Renderer receives ingestion progress and the final report.
type Renderer interface {
	// Progress is called after each processed document.
	Progress(done, total int, path string)
	// Skip is called when a document is passed over.
	Skip(path, reason string)
	// Complete is called once with the run's report.
	Complete(report *index.Report)
}

// NewRenderer picks a renderer for the output: a carriage-return progress
// line on a terminal, one line per document when piped.
func NewRenderer(out *os.File) Renderer {
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		return &ttyRenderer{out: out}
	}
	return &plainRenderer{out: out}
}

// plainRenderer prints plain text, one event per line (for CI/pipes).
type plainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func (r *plainRenderer) Progress(done, total int, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%d/%d] %s\n", done, total, path)
}

func (r *plainRenderer) Skip(path, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "WARN: %s: %s\n", path, reason)
}

func (r *plainRenderer) Complete(report *index.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	writeSummary(r.out, report)
}

// ttyRenderer rewrites a single progress line in place.
type ttyRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func (r *ttyRenderer) Progress(done, total int, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\r\033[K[%d/%d] %s", done, total, path)
}

func (r *ttyRenderer) Skip(path, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\r\033[KWARN: %s: %s\n", path, reason)
}

func (r *ttyRenderer) Complete(report *index.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, "\r\033[K")
	writeSummary(r.out, report)
}

func writeSummary(out io.Writer, report *index.Report) {
	switch {
	case report.NoChange:
		fmt.Fprintf(out, "Up to date at revision %s\n", shortRev(report.Revision))
	case report.DryRun:
		fmt.Fprintf(out, "Dry run: %d changed (%s -> %s)\n",
			report.Changed,
			shortRev(report.PreviousRevision), shortRev(report.Revision))
	default:
		fmt.Fprintf(out, "Indexed %d documents (%d chunks) in %s",
			report.Indexed, report.ChunksWritten,
			report.Duration.Round(100*time.Millisecond))
		if len(report.Skipped) > 0 {
			fmt.Fprintf(out, " (%d skipped)", len(report.Skipped))
		}
		fmt.Fprintf(out, "\nNow at revision %s, %d documents tracked\n",
			shortRev(report.Revision), report.TotalDocuments)
	}
}

func shortRev(rev string) string {
	if rev == "" {
		return "(none)"
	}
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
