package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/artsmia/miarag/internal/index"
)

func TestPlainRenderer(t *testing.T) {
	t.Run("progress and skips are one line each", func(t *testing.T) {
		var buf strings.Builder
		r := &plainRenderer{out: &buf}

		r.Progress(1, 3, "objects/1.json")
		r.Skip("objects/2.json", "top-level JSON value is []interface {}, want object")
		r.Progress(3, 3, "objects/3.json")

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		assert.Equal(t, "[1/3] objects/1.json", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "WARN: objects/2.json:"))
		assert.Equal(t, "[3/3] objects/3.json", lines[2])
	})

	t.Run("summary reports counts and revision", func(t *testing.T) {
		var buf strings.Builder
		r := &plainRenderer{out: &buf}

		r.Complete(&index.Report{
			Revision:       "0123456789abcdef0123",
			Indexed:        12,
			ChunksWritten:  40,
			TotalDocuments: 12,
			Skipped:        []index.SkippedDocument{{Path: "objects/bad.json"}},
			Duration:       1200 * time.Millisecond,
		})

		out := buf.String()
		assert.Contains(t, out, "Indexed 12 documents (40 chunks)")
		assert.Contains(t, out, "(1 skipped)")
		assert.Contains(t, out, "12 documents tracked")
		assert.Contains(t, out, "0123456789ab")
		assert.NotContains(t, out, "0123456789abcdef")
	})

	t.Run("no-change summary", func(t *testing.T) {
		var buf strings.Builder
		r := &plainRenderer{out: &buf}

		r.Complete(&index.Report{Revision: "abc123", NoChange: true})

		assert.Equal(t, "Up to date at revision abc123\n", buf.String())
	})

	t.Run("dry-run summary", func(t *testing.T) {
		var buf strings.Builder
		r := &plainRenderer{out: &buf}

		r.Complete(&index.Report{
			PreviousRevision: "", Revision: "abc123",
			Changed: 4, DryRun: true,
		})

		assert.Equal(t, "Dry run: 4 changed ((none) -> abc123)\n", buf.String())
	})
}
