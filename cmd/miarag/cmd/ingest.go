package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/artsmia/miarag/internal/index"
	"github.com/artsmia/miarag/internal/ui"
)

// newIngestCmd creates the ingest command.
func newIngestCmd() *cobra.Command {
	var dryRun bool
	var noSync bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Sync the corpus and index what changed",
		Long: `Ingest pulls the corpus repository, diffs it against the last
processed revision and re-embeds only the changed documents. The first run
indexes the whole corpus.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, appOptions{offline: offline, withChunker: true})
			if err != nil {
				return err
			}
			defer a.Close()

			renderer := ui.NewRenderer(os.Stdout)
			indexer := index.NewIndexer(a.chunker, a.embedder, a.vectors, a.meta,
				a.cfg.Search.MaxBatchSize, a.logger)
			runner := index.NewRunner(a.checkout, indexer, a.meta, a.vectors,
				index.RunnerOptions{
					DataDir:       a.cfg.Paths.DataDir,
					IndexPath:     a.indexPath(),
					SkipSync:      noSync,
					DryRun:        dryRun,
					MetaBatchSize: a.cfg.Search.MaxBatchSize,
					Progress:      renderer.Progress,
				}, a.logger)

			report, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			for _, skipped := range report.Skipped {
				renderer.Skip(skipped.Path, skipped.Reason)
			}
			renderer.Complete(report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Skip pulling the corpus repository")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (no model endpoint)")

	return cmd
}
