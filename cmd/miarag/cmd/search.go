package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artsmia/miarag/internal/search"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var topK int
	var jsonOutput bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find collection chunks similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			a, err := newApp(ctx, appOptions{offline: offline})
			if err != nil {
				return err
			}
			defer a.Close()

			engine := search.NewEngine(a.embedder, a.vectors, a.cfg.Search.DefaultTopK, a.cfg.Search.MaxTopK, a.logger)
			if topK == 0 {
				topK = a.cfg.Search.DefaultTopK
			}
			results, err := engine.Search(ctx, query, topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "%d. %s (score %.3f)\n", i+1, r.ChunkID, r.Score)
				for _, line := range strings.Split(r.Text, "\n") {
					fmt.Fprintf(out, "   %s\n", line)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to return")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (no model endpoint)")

	return cmd
}
