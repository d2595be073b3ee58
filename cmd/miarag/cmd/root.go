// Package cmd provides the CLI commands for miarag.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artsmia/miarag/pkg/version"
)

var (
	configPath string
	logLevel   string
)

// NewRootCmd creates the root command for the miarag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "miarag",
		Short: "Incremental RAG over a git-versioned art collection",
		Long: `miarag indexes the Minneapolis Institute of Art's JSON collection
into a local vector store and answers questions over it.

Ingestion is incremental: each run diffs the corpus repository against the
last processed revision and re-embeds only what changed.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("miarag version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
