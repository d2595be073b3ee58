package cmd

import (
	"github.com/spf13/cobra"

	"github.com/artsmia/miarag/internal/answer"
	"github.com/artsmia/miarag/internal/search"
	"github.com/artsmia/miarag/internal/server"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var addr string
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search and ask over HTTP",
		Long: `Serve exposes POST /search, POST /ask and GET /healthz. The
server drains in-flight requests on SIGINT/SIGTERM before exiting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, appOptions{offline: offline, logToStderr: true})
			if err != nil {
				return err
			}
			defer a.Close()

			generator, err := answer.NewBedrockGenerator(ctx, a.cfg.Answer.Region)
			if err != nil {
				return err
			}

			engine := search.NewEngine(a.embedder, a.vectors, a.cfg.Search.DefaultTopK, a.cfg.Search.MaxTopK, a.logger)
			orchestrator := answer.NewOrchestrator(engine, generator,
				answer.NewCache(answer.DefaultCacheSize, a.cfg.CacheTTL()),
				a.cfg.Answer.DefaultModelID,
				answer.GenerationParams{
					MaxTokens:   a.cfg.Answer.MaxTokens,
					Temperature: a.cfg.Answer.Temperature,
					TopP:        a.cfg.Answer.TopP,
				}, a.logger)

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return server.New(engine, orchestrator, a.vectors, addr, a.logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (no model endpoint)")

	return cmd
}
