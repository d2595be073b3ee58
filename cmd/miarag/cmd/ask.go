package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artsmia/miarag/internal/answer"
	"github.com/artsmia/miarag/internal/search"
)

// newAskCmd creates the ask command.
func newAskCmd() *cobra.Command {
	var topK int
	var modelID string
	var answerOnly bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question over the indexed collection",
		Long: `Ask retrieves the most relevant chunks, hands them to the
generation model as context and prints the answer. Responses are cached
briefly, so repeating a question is cheap.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			a, err := newApp(ctx, appOptions{offline: offline})
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

			responseType := answer.ResponseFull
			if answerOnly {
				responseType = answer.ResponseAnswerOnly
			}
			result, err := orchestrator.Ask(ctx, answer.Request{
				Query:        query,
				TopK:         topK,
				ModelID:      modelID,
				ResponseType: responseType,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.ResponseType == answer.ResponseAnswerOnly {
				fmt.Fprint(out, result.Text)
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Full)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks used as context")
	cmd.Flags().StringVar(&modelID, "model", "", "Bedrock model ID")
	cmd.Flags().BoolVar(&answerOnly, "answer-only", false, "Print just the answer text")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (no model endpoint)")

	return cmd
}
