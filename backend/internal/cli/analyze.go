package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"diarygraph/backend/internal/adapter"
	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/ui"
	"diarygraph/backend/pkg/config"
)

func analyzeCmd() *cobra.Command {
	var (
		entriesFile string
		out         string
		model       string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fill in mood, entities and place for entries that lack them",
		Long: `Send every entry without a mood to the LLM and write the results back.
The endpoint comes from LLM_URL, LLM_API_KEY and MODEL_ID.

  graphctl analyze --entries entries.json
  graphctl analyze --entries entries.json --out analysed.json --model gpt-4o`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			entries, err := diary.ReadEntriesFile(entriesFile)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			analyzer := adapter.NewAnalyzer(cfg.LLMURL, cfg.LLMAPIKey, cfg.ModelID)
			analyzer.SetModel(model)

			pending := 0
			for _, e := range entries {
				if !e.Analyzed() {
					pending++
				}
			}
			ui.Banner(w, fmt.Sprintf("analyze with %s", analyzer.GetModel()))
			if pending == 0 {
				fmt.Fprintf(w, "  %s every entry already has a mood\n", ui.StatusIcon(true))
				return nil
			}

			enriched, n := adapter.EnrichEntries(cmd.Context(), analyzer, entries, concurrency)

			target := out
			if target == "" {
				target = entriesFile
			}
			if err := diary.WriteEntriesFile(target, enriched); err != nil {
				return err
			}

			fmt.Fprintf(w, "  %s analysed %d of %d entries\n", ui.StatusIcon(n == pending), n, pending)
			if n < pending {
				fmt.Fprintf(w, "  %s %d entries failed and were left unchanged\n", ui.WarnIcon(), pending-n)
			}
			fmt.Fprintf(w, "  Wrote %s\n", ui.Info.Sprint(target))
			return nil
		},
	}

	cmd.Flags().StringVar(&entriesFile, "entries", "", "JSON file with diary entries")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to rewriting --entries)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use instead of MODEL_ID")
	cmd.Flags().IntVar(&concurrency, "concurrency", adapter.DefaultConcurrency, "Parallel analysis requests")
	_ = cmd.MarkFlagRequired("entries")
	return cmd
}
