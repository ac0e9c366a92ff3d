package cmd

import (
	"github.com/jjenkins/parliament/internal/service"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/spf13/cobra"
)

var (
	summarizePasses     string
	summarizeOnlyBlanks bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize START [END]",
	Short: "Generate summaries for stored sittings",
	Long: `Summarize generates section, bill, sitting and member summaries for the
sittings already stored between START and END inclusive.

Examples:
  # Regenerate everything for one sitting
  parliament summarize 05-03-2024

  # Only fill in missing bill and member summaries for March
  parliament summarize 2024-03-01 2024-03-31 --passes bills,members --only-blanks`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringVar(&summarizePasses, "passes", "all", "Comma separated passes: sections, bills, sittings, members or all")
	summarizeCmd.Flags().BoolVar(&summarizeOnlyBlanks, "only-blanks", false, "Only generate summaries that are missing")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	start, end, err := parseDateArgs(args)
	if err != nil {
		return err
	}
	passes, err := service.ParsePasses(summarizePasses)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	resolver := service.NewResolver(db, service.NewWritePool(cfg.Ingest.WriteConcurrency))
	summarizer, err := newSummarizer(db, resolver)
	if err != nil {
		return err
	}

	orchestrator := service.NewOrchestrator(nil, store.NewSittingStore(db), summarizer, service.OrchestratorConfig{}, logger)
	report, err := orchestrator.Run(ctx, service.RunOptions{
		Start:      start,
		End:        end,
		Summaries:  passes,
		OnlyBlanks: summarizeOnlyBlanks,
	})
	if err != nil {
		return err
	}
	orchestrator.PrintSummary(report)
	return report.SummaryErr
}
