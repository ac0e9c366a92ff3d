package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jjenkins/parliament/internal/ministry"
	"github.com/jjenkins/parliament/internal/service"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestSkipSummaries bool
	ingestSummariesOnly bool
	ingestOnlyBlanks    bool
	ingestMetricsAddr   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest START [END]",
	Short: "Ingest sittings for a date range and generate summaries",
	Long: `Ingest fetches the record of every calendar day from START to END
inclusive, stores each sitting found and then generates summaries for them.

Dates are DD-MM-YYYY or YYYY-MM-DD. Days without a sitting are skipped. A
failing day is logged and counted; the run continues with the next day.

Examples:
  # Ingest a single sitting
  parliament ingest 05-03-2024

  # Ingest a month without summaries
  parliament ingest 2024-03-01 2024-03-31 --skip-summaries

  # Fill in missing summaries for sittings already stored
  parliament ingest 2024-03-01 2024-03-31 --summaries-only --only-blanks`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestSkipSummaries, "skip-summaries", false, "Ingest without generating summaries")
	ingestCmd.Flags().BoolVar(&ingestSummariesOnly, "summaries-only", false, "Generate summaries for stored sittings without ingesting")
	ingestCmd.Flags().BoolVar(&ingestOnlyBlanks, "only-blanks", false, "Only generate summaries that are missing")
	ingestCmd.Flags().StringVar(&ingestMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")
	ingestCmd.MarkFlagsMutuallyExclusive("skip-summaries", "summaries-only")
}

func runIngest(cmd *cobra.Command, args []string) error {
	start, end, err := parseDateArgs(args)
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

	if err := store.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		return err
	}

	pool := service.NewWritePool(cfg.Ingest.WriteConcurrency)
	resolver := service.NewResolver(db, pool)
	attributor := ministry.NewAttributor(ministry.Default(), cfg.Ingest.PreambleLength)
	source := service.NewSourceClient(cfg.Source)
	ingestor := service.NewIngestor(db, source, resolver, attributor, pool, cfg.Source.ReportURLTemplate, logger)

	passes := service.AllPasses()
	if ingestSkipSummaries {
		passes = service.SummaryPasses{}
	}

	var summarizer service.SummaryRunner
	if passes.Any() {
		summarizer, err = newSummarizer(db, resolver)
		if err != nil {
			if ingestSummariesOnly {
				return err
			}
			logger.Warn("Summaries disabled", zap.Error(err))
			passes = service.SummaryPasses{}
		}
	}

	var metrics *service.IngestMetrics
	if ingestMetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			service.NewStatsCollector(service.NewStatsService(db), logger),
		)
		metrics = service.NewIngestMetrics(reg)

		srv := serveMetrics(ingestMetricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	orchestrator := service.NewOrchestrator(ingestor, store.NewSittingStore(db), summarizer, service.OrchestratorConfig{
		ChunkSize:  cfg.Ingest.ChunkSize,
		ChunkDelay: cfg.Ingest.ChunkDelay,
		Metrics:    metrics,
	}, logger)

	report, err := orchestrator.Run(ctx, service.RunOptions{
		Start:      start,
		End:        end,
		Ingest:     !ingestSummariesOnly,
		Summaries:  passes,
		OnlyBlanks: ingestOnlyBlanks,
	})
	if report != nil {
		orchestrator.PrintSummary(report)
	}
	if err != nil {
		if ctx.Err() != nil {
			return errors.New("ingest cancelled")
		}
		return err
	}

	// per-date failures are reported above and do not fail the command
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
