package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jjenkins/parliament/internal/store"
	"go.uber.org/zap"
)

// Orchestrator defaults
const (
	DefaultChunkSize  = 5
	DefaultChunkDelay = time.Second
)

// DateIngestor ingests a single date
type DateIngestor interface {
	IngestDate(ctx context.Context, date time.Time) SittingResult
}

// SummaryRunner generates summaries for a set of sittings
type SummaryRunner interface {
	Run(ctx context.Context, sittingIDs []int64, passes SummaryPasses, onlyBlanks bool) (*SummaryStats, error)
}

// IngestStats tracks ingestion statistics
type IngestStats struct {
	Total      int
	Ingested   int
	Skipped    int
	Failed     int
	Sections   int
	Attendance int
	Words      int
}

// RunOptions selects the date range and the phases of a run. A zero End
// means the single day Start.
type RunOptions struct {
	Start      time.Time
	End        time.Time
	Ingest     bool
	Summaries  SummaryPasses
	OnlyBlanks bool
}

// RunReport is the outcome of a run, with one result per date in date order
type RunReport struct {
	RunID      string
	Outcomes   []SittingResult
	Stats      IngestStats
	SittingIDs []int64
	Summaries  *SummaryStats
	SummaryErr error
	Cancelled  bool
}

// OrchestratorConfig bounds a run
type OrchestratorConfig struct {
	ChunkSize  int
	ChunkDelay time.Duration
	Metrics    *IngestMetrics
}

// Orchestrator drives ingestion over a date range in paced chunks, then
// runs the summary passes
type Orchestrator struct {
	ingestor   DateIngestor
	sittings   *store.SittingStore
	summarizer SummaryRunner
	metrics    *IngestMetrics
	chunkSize  int
	chunkDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *zap.Logger
	out        io.Writer
}

// NewOrchestrator creates a new Orchestrator. summarizer may be nil when no
// summary passes will be requested.
func NewOrchestrator(ingestor DateIngestor, sittings *store.SittingStore, summarizer SummaryRunner, cfg OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		ingestor:   ingestor,
		sittings:   sittings,
		summarizer: summarizer,
		metrics:    cfg.Metrics,
		chunkSize:  cfg.ChunkSize,
		chunkDelay: cfg.ChunkDelay,
		sleep:      sleepContext,
		logger:     logger.Named("orchestrator"),
		out:        os.Stdout,
	}
	if o.chunkSize <= 0 {
		o.chunkSize = DefaultChunkSize
	}
	if o.chunkDelay < 0 {
		o.chunkDelay = DefaultChunkDelay
	}
	return o
}

// DateRange returns every calendar day from start to end inclusive
func DateRange(start, end time.Time) []time.Time {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Run ingests the range and then runs the requested summary passes. A
// failing date is recorded and the run continues. Cancelling ctx stops new
// chunks from starting; the partial report is returned with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	end := opts.End
	if end.IsZero() {
		end = opts.Start
	}
	if end.Before(opts.Start) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			end.Format(sourceDateLayout), opts.Start.Format(sourceDateLayout))
	}

	report := &RunReport{RunID: uuid.NewString()}
	log := o.logger.With(zap.String("run_id", report.RunID))

	if opts.Ingest {
		dates := DateRange(opts.Start, end)
		report.Stats.Total = len(dates)
		log.Info("Starting ingestion",
			zap.String("start", opts.Start.Format(sourceDateLayout)),
			zap.String("end", end.Format(sourceDateLayout)),
			zap.Int("dates", len(dates)),
			zap.Int("chunk_size", o.chunkSize),
		)

		for i := 0; i < len(dates); i += o.chunkSize {
			if ctx.Err() != nil {
				report.Cancelled = true
				break
			}

			chunk := dates[i:min(i+o.chunkSize, len(dates))]
			log.Info("Processing chunk",
				zap.String("from", chunk[0].Format(sourceDateLayout)),
				zap.String("to", chunk[len(chunk)-1].Format(sourceDateLayout)),
			)

			for _, res := range o.runChunk(ctx, chunk) {
				report.Outcomes = append(report.Outcomes, res)
				o.record(&report.Stats, res)
				if res.State == StateDone {
					report.SittingIDs = append(report.SittingIDs, res.SittingID)
				}
			}

			if i+o.chunkSize < len(dates) {
				if err := o.sleep(ctx, o.chunkDelay); err != nil {
					report.Cancelled = true
					break
				}
			}
		}
	} else {
		sittings, err := o.sittings.ListInRange(ctx, opts.Start, end)
		if err != nil {
			return nil, err
		}
		for _, st := range sittings {
			report.SittingIDs = append(report.SittingIDs, st.ID)
		}
	}

	if report.Cancelled {
		log.Warn("Run cancelled", zap.Int("completed_dates", len(report.Outcomes)))
		return report, ctx.Err()
	}

	if o.summarizer != nil && opts.Summaries.Any() && len(report.SittingIDs) > 0 {
		log.Info("Generating summaries", zap.Int("sittings", len(report.SittingIDs)))
		stats, err := o.summarizer.Run(ctx, report.SittingIDs, opts.Summaries, opts.OnlyBlanks)
		report.Summaries = stats
		if err != nil {
			report.SummaryErr = err
			log.Error("Summary generation failed", zap.Error(err))
		}
	}

	return report, nil
}

// runChunk ingests every date of the chunk concurrently and gathers all
// outcomes in date order
func (o *Orchestrator) runChunk(ctx context.Context, chunk []time.Time) []SittingResult {
	results := make([]SittingResult, len(chunk))

	var wg sync.WaitGroup
	for idx, date := range chunk {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			results[idx] = o.ingestor.IngestDate(ctx, date)
			if o.metrics != nil {
				o.metrics.ObserveDate(results[idx], time.Since(start))
			}
		}()
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) record(stats *IngestStats, res SittingResult) {
	switch res.State {
	case StateDone:
		stats.Ingested++
		stats.Sections += res.Sections
		stats.Attendance += res.Attendance
		stats.Words += res.Words
	case StateSkipped:
		stats.Skipped++
	default:
		stats.Failed++
	}
}

// PrintSummary prints ingestion statistics. The ingest block is omitted for
// summary-only runs.
func (o *Orchestrator) PrintSummary(report *RunReport) {
	if stats := report.Stats; stats.Total > 0 {
		fmt.Fprintln(o.out, "")
		fmt.Fprintln(o.out, "=== Ingest Summary ===")
		fmt.Fprintf(o.out, "Run:             %s\n", report.RunID)
		fmt.Fprintf(o.out, "Total dates:     %d\n", stats.Total)
		fmt.Fprintf(o.out, "Ingested:        %d\n", stats.Ingested)
		fmt.Fprintf(o.out, "Skipped:         %d (no sitting)\n", stats.Skipped)
		fmt.Fprintf(o.out, "Failed:          %d\n", stats.Failed)
		fmt.Fprintf(o.out, "Sections:        %d\n", stats.Sections)
		fmt.Fprintf(o.out, "Attendance:      %d\n", stats.Attendance)
		fmt.Fprintf(o.out, "Words:           %d\n", stats.Words)

		for _, res := range report.Outcomes {
			if res.State == StateFailed {
				fmt.Fprintf(o.out, "  %s failed after %s: %v\n", res.Date.Format(sourceDateLayout), res.Reached, res.Err)
			}
		}
	}

	if s := report.Summaries; s != nil {
		fmt.Fprintln(o.out, "")
		fmt.Fprintln(o.out, "=== Summary Generation ===")
		fmt.Fprintf(o.out, "Sections:        %d\n", s.Sections)
		fmt.Fprintf(o.out, "Bills:           %d\n", s.Bills)
		fmt.Fprintf(o.out, "Sittings:        %d\n", s.Sittings)
		fmt.Fprintf(o.out, "Members:         %d\n", s.Members)
		fmt.Fprintf(o.out, "Empty responses: %d\n", s.Empty)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
