package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Summary pass thresholds
const (
	MaxSummaryInput        = 20000
	MinSectionSummaryInput = 750
	MinBillSummaryInput    = 500
	MemberActivityLimit    = 20
)

// Generator produces text for a prompt. An empty result means no summary
// could be generated; it is never an error.
type Generator interface {
	Generate(ctx context.Context, prompt string) string
}

// SummaryPasses selects which summaries to generate
type SummaryPasses struct {
	Sections bool
	Bills    bool
	Sittings bool
	Members  bool
}

// AllPasses selects every pass
func AllPasses() SummaryPasses {
	return SummaryPasses{Sections: true, Bills: true, Sittings: true, Members: true}
}

// Any reports whether at least one pass is selected
func (p SummaryPasses) Any() bool {
	return p.Sections || p.Bills || p.Sittings || p.Members
}

// ParsePasses reads a comma separated pass list such as "sections,bills"
func ParsePasses(s string) (SummaryPasses, error) {
	var p SummaryPasses
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "sections":
			p.Sections = true
		case "bills":
			p.Bills = true
		case "sittings":
			p.Sittings = true
		case "members":
			p.Members = true
		case "all":
			p = AllPasses()
		case "":
		default:
			return SummaryPasses{}, fmt.Errorf("unknown summary pass %q", name)
		}
	}
	return p, nil
}

// SummaryStats counts the summaries written by a run
type SummaryStats struct {
	Sections int
	Bills    int
	Sittings int
	Members  int
	Empty    int
}

// SummarizerConfig bounds generator calls
type SummarizerConfig struct {
	Concurrency int
	Cooldown    time.Duration
}

// Summarizer writes generated summaries for sections, bills, sittings and members
type Summarizer struct {
	general  Generator
	member   Generator
	sittings *store.SittingStore
	sections *store.SectionStore
	bills    *store.BillStore
	members  *store.MemberStore
	lineage  *Lineage
	sem      *semaphore.Weighted
	cooldown time.Duration
	logger   *zap.Logger
}

// NewSummarizer creates a Summarizer. member generates member summaries and
// may be the same as general.
func NewSummarizer(db *sql.DB, lineage *Lineage, general, member Generator, cfg SummarizerConfig, logger *zap.Logger) *Summarizer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 20
	}
	if member == nil {
		member = general
	}
	return &Summarizer{
		general:  general,
		member:   member,
		sittings: store.NewSittingStore(db),
		sections: store.NewSectionStore(db),
		bills:    store.NewBillStore(db),
		members:  store.NewMemberStore(db),
		lineage:  lineage,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		cooldown: cfg.Cooldown,
		logger:   logger.Named("summarizer"),
	}
}

var horizontalSpace = regexp.MustCompile(`[ \t\x{00a0}]+`)

// generate calls g under the shared permit and cooldown and normalizes the
// result's horizontal whitespace
func (s *Summarizer) generate(ctx context.Context, g Generator, prompt string) string {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return ""
	}
	defer s.sem.Release(1)

	out := g.Generate(ctx, prompt)
	if s.cooldown > 0 {
		_ = sleepContext(ctx, s.cooldown)
	}
	return horizontalSpace.ReplaceAllString(strings.TrimSpace(out), " ")
}

// truncate cuts text to at most n runes
func truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

// Run generates the selected summaries for the given sittings. Member
// summaries cover the members who spoke in them.
func (s *Summarizer) Run(ctx context.Context, sittingIDs []int64, passes SummaryPasses, onlyBlanks bool) (*SummaryStats, error) {
	var stats summaryCounters

	for _, id := range sittingIDs {
		if passes.Sections {
			if err := s.summarizeSections(ctx, id, onlyBlanks, &stats); err != nil {
				return stats.snapshot(), err
			}
		}
		if passes.Bills {
			if err := s.summarizeBills(ctx, id, onlyBlanks, &stats); err != nil {
				return stats.snapshot(), err
			}
		}
		if passes.Sittings {
			if err := s.summarizeSitting(ctx, id, onlyBlanks, &stats); err != nil {
				return stats.snapshot(), err
			}
		}
	}

	if passes.Members {
		if err := s.summarizeMembers(ctx, sittingIDs, onlyBlanks, &stats); err != nil {
			return stats.snapshot(), err
		}
	}

	result := stats.snapshot()
	s.logger.Info("Summaries generated",
		zap.Int("sections", result.Sections),
		zap.Int("bills", result.Bills),
		zap.Int("sittings", result.Sittings),
		zap.Int("members", result.Members),
		zap.Int("empty", result.Empty),
	)
	return result, nil
}

type summaryCounters struct {
	sections, bills, sittings, members, empty atomic.Int64
}

func (c *summaryCounters) snapshot() *SummaryStats {
	return &SummaryStats{
		Sections: int(c.sections.Load()),
		Bills:    int(c.bills.Load()),
		Sittings: int(c.sittings.Load()),
		Members:  int(c.members.Load()),
		Empty:    int(c.empty.Load()),
	}
}

func (s *Summarizer) summarizeSections(ctx context.Context, sittingID int64, onlyBlanks bool, stats *summaryCounters) error {
	sections, err := s.sections.ForSummary(ctx, sittingID, onlyBlanks)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, sec := range sections {
		if utf8.RuneCountInString(sec.ContentPlain) <= MinSectionSummaryInput {
			continue
		}
		g.Go(func() error {
			template := sectionPrompt
			if sec.Category == model.CategoryQuestion {
				template = questionPrompt
			}
			prompt := renderPrompt(template, map[string]string{
				"title": sec.Title,
				"text":  truncate(sec.ContentPlain, MaxSummaryInput),
			})

			summary := s.generate(gCtx, s.general, prompt)
			if summary == "" {
				stats.empty.Add(1)
				return nil
			}
			if err := s.sections.UpdateSummary(gCtx, sec.ID, summary); err != nil {
				return err
			}
			stats.sections.Add(1)
			return nil
		})
	}
	return g.Wait()
}

func (s *Summarizer) summarizeBills(ctx context.Context, sittingID int64, onlyBlanks bool, stats *summaryCounters) error {
	bills, err := s.bills.DebatedInSitting(ctx, sittingID, onlyBlanks)
	if err != nil {
		return err
	}

	for _, b := range bills {
		text, err := s.lineage.BillText(ctx, b.ID)
		if err != nil {
			return err
		}
		if utf8.RuneCountInString(text) < MinBillSummaryInput {
			continue
		}

		prompt := renderPrompt(billPrompt, map[string]string{
			"title": b.Title,
			"text":  truncate(text, MaxSummaryInput),
		})
		summary := s.generate(ctx, s.general, prompt)
		if summary == "" {
			stats.empty.Add(1)
			continue
		}
		if err := s.bills.UpdateSummary(ctx, b.ID, summary); err != nil {
			return err
		}
		stats.bills.Add(1)
		s.logger.Info("Generated bill summary", zap.String("bill", b.Title))
	}
	return nil
}

func (s *Summarizer) summarizeSitting(ctx context.Context, sittingID int64, onlyBlanks bool, stats *summaryCounters) error {
	sitting, err := s.sittings.GetByID(ctx, sittingID)
	if err != nil {
		return err
	}
	if sitting == nil || (onlyBlanks && sitting.Summary.Valid) {
		return nil
	}

	agenda, err := s.sections.ListForSitting(ctx, sittingID, "")
	if err != nil {
		return err
	}
	if len(agenda) == 0 {
		return nil
	}

	lines := make([]string, len(agenda))
	for i, sec := range agenda {
		tag := ""
		if sec.Ministry.Valid {
			tag = "[" + sec.Ministry.String + "] "
		}
		lines[i] = fmt.Sprintf("- %s%s (%s)", tag, sec.Title, sec.SectionType)
	}

	prompt := renderPrompt(sittingPrompt, map[string]string{"text": strings.Join(lines, "\n")})
	summary := s.generate(ctx, s.general, prompt)
	if summary == "" {
		stats.empty.Add(1)
		return nil
	}
	if err := s.sittings.UpdateSummary(ctx, sittingID, summary); err != nil {
		return err
	}
	stats.sittings.Add(1)
	return nil
}

func (s *Summarizer) summarizeMembers(ctx context.Context, sittingIDs []int64, onlyBlanks bool, stats *summaryCounters) error {
	members, err := s.members.SpeakersInSittings(ctx, sittingIDs, onlyBlanks)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, m := range members {
		g.Go(func() error {
			activity, err := s.members.SpeakerActivity(gCtx, m.ID, MemberActivityLimit)
			if err != nil {
				return err
			}
			if len(activity) == 0 {
				return nil
			}

			designation := "MP"
			if activity[0].Designation.Valid && activity[0].Designation.String != "" {
				designation = activity[0].Designation.String
			}

			lines := make([]string, len(activity))
			for i, a := range activity {
				tag := ""
				if a.Ministry.Valid {
					tag = "[" + a.Ministry.String + "] "
				}
				lines[i] = fmt.Sprintf("- %s: %s%s", a.SittingDate.Format(sourceDateLayout), tag, a.SectionTitle)
			}

			prompt := renderPrompt(memberPrompt, map[string]string{
				"name":               m.Name,
				"recent_designation": designation,
				"text":               strings.Join(lines, "\n"),
			})
			summary := s.generate(gCtx, s.member, prompt)
			if summary == "" {
				stats.empty.Add(1)
				return nil
			}
			if err := s.members.UpsertSummary(gCtx, m.ID, summary); err != nil {
				return err
			}
			stats.members.Add(1)
			return nil
		})
	}
	return g.Wait()
}
