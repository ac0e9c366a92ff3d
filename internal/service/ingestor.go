package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jjenkins/parliament/internal/ministry"
	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SittingState is the progress of one date through ingestion
type SittingState int

const (
	StatePending SittingState = iota
	StateFetched
	StateSittingUpserted
	StateAttendanceWritten
	StateSectionsWritten
	StateDone
	StateSkipped
	StateFailed
)

func (s SittingState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetched:
		return "fetched"
	case StateSittingUpserted:
		return "sitting_upserted"
	case StateAttendanceWritten:
		return "attendance_written"
	case StateSectionsWritten:
		return "sections_written"
	case StateDone:
		return "done"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// sectionBatchSize bounds how many sections of one sitting are written at once
const sectionBatchSize = 20

// Sentinel reasons for a skipped date
var (
	ErrNoSitting  = errors.New("no sitting on date")
	ErrNoSections = errors.New("sitting has no sections")
)

// SittingResult is the outcome of ingesting one date. Reached is the last
// state completed before the outcome, so a failure shows where it stopped.
type SittingResult struct {
	Date       time.Time
	SittingID  int64
	State      SittingState
	Reached    SittingState
	Sections   int
	Attendance int
	Words      int
	Err        error
}

// Ingestor turns one date's raw record into stored entities
type Ingestor struct {
	source     SittingSource
	resolver   *Resolver
	lineage    *Lineage
	attributor *ministry.Attributor
	parser     *ContentParser
	sittings   *store.SittingStore
	sections   *store.SectionStore
	pool       *WritePool
	reportURL  string
	logger     *zap.Logger
}

// NewIngestor creates an Ingestor. Writes share pool with the resolver.
func NewIngestor(db *sql.DB, source SittingSource, resolver *Resolver, attributor *ministry.Attributor,
	pool *WritePool, reportURLTemplate string, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		source:     source,
		resolver:   resolver,
		lineage:    NewLineage(db, resolver),
		attributor: attributor,
		parser:     NewContentParser(),
		sittings:   store.NewSittingStore(db),
		sections:   store.NewSectionStore(db),
		pool:       pool,
		reportURL:  reportURLTemplate,
		logger:     logger.Named("ingestor"),
	}
}

// IngestDate fetches and stores the sitting held on date. Re-ingesting a date
// updates rows in place and creates no duplicates.
func (in *Ingestor) IngestDate(ctx context.Context, date time.Time) SittingResult {
	res := SittingResult{Date: date, State: StatePending}
	log := in.logger.With(zap.String("date", date.Format(sourceDateLayout)))

	fail := func(err error) SittingResult {
		res.Reached = res.State
		res.State = StateFailed
		res.Err = err
		log.Error("Failed to ingest sitting", zap.String("reached", res.Reached.String()), zap.Error(err))
		return res
	}

	raw, err := in.source.FetchSittingByDate(ctx, date)
	if err != nil {
		return fail(err)
	}
	if raw == nil {
		res.State, res.Err = StateSkipped, ErrNoSitting
		log.Info("No data found")
		return res
	}
	if len(raw.Sections) == 0 {
		res.State, res.Err = StateSkipped, ErrNoSections
		log.Info("No sections found")
		return res
	}
	res.State = StateFetched

	sitting := &model.Sitting{
		Date:       date,
		SittingNo:  nullInt(raw.Meta.SittingNo),
		Parliament: nullInt(raw.Meta.Parliament),
		SessionNo:  nullInt(raw.Meta.SessionNo),
		VolumeNo:   nullInt(raw.Meta.VolumeNo),
		Format:     nullString(raw.Meta.Format),
		URL:        ReportURL(in.reportURL, date),
	}
	err = in.pool.Do(ctx, func(ctx context.Context) error {
		return in.sittings.UpsertSitting(ctx, sitting)
	})
	if err != nil {
		return fail(err)
	}
	res.SittingID = sitting.ID
	res.State = StateSittingUpserted
	log.Info("Sitting upserted", zap.Int64("sitting_id", sitting.ID))

	attendance, err := in.writeAttendance(ctx, sitting.ID, raw)
	if err != nil {
		return fail(err)
	}
	res.Attendance = attendance
	res.State = StateAttendanceWritten

	sections, words, err := in.writeSections(ctx, sitting, raw.Sections)
	if err != nil {
		return fail(err)
	}
	res.Sections = sections
	res.Words = words
	res.State = StateSectionsWritten

	res.Reached = StateSectionsWritten
	res.State = StateDone
	log.Info("Sitting ingested",
		zap.Int("attendance", res.Attendance),
		zap.Int("sections", res.Sections),
		zap.Int("words", res.Words),
	)
	return res
}

func (in *Ingestor) writeAttendance(ctx context.Context, sittingID int64, raw *model.RawSitting) (int, error) {
	var written atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)

	record := func(m model.RawMember, present bool) {
		g.Go(func() error {
			memberID, err := in.resolver.ResolveMember(gCtx, m.Name)
			if err != nil {
				return err
			}
			if err := in.resolver.UpsertAttendance(gCtx, sittingID, memberID, present, m.Constituency, m.Appointment); err != nil {
				return err
			}
			written.Add(1)
			return nil
		})
	}

	for _, m := range raw.Present {
		record(m, true)
	}
	for _, m := range raw.Absent {
		record(m, false)
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to write attendance: %w", err)
	}
	return int(written.Load()), nil
}

// writeSections stores a sitting's sections, at most sectionBatchSize at a
// time, and returns the section and word counts
func (in *Ingestor) writeSections(ctx context.Context, sitting *model.Sitting, raws []model.RawSection) (int, int, error) {
	var words atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(sectionBatchSize)
	for _, raw := range raws {
		g.Go(func() error {
			n, err := in.writeSection(gCtx, sitting, raw)
			words.Add(int64(n))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, fmt.Errorf("failed to write sections: %w", err)
	}
	return len(raws), int(words.Load()), nil
}

// writeSection runs attribution, ministry lookup, bill lineage, the section
// upsert and speaker links in that order. It returns the word count of the
// section's plain text.
func (in *Ingestor) writeSection(ctx context.Context, sitting *model.Sitting, raw model.RawSection) (int, error) {
	if raw.ContentPlain == "" {
		raw.ContentPlain = in.parser.PlainText(raw.ContentHTML)
	}
	if raw.Category == "" {
		raw.Category = model.CategoryOther
	}

	designations := make([]string, 0, len(raw.Speakers))
	for _, sp := range raw.Speakers {
		designations = append(designations, sp.Appointment)
	}

	acronym := in.attributor.Attribute(ministry.Input{
		Category:            raw.Category,
		Title:               raw.Title,
		Content:             raw.ContentPlain,
		SpeakerDesignations: designations,
	})

	ministryID, err := in.resolver.ResolveMinistry(ctx, acronym)
	if err != nil {
		return 0, err
	}

	billID, err := in.lineage.Track(ctx, raw.SectionType, raw.Title, ministryID, sitting)
	if err != nil {
		return 0, err
	}

	sec := &model.Section{
		SittingID:    sitting.ID,
		MinistryID:   ministryID,
		BillID:       billID,
		Category:     raw.Category,
		SectionType:  raw.SectionType,
		Title:        raw.Title,
		ContentHTML:  raw.ContentHTML,
		ContentPlain: raw.ContentPlain,
		Order:        raw.Order,
		SourceURL:    nullString(raw.SourceURL),
	}
	err = in.pool.Do(ctx, func(ctx context.Context) error {
		id, ok, err := in.sections.FindID(ctx, sitting.ID, raw.Title, raw.SectionType)
		if err != nil {
			return err
		}
		if ok {
			sec.ID = id
			return in.sections.Update(ctx, sec)
		}
		return in.sections.Insert(ctx, sec)
	})
	if err != nil {
		return 0, err
	}

	for _, sp := range raw.Speakers {
		memberID, err := in.resolver.ResolveMember(ctx, sp.Name)
		if err != nil {
			return 0, err
		}
		if err := in.resolver.LinkSpeaker(ctx, sec.ID, memberID, sp.Constituency, sp.Appointment); err != nil {
			return 0, err
		}
	}
	return in.parser.WordCount(raw.ContentPlain), nil
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
