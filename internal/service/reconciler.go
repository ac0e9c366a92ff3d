package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/jjenkins/parliament/internal/store"
	"go.uber.org/zap"
)

// SectionDedupOptions selects the sittings and survivor rule of a dedup pass
type SectionDedupOptions struct {
	Start      time.Time
	End        time.Time
	KeepNewest bool
	DryRun     bool
}

// SectionDedupReport is the outcome of a dedup pass
type SectionDedupReport struct {
	SittingsScanned int
	Duplicates      []store.DuplicateSection
	Deleted         int64
	DryRun          bool
}

// BillMergeOptions controls a bill merge pass
type BillMergeOptions struct {
	DryRun bool
}

// BillMergeGroup is one set of bills whose titles differ only by case or
// surrounding whitespace
type BillMergeGroup struct {
	Key           string
	Master        store.BillCandidate
	Duplicates    []store.BillCandidate
	SectionsMoved int64
}

// BillMergeReport is the outcome of a bill merge pass
type BillMergeReport struct {
	Groups     []BillMergeGroup
	Merged     int
	DeletedIDs []int64
	DryRun     bool
}

// Reconciler repairs duplicate sections and bills left behind by ingestion
type Reconciler struct {
	store  *store.ReconcileStore
	logger *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(db *sql.DB, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:  store.NewReconcileStore(db),
		logger: logger.Named("reconciler"),
	}
}

// InspectSections lists the sections a dedup pass over the range would delete
func (r *Reconciler) InspectSections(ctx context.Context, start, end time.Time, keepNewest bool) ([]store.DuplicateSection, error) {
	return r.store.DuplicateSections(ctx, start, end, keepNewest)
}

// DedupSections keeps one section per (sitting, title, type) in the range and
// deletes the rest in one transaction. The survivor is the earliest created
// row, or the latest with KeepNewest, ties broken by lowest id.
func (r *Reconciler) DedupSections(ctx context.Context, opts SectionDedupOptions) (*SectionDedupReport, error) {
	end := opts.End
	if end.IsZero() {
		end = opts.Start
	}
	if end.Before(opts.Start) {
		return nil, fmt.Errorf("end date is before start date")
	}

	report := &SectionDedupReport{DryRun: opts.DryRun}

	scanned, err := r.store.CountSittings(ctx, opts.Start, end)
	if err != nil {
		return nil, err
	}
	report.SittingsScanned = scanned

	dups, err := r.store.DuplicateSections(ctx, opts.Start, end, opts.KeepNewest)
	if err != nil {
		return nil, err
	}
	report.Duplicates = dups

	r.logger.Info("Found duplicate sections",
		zap.Int("sittings", scanned),
		zap.Int("duplicates", len(dups)),
		zap.Bool("keep_newest", opts.KeepNewest),
	)
	for _, d := range dups {
		r.logger.Debug("Duplicate section",
			zap.Int64("id", d.ID),
			zap.String("date", d.SittingDate.Format(sourceDateLayout)),
			zap.String("title", d.Title),
			zap.String("type", d.SectionType),
		)
	}

	if opts.DryRun || len(dups) == 0 {
		return report, nil
	}

	deleted, err := r.store.DeleteDuplicateSections(ctx, opts.Start, end, opts.KeepNewest)
	if err != nil {
		return nil, err
	}
	report.Deleted = deleted
	r.logger.Info("Deleted duplicate sections", zap.Int64("deleted", deleted))

	return report, nil
}

// InspectBills groups bills whose titles collide after normalization and
// picks each group's master, without writing anything
func (r *Reconciler) InspectBills(ctx context.Context) ([]BillMergeGroup, error) {
	candidates, err := r.store.BillCandidates(ctx)
	if err != nil {
		return nil, err
	}

	var groups []BillMergeGroup
	for i := 0; i < len(candidates); {
		j := i
		for j < len(candidates) && candidates[j].Key == candidates[i].Key {
			j++
		}
		if j-i > 1 {
			groups = append(groups, planGroup(candidates[i:j]))
		}
		i = j
	}
	return groups, nil
}

// planGroup orders a group by section count desc, created_at asc, id asc.
// The first is the master.
func planGroup(members []store.BillCandidate) BillMergeGroup {
	ordered := append([]store.BillCandidate(nil), members...)
	sort.SliceStable(ordered, func(a, b int) bool {
		x, y := ordered[a], ordered[b]
		if x.SectionCount != y.SectionCount {
			return x.SectionCount > y.SectionCount
		}
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.Before(y.CreatedAt)
		}
		return x.ID < y.ID
	})
	return BillMergeGroup{Key: ordered[0].Key, Master: ordered[0], Duplicates: ordered[1:]}
}

// mergeInto fills the master's unset facts from the duplicates in order.
// Facts the master already has are never replaced.
func mergeInto(g BillMergeGroup) store.BillCandidate {
	master := g.Master
	for _, d := range g.Duplicates {
		if !master.MinistryID.Valid && d.MinistryID.Valid {
			master.MinistryID = d.MinistryID
		}
		if !master.FirstReadingDate.Valid && d.FirstReadingDate.Valid {
			master.FirstReadingDate = d.FirstReadingDate
			master.FirstReadingSittingID = d.FirstReadingSittingID
		}
		if !master.Summary.Valid && d.Summary.Valid {
			master.Summary = d.Summary
		}
	}
	return master
}

// MergeBills collapses every group of colliding bills into its master. Each
// group commits on its own; a failure leaves that group untouched.
func (r *Reconciler) MergeBills(ctx context.Context, opts BillMergeOptions) (*BillMergeReport, error) {
	groups, err := r.InspectBills(ctx)
	if err != nil {
		return nil, err
	}

	report := &BillMergeReport{DryRun: opts.DryRun}
	r.logger.Info("Found duplicate bill groups", zap.Int("groups", len(groups)))

	for _, g := range groups {
		ids := make([]int64, len(g.Duplicates))
		for i, d := range g.Duplicates {
			ids[i] = d.ID
		}

		r.logger.Info("Merging bills",
			zap.String("title", g.Master.Title),
			zap.Int64("master", g.Master.ID),
			zap.Int64s("duplicates", ids),
		)

		if !opts.DryRun {
			master := mergeInto(g)
			moved, err := r.store.MergeBills(ctx, master.Bill, ids)
			if err != nil {
				return report, fmt.Errorf("failed to merge bills into %d: %w", g.Master.ID, err)
			}
			g.Master = master
			g.SectionsMoved = moved
			report.Merged++
			report.DeletedIDs = append(report.DeletedIDs, ids...)
		}

		report.Groups = append(report.Groups, g)
	}

	return report, nil
}
