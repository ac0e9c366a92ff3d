package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store"
)

// BillRef identifies a bill by title plus the facts known about it at the
// point of reference. Zero first-reading fields mean unknown.
type BillRef struct {
	Title                 string
	MinistryID            sql.NullInt64
	FirstReadingDate      time.Time
	FirstReadingSittingID int64
}

// Resolver maps member names, ministry acronyms and bill titles to stable
// row ids, creating members and bills on first sight
type Resolver struct {
	members    *store.MemberStore
	ministries *store.MinistryStore
	bills      *store.BillStore
	sittings   *store.SittingStore
	sections   *store.SectionStore
	pool       *WritePool

	mu         sync.Mutex
	ministryID map[string]sql.NullInt64
}

// NewResolver creates a Resolver whose writes are bounded by pool
func NewResolver(db *sql.DB, pool *WritePool) *Resolver {
	return &Resolver{
		members:    store.NewMemberStore(db),
		ministries: store.NewMinistryStore(db),
		bills:      store.NewBillStore(db),
		sittings:   store.NewSittingStore(db),
		sections:   store.NewSectionStore(db),
		pool:       pool,
		ministryID: make(map[string]sql.NullInt64),
	}
}

// ResolveMember returns the id of the member with exactly this name,
// creating the member if needed. Concurrent callers with the same name
// observe the same id.
func (r *Resolver) ResolveMember(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.Do(ctx, func(ctx context.Context) error {
		found, ok, err := r.members.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if ok {
			id = found
			return nil
		}

		created, ok, err := r.members.InsertIfAbsent(ctx, name)
		if err != nil {
			return err
		}
		if ok {
			id = created
			return nil
		}

		// lost the race to another writer
		found, ok, err = r.members.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("member %q vanished after insert conflict", name)
		}
		id = found
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve member %q: %w", name, err)
	}
	return id, nil
}

// ResolveMinistry looks up a ministry acronym. Empty or unknown acronyms
// yield an invalid id, never an error.
func (r *Resolver) ResolveMinistry(ctx context.Context, acronym string) (sql.NullInt64, error) {
	if acronym == "" {
		return sql.NullInt64{}, nil
	}

	r.mu.Lock()
	cached, ok := r.ministryID[acronym]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	id, found, err := r.ministries.FindByAcronym(ctx, acronym)
	if err != nil {
		return sql.NullInt64{}, err
	}

	result := sql.NullInt64{Int64: id, Valid: found}
	r.mu.Lock()
	r.ministryID[acronym] = result
	r.mu.Unlock()
	return result, nil
}

// ResolveBill returns the id of the bill with exactly ref.Title. An existing
// bill only gains facts it lacks: a ministry when it has none, and the
// first-reading date and sitting together when the date is unset.
func (r *Resolver) ResolveBill(ctx context.Context, ref BillRef) (int64, error) {
	var id int64
	err := r.pool.Do(ctx, func(ctx context.Context) error {
		b, err := r.bills.FindByTitle(ctx, ref.Title)
		if err != nil {
			return err
		}

		if b == nil {
			nb := &model.Bill{Title: ref.Title, MinistryID: ref.MinistryID}
			if !ref.FirstReadingDate.IsZero() {
				nb.FirstReadingDate = sql.NullTime{Time: ref.FirstReadingDate, Valid: true}
				nb.FirstReadingSittingID = sql.NullInt64{Int64: ref.FirstReadingSittingID, Valid: ref.FirstReadingSittingID != 0}
			}
			created, err := r.bills.InsertIfAbsent(ctx, nb)
			if err != nil {
				return err
			}
			if created {
				id = nb.ID
				return nil
			}

			b, err = r.bills.FindByTitle(ctx, ref.Title)
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("bill vanished after insert conflict")
			}
		}

		id = b.ID
		return r.backfillBill(ctx, b, ref)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve bill %q: %w", ref.Title, err)
	}
	return id, nil
}

func (r *Resolver) backfillBill(ctx context.Context, b *model.Bill, ref BillRef) error {
	if ref.MinistryID.Valid && !b.MinistryID.Valid {
		if _, err := r.bills.BackfillMinistry(ctx, b.ID, ref.MinistryID.Int64); err != nil {
			return err
		}
	}
	if !ref.FirstReadingDate.IsZero() && !b.FirstReadingDate.Valid {
		if _, err := r.bills.BackfillFirstReading(ctx, b.ID, ref.FirstReadingDate, ref.FirstReadingSittingID); err != nil {
			return err
		}
	}
	return nil
}

// LinkSpeaker records that a member spoke in a section. The first link for a
// (section, member) pair is kept.
func (r *Resolver) LinkSpeaker(ctx context.Context, sectionID, memberID int64, constituency, designation string) error {
	return r.pool.Do(ctx, func(ctx context.Context) error {
		return r.sections.LinkSpeaker(ctx, model.SectionSpeaker{
			SectionID:    sectionID,
			MemberID:     memberID,
			Constituency: nullString(constituency),
			Designation:  nullString(designation),
		})
	})
}

// UpsertAttendance records a member's presence at a sitting. The latest
// write for a (sitting, member) pair is kept.
func (r *Resolver) UpsertAttendance(ctx context.Context, sittingID, memberID int64, present bool, constituency, designation string) error {
	return r.pool.Do(ctx, func(ctx context.Context) error {
		return r.sittings.UpsertAttendance(ctx, model.Attendance{
			SittingID:    sittingID,
			MemberID:     memberID,
			Present:      present,
			Constituency: nullString(constituency),
			Designation:  nullString(designation),
		})
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
