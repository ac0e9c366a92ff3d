package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/store"
)

// Lineage links the first-reading and later sections of a bill across sittings
type Lineage struct {
	resolver *Resolver
	bills    *store.BillStore
	sections *store.SectionStore
}

// NewLineage creates a Lineage that resolves bills through resolver
func NewLineage(db *sql.DB, resolver *Resolver) *Lineage {
	return &Lineage{
		resolver: resolver,
		bills:    store.NewBillStore(db),
		sections: store.NewSectionStore(db),
	}
}

// Track returns the bill a section belongs to. A first reading records the
// sitting as the bill's first reading; a second reading resolves the bill
// without first-reading facts. Other section types have no bill.
func (l *Lineage) Track(ctx context.Context, sectionType, title string, ministryID sql.NullInt64, sitting *model.Sitting) (sql.NullInt64, error) {
	ref := BillRef{Title: title, MinistryID: ministryID}

	switch sectionType {
	case model.SectionTypeFirstReading:
		ref.FirstReadingDate = sitting.Date
		ref.FirstReadingSittingID = sitting.ID
	case model.SectionTypeSecondReading:
	default:
		return sql.NullInt64{}, nil
	}

	id, err := l.resolver.ResolveBill(ctx, ref)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

// BillText joins the plain content of every section of a bill, oldest sitting first
func (l *Lineage) BillText(ctx context.Context, billID int64) (string, error) {
	texts, err := l.bills.SectionTexts(ctx, billID)
	if err != nil {
		return "", fmt.Errorf("failed to collect text for bill %d: %w", billID, err)
	}
	return strings.Join(texts, "\n\n"), nil
}

// BillSections lists a bill's sections across sittings, oldest first
func (l *Lineage) BillSections(ctx context.Context, billID int64) ([]model.SectionListing, error) {
	return l.sections.ListForBill(ctx, billID)
}
