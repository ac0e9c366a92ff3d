package model

import (
	"database/sql"
	"time"
)

// Section types that carry bill lineage
const (
	SectionTypeFirstReading  = "BI"
	SectionTypeSecondReading = "BP"
)

// Section categories with special handling
const (
	CategoryAdjournmentMotion = "adjournment_motion"
	CategoryMotion            = "motion"
	CategoryQuestion          = "question"
	CategoryBill              = "bill"
	CategoryOther             = "other"
)

// Section represents one debate item within a sitting
type Section struct {
	ID           int64
	SittingID    int64
	MinistryID   sql.NullInt64
	BillID       sql.NullInt64
	Category     string
	SectionType  string
	Title        string
	ContentHTML  string
	ContentPlain string
	Order        int
	SourceURL    sql.NullString
	Summary      sql.NullString
	CreatedAt    time.Time
}

// SectionListing is a section joined with its ministry acronym and sitting date,
// without the content columns
type SectionListing struct {
	ID          int64
	SittingID   int64
	SittingDate time.Time
	BillID      sql.NullInt64
	Ministry    sql.NullString
	Category    string
	SectionType string
	Title       string
	Order       int
	Summary     sql.NullString
}

// IsBillType reports whether the section type participates in bill lineage
func IsBillType(sectionType string) bool {
	return sectionType == SectionTypeFirstReading || sectionType == SectionTypeSecondReading
}
