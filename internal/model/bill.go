package model

import (
	"database/sql"
	"time"
)

// Bill represents a piece of legislation tracked across sittings
type Bill struct {
	ID                    int64
	Title                 string
	MinistryID            sql.NullInt64
	FirstReadingDate      sql.NullTime
	FirstReadingSittingID sql.NullInt64
	Summary               sql.NullString
	CreatedAt             time.Time
}

// BillWithStats wraps a Bill with its linked section count
type BillWithStats struct {
	Bill
	Ministry     sql.NullString
	SectionCount int
}
