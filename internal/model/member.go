package model

import (
	"database/sql"
	"time"
)

// Member represents a parliamentarian, identified by name
type Member struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Ministry is an entry of the fixed ministry reference set
type Ministry struct {
	ID      int64
	Acronym string
	Name    string
}

// SectionSpeaker links a member to a section they spoke in
type SectionSpeaker struct {
	SectionID    int64
	MemberID     int64
	Constituency sql.NullString
	Designation  sql.NullString
}

// SpeakerActivity is one speaking record used for member summaries
type SpeakerActivity struct {
	SittingDate  time.Time
	SectionTitle string
	SectionType  string
	Ministry     sql.NullString
	Designation  sql.NullString
}

// MinistryWithStats wraps a Ministry with its attributed section and bill counts
type MinistryWithStats struct {
	Ministry
	SectionCount int
	BillCount    int
}
