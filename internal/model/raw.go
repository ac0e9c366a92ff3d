package model

import "time"

// RawSitting is one sitting as returned by the record source
type RawSitting struct {
	Meta     SittingMeta
	Sections []RawSection
	Present  []RawMember
	Absent   []RawMember
}

// SittingMeta holds the sitting-level metadata. Zero numbers mean unknown.
type SittingMeta struct {
	Date       time.Time
	SittingNo  int
	Parliament int
	SessionNo  int
	VolumeNo   int
	Format     string
}

// RawSection is one agenda item as returned by the record source
type RawSection struct {
	Category     string
	SectionType  string
	Title        string
	ContentHTML  string
	ContentPlain string
	Order        int
	SourceURL    string
	Speakers     []RawMember
}

// RawMember is a member reference in an attendance or speaker list
type RawMember struct {
	Name         string
	Constituency string
	Appointment  string
}
