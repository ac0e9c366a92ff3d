package model

import (
	"database/sql"
	"time"
)

// Sitting represents one parliamentary sitting day
type Sitting struct {
	ID         int64
	Date       time.Time
	SittingNo  sql.NullInt64
	Parliament sql.NullInt64
	SessionNo  sql.NullInt64
	VolumeNo   sql.NullInt64
	Format     sql.NullString
	URL        string
	Summary    sql.NullString
	CreatedAt  time.Time
}

// Attendance records one member's presence at a sitting
type Attendance struct {
	SittingID    int64
	MemberID     int64
	Present      bool
	Constituency sql.NullString
	Designation  sql.NullString
}

// AttendanceRow is an attendance record joined with the member name
type AttendanceRow struct {
	Attendance
	MemberName string
}
