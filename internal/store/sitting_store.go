package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/parliament/internal/model"
)

// SittingWithCounts wraps a Sitting with its section and attendance counts
type SittingWithCounts struct {
	model.Sitting
	SectionCount int
	PresentCount int
}

// SittingStore handles database operations for sittings and attendance
type SittingStore struct {
	db *sql.DB
}

// NewSittingStore creates a new SittingStore
func NewSittingStore(db *sql.DB) *SittingStore {
	return &SittingStore{db: db}
}

const sittingColumns = `id, date, sitting_no, parliament, session_no, volume_no, format, url, summary, created_at`

func scanSitting(row interface{ Scan(...any) error }, st *model.Sitting) error {
	return row.Scan(
		&st.ID,
		&st.Date,
		&st.SittingNo,
		&st.Parliament,
		&st.SessionNo,
		&st.VolumeNo,
		&st.Format,
		&st.URL,
		&st.Summary,
		&st.CreatedAt,
	)
}

// UpsertSitting inserts a sitting or overwrites the metadata of the sitting on
// the same date. The summary is left untouched.
func (s *SittingStore) UpsertSitting(ctx context.Context, st *model.Sitting) error {
	query := `
		INSERT INTO sittings (date, sitting_no, parliament, session_no, volume_no, format, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			sitting_no = EXCLUDED.sitting_no,
			parliament = EXCLUDED.parliament,
			session_no = EXCLUDED.session_no,
			volume_no = EXCLUDED.volume_no,
			format = EXCLUDED.format,
			url = EXCLUDED.url
		RETURNING id
	`

	st.Date = dateOnly(st.Date)
	err := s.db.QueryRowContext(ctx, query,
		st.Date,
		st.SittingNo,
		st.Parliament,
		st.SessionNo,
		st.VolumeNo,
		st.Format,
		st.URL,
	).Scan(&st.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert sitting %s: %w", st.Date.Format("2006-01-02"), err)
	}

	return nil
}

// GetByDate retrieves the sitting held on date, or nil if none exists
func (s *SittingStore) GetByDate(ctx context.Context, date time.Time) (*model.Sitting, error) {
	query := `SELECT ` + sittingColumns + ` FROM sittings WHERE date = $1`

	var st model.Sitting
	err := scanSitting(s.db.QueryRowContext(ctx, query, dateOnly(date)), &st)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sitting %s: %w", date.Format("2006-01-02"), err)
	}

	return &st, nil
}

// GetByID retrieves a sitting by id, or nil if none exists
func (s *SittingStore) GetByID(ctx context.Context, id int64) (*model.Sitting, error) {
	query := `SELECT ` + sittingColumns + ` FROM sittings WHERE id = $1`

	var st model.Sitting
	err := scanSitting(s.db.QueryRowContext(ctx, query, id), &st)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sitting %d: %w", id, err)
	}

	return &st, nil
}

// ListInRange retrieves the sittings between start and end inclusive, oldest first
func (s *SittingStore) ListInRange(ctx context.Context, start, end time.Time) ([]model.Sitting, error) {
	query := `
		SELECT ` + sittingColumns + `
		FROM sittings
		WHERE date >= $1 AND date <= $2
		ORDER BY date
	`

	rows, err := s.db.QueryContext(ctx, query, dateOnly(start), dateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("failed to get sittings in range: %w", err)
	}
	defer rows.Close()

	var sittings []model.Sitting
	for rows.Next() {
		var st model.Sitting
		if err := scanSitting(rows, &st); err != nil {
			return nil, fmt.Errorf("failed to scan sitting: %w", err)
		}
		sittings = append(sittings, st)
	}

	return sittings, rows.Err()
}

// ListRecent retrieves the most recent sittings with their counts, newest first
func (s *SittingStore) ListRecent(ctx context.Context, limit int) ([]SittingWithCounts, error) {
	query := `
		SELECT s.id, s.date, s.sitting_no, s.parliament, s.session_no, s.volume_no,
		       s.format, s.url, s.summary, s.created_at,
		       (SELECT COUNT(*) FROM sections sec WHERE sec.sitting_id = s.id),
		       (SELECT COUNT(*) FROM sitting_attendance a WHERE a.sitting_id = s.id AND a.present)
		FROM sittings s
		ORDER BY s.date DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sittings: %w", err)
	}
	defer rows.Close()

	var sittings []SittingWithCounts
	for rows.Next() {
		var st SittingWithCounts
		err := rows.Scan(
			&st.ID,
			&st.Date,
			&st.SittingNo,
			&st.Parliament,
			&st.SessionNo,
			&st.VolumeNo,
			&st.Format,
			&st.URL,
			&st.Summary,
			&st.CreatedAt,
			&st.SectionCount,
			&st.PresentCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sitting: %w", err)
		}
		sittings = append(sittings, st)
	}

	return sittings, rows.Err()
}

// UpdateSummary stores the executive summary of a sitting
func (s *SittingStore) UpdateSummary(ctx context.Context, id int64, summary string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sittings SET summary = $1 WHERE id = $2`, summary, id)
	if err != nil {
		return fmt.Errorf("failed to update summary for sitting %d: %w", id, err)
	}
	return nil
}

// UpsertAttendance records a member's presence. A later write for the same
// sitting and member replaces the earlier one.
func (s *SittingStore) UpsertAttendance(ctx context.Context, a model.Attendance) error {
	query := `
		INSERT INTO sitting_attendance (sitting_id, member_id, present, constituency, designation)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sitting_id, member_id) DO UPDATE SET
			present = EXCLUDED.present,
			constituency = EXCLUDED.constituency,
			designation = EXCLUDED.designation
	`

	_, err := s.db.ExecContext(ctx, query, a.SittingID, a.MemberID, a.Present, a.Constituency, a.Designation)
	if err != nil {
		return fmt.Errorf("failed to upsert attendance for member %d: %w", a.MemberID, err)
	}
	return nil
}

// Attendance retrieves the attendance of a sitting ordered by member name
func (s *SittingStore) Attendance(ctx context.Context, sittingID int64) ([]model.AttendanceRow, error) {
	query := `
		SELECT a.sitting_id, a.member_id, a.present, a.constituency, a.designation, m.name
		FROM sitting_attendance a
		JOIN members m ON m.id = a.member_id
		WHERE a.sitting_id = $1
		ORDER BY m.name
	`

	rows, err := s.db.QueryContext(ctx, query, sittingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance for sitting %d: %w", sittingID, err)
	}
	defer rows.Close()

	var attendance []model.AttendanceRow
	for rows.Next() {
		var a model.AttendanceRow
		err := rows.Scan(&a.SittingID, &a.MemberID, &a.Present, &a.Constituency, &a.Designation, &a.MemberName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		attendance = append(attendance, a)
	}

	return attendance, rows.Err()
}
