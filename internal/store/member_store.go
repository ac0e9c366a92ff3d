package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/parliament/internal/model"
)

// MemberStore handles database operations for members and their summaries
type MemberStore struct {
	db *sql.DB
}

// NewMemberStore creates a new MemberStore
func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

// FindByName returns the id of the member with exactly this name
func (s *MemberStore) FindByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM members WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get member %q: %w", name, err)
	}
	return id, true, nil
}

// InsertIfAbsent inserts a member. It reports false without error when another
// writer created the same name first.
func (s *MemberStore) InsertIfAbsent(ctx context.Context, name string) (int64, bool, error) {
	query := `
		INSERT INTO members (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert member %q: %w", name, err)
	}
	return id, true, nil
}

// SpeakersInSittings retrieves the members who spoke in any of the given
// sittings. With onlyBlanks, members that already have a summary are omitted.
func (s *MemberStore) SpeakersInSittings(ctx context.Context, sittingIDs []int64, onlyBlanks bool) ([]model.Member, error) {
	if len(sittingIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT m.id, m.name, m.created_at
		FROM members m
		JOIN section_speakers sp ON sp.member_id = m.id
		JOIN sections sec ON sec.id = sp.section_id
		LEFT JOIN member_summaries ms ON ms.member_id = m.id
		WHERE sec.sitting_id IN (` + placeholders(1, len(sittingIDs)) + `)
	`
	if onlyBlanks {
		query += ` AND ms.summary IS NULL`
	}
	query += ` ORDER BY m.name`

	args := make([]any, len(sittingIDs))
	for i, id := range sittingIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get speakers: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// SpeakerActivity retrieves a member's most recent speaking records, newest first
func (s *MemberStore) SpeakerActivity(ctx context.Context, memberID int64, limit int) ([]model.SpeakerActivity, error) {
	query := `
		SELECT st.date, sec.section_title, sec.section_type, mi.acronym, sp.designation
		FROM section_speakers sp
		JOIN sections sec ON sec.id = sp.section_id
		JOIN sittings st ON st.id = sec.sitting_id
		LEFT JOIN ministries mi ON mi.id = sec.ministry_id
		WHERE sp.member_id = $1
		ORDER BY st.date DESC, sec.section_order
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity for member %d: %w", memberID, err)
	}
	defer rows.Close()

	var activity []model.SpeakerActivity
	for rows.Next() {
		var a model.SpeakerActivity
		if err := rows.Scan(&a.SittingDate, &a.SectionTitle, &a.SectionType, &a.Ministry, &a.Designation); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activity = append(activity, a)
	}

	return activity, rows.Err()
}

// UpsertSummary stores a member's focus summary
func (s *MemberStore) UpsertSummary(ctx context.Context, memberID int64, summary string) error {
	query := `
		INSERT INTO member_summaries (member_id, summary, last_updated)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (member_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			last_updated = EXCLUDED.last_updated
	`

	if _, err := s.db.ExecContext(ctx, query, memberID, summary); err != nil {
		return fmt.Errorf("failed to upsert summary for member %d: %w", memberID, err)
	}
	return nil
}

// Summary returns a member's focus summary, or "" when none exists
func (s *MemberStore) Summary(ctx context.Context, memberID int64) (string, error) {
	var summary sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM member_summaries WHERE member_id = $1`, memberID).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get summary for member %d: %w", memberID, err)
	}
	return summary.String, nil
}
