package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/parliament/internal/model"
)

// SpeakerRow is a speaker link joined with the member name
type SpeakerRow struct {
	model.SectionSpeaker
	MemberName string
}

// SectionStore handles database operations for sections and speaker links
type SectionStore struct {
	db *sql.DB
}

// NewSectionStore creates a new SectionStore
func NewSectionStore(db *sql.DB) *SectionStore {
	return &SectionStore{db: db}
}

// FindID returns the id of the section with this identity within a sitting.
// When duplicates exist the oldest row wins.
func (s *SectionStore) FindID(ctx context.Context, sittingID int64, title, sectionType string) (int64, bool, error) {
	query := `
		SELECT id FROM sections
		WHERE sitting_id = $1 AND section_title = $2 AND section_type = $3
		ORDER BY id
		LIMIT 1
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query, sittingID, title, sectionType).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find section %q: %w", title, err)
	}
	return id, true, nil
}

// Insert creates a section and sets sec.ID
func (s *SectionStore) Insert(ctx context.Context, sec *model.Section) error {
	query := `
		INSERT INTO sections (sitting_id, ministry_id, bill_id, category, section_type,
		                      section_title, content_html, content_plain, section_order, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		sec.SittingID,
		sec.MinistryID,
		sec.BillID,
		sec.Category,
		sec.SectionType,
		sec.Title,
		sec.ContentHTML,
		sec.ContentPlain,
		sec.Order,
		sec.SourceURL,
	).Scan(&sec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert section %q: %w", sec.Title, err)
	}
	return nil
}

// Update overwrites the derived fields of an existing section identified by sec.ID.
// The summary is left untouched.
func (s *SectionStore) Update(ctx context.Context, sec *model.Section) error {
	query := `
		UPDATE sections SET
			ministry_id = $1,
			bill_id = $2,
			category = $3,
			content_html = $4,
			content_plain = $5,
			section_order = $6,
			source_url = $7
		WHERE id = $8
	`

	_, err := s.db.ExecContext(ctx, query,
		sec.MinistryID,
		sec.BillID,
		sec.Category,
		sec.ContentHTML,
		sec.ContentPlain,
		sec.Order,
		sec.SourceURL,
		sec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update section %d: %w", sec.ID, err)
	}
	return nil
}

// LinkSpeaker links a member to a section. An existing link is kept as is.
func (s *SectionStore) LinkSpeaker(ctx context.Context, sp model.SectionSpeaker) error {
	query := `
		INSERT INTO section_speakers (section_id, member_id, constituency, designation)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (section_id, member_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, sp.SectionID, sp.MemberID, sp.Constituency, sp.Designation); err != nil {
		return fmt.Errorf("failed to link speaker %d to section %d: %w", sp.MemberID, sp.SectionID, err)
	}
	return nil
}

const listingSelect = `
		SELECT sec.id, sec.sitting_id, st.date, sec.bill_id, mi.acronym, sec.category,
		       sec.section_type, sec.section_title, sec.section_order, sec.summary
		FROM sections sec
		JOIN sittings st ON st.id = sec.sitting_id
		LEFT JOIN ministries mi ON mi.id = sec.ministry_id
`

func scanListings(rows *sql.Rows) ([]model.SectionListing, error) {
	defer rows.Close()

	var sections []model.SectionListing
	for rows.Next() {
		var l model.SectionListing
		err := rows.Scan(
			&l.ID,
			&l.SittingID,
			&l.SittingDate,
			&l.BillID,
			&l.Ministry,
			&l.Category,
			&l.SectionType,
			&l.Title,
			&l.Order,
			&l.Summary,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, l)
	}

	return sections, rows.Err()
}

// ListForSitting retrieves a sitting's sections in agenda order. A non-empty
// ministry acronym restricts the listing to that ministry.
func (s *SectionStore) ListForSitting(ctx context.Context, sittingID int64, ministry string) ([]model.SectionListing, error) {
	query := listingSelect + ` WHERE sec.sitting_id = $1`
	args := []any{sittingID}
	if ministry != "" {
		query += ` AND mi.acronym = $2`
		args = append(args, ministry)
	}
	query += ` ORDER BY sec.section_order, sec.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections for sitting %d: %w", sittingID, err)
	}
	return scanListings(rows)
}

// ListForBill retrieves a bill's sections across sittings, oldest first
func (s *SectionStore) ListForBill(ctx context.Context, billID int64) ([]model.SectionListing, error) {
	query := listingSelect + ` WHERE sec.bill_id = $1 ORDER BY st.date, sec.section_order, sec.id`

	rows, err := s.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections for bill %d: %w", billID, err)
	}
	return scanListings(rows)
}

// ListForMinistry retrieves the most recent sections attributed to a ministry,
// newest sitting first
func (s *SectionStore) ListForMinistry(ctx context.Context, acronym string, limit int) ([]model.SectionListing, error) {
	query := listingSelect + ` WHERE mi.acronym = $1 ORDER BY st.date DESC, sec.section_order, sec.id LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, acronym, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections for ministry %s: %w", acronym, err)
	}
	return scanListings(rows)
}

// ForSummary retrieves a sitting's sections outside bill lineage with their content.
// With onlyBlanks, sections that already have a summary are omitted.
func (s *SectionStore) ForSummary(ctx context.Context, sittingID int64, onlyBlanks bool) ([]model.Section, error) {
	query := `
		SELECT id, sitting_id, ministry_id, bill_id, category, section_type, section_title,
		       content_html, content_plain, section_order, source_url, summary, created_at
		FROM sections
		WHERE sitting_id = $1 AND section_type NOT IN ($2, $3) AND category <> $4
	`
	if onlyBlanks {
		query += ` AND summary IS NULL`
	}
	query += ` ORDER BY section_order, id`

	rows, err := s.db.QueryContext(ctx, query, sittingID,
		model.SectionTypeFirstReading, model.SectionTypeSecondReading, model.CategoryBill)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections for summary: %w", err)
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		var sec model.Section
		err := rows.Scan(
			&sec.ID,
			&sec.SittingID,
			&sec.MinistryID,
			&sec.BillID,
			&sec.Category,
			&sec.SectionType,
			&sec.Title,
			&sec.ContentHTML,
			&sec.ContentPlain,
			&sec.Order,
			&sec.SourceURL,
			&sec.Summary,
			&sec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, sec)
	}

	return sections, rows.Err()
}

// UpdateSummary stores a section's summary
func (s *SectionStore) UpdateSummary(ctx context.Context, id int64, summary string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE sections SET summary = $1 WHERE id = $2`, summary, id); err != nil {
		return fmt.Errorf("failed to update summary for section %d: %w", id, err)
	}
	return nil
}

// Speakers retrieves the speakers of the given sections ordered by member name
func (s *SectionStore) Speakers(ctx context.Context, sectionIDs []int64) ([]SpeakerRow, error) {
	if len(sectionIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT sp.section_id, sp.member_id, sp.constituency, sp.designation, m.name
		FROM section_speakers sp
		JOIN members m ON m.id = sp.member_id
		WHERE sp.section_id IN (` + placeholders(1, len(sectionIDs)) + `)
		ORDER BY sp.section_id, m.name
	`

	args := make([]any, len(sectionIDs))
	for i, id := range sectionIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get speakers: %w", err)
	}
	defer rows.Close()

	var speakers []SpeakerRow
	for rows.Next() {
		var sp SpeakerRow
		if err := rows.Scan(&sp.SectionID, &sp.MemberID, &sp.Constituency, &sp.Designation, &sp.MemberName); err != nil {
			return nil, fmt.Errorf("failed to scan speaker: %w", err)
		}
		speakers = append(speakers, sp)
	}

	return speakers, rows.Err()
}
