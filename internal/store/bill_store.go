package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/parliament/internal/model"
)

// BillStore handles database operations for bills
type BillStore struct {
	db *sql.DB
}

// NewBillStore creates a new BillStore
func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

const billColumns = `id, title, ministry_id, first_reading_date, first_reading_sitting_id, summary, created_at`

func scanBill(row interface{ Scan(...any) error }, b *model.Bill) error {
	return row.Scan(
		&b.ID,
		&b.Title,
		&b.MinistryID,
		&b.FirstReadingDate,
		&b.FirstReadingSittingID,
		&b.Summary,
		&b.CreatedAt,
	)
}

// FindByTitle retrieves the bill with exactly this title, or nil if none exists
func (s *BillStore) FindByTitle(ctx context.Context, title string) (*model.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE title = $1`

	var b model.Bill
	err := scanBill(s.db.QueryRowContext(ctx, query, title), &b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %q: %w", title, err)
	}

	return &b, nil
}

// GetByID retrieves a bill by id, or nil if none exists
func (s *BillStore) GetByID(ctx context.Context, id int64) (*model.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1`

	var b model.Bill
	err := scanBill(s.db.QueryRowContext(ctx, query, id), &b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %d: %w", id, err)
	}

	return &b, nil
}

// InsertIfAbsent inserts a bill and sets b.ID. It reports false without error
// when a bill with the same title already exists.
func (s *BillStore) InsertIfAbsent(ctx context.Context, b *model.Bill) (bool, error) {
	query := `
		INSERT INTO bills (title, ministry_id, first_reading_date, first_reading_sitting_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (title) DO NOTHING
		RETURNING id
	`

	var firstReading sql.NullTime
	if b.FirstReadingDate.Valid {
		firstReading = sql.NullTime{Time: dateOnly(b.FirstReadingDate.Time), Valid: true}
	}

	err := s.db.QueryRowContext(ctx, query, b.Title, b.MinistryID, firstReading, b.FirstReadingSittingID).Scan(&b.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert bill %q: %w", b.Title, err)
	}
	return true, nil
}

// BackfillMinistry sets the bill's ministry only if it has none
func (s *BillStore) BackfillMinistry(ctx context.Context, id, ministryID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bills SET ministry_id = $1 WHERE id = $2 AND ministry_id IS NULL`,
		ministryID, id)
	if err != nil {
		return false, fmt.Errorf("failed to backfill ministry for bill %d: %w", id, err)
	}
	return affected(res)
}

// BackfillFirstReading sets the first-reading date and sitting together, only
// if the date is unset
func (s *BillStore) BackfillFirstReading(ctx context.Context, id int64, date time.Time, sittingID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bills SET first_reading_date = $1, first_reading_sitting_id = $2
		WHERE id = $3 AND first_reading_date IS NULL`,
		dateOnly(date), sittingID, id)
	if err != nil {
		return false, fmt.Errorf("failed to backfill first reading for bill %d: %w", id, err)
	}
	return affected(res)
}

// UpdateSummary stores a bill's summary
func (s *BillStore) UpdateSummary(ctx context.Context, id int64, summary string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE bills SET summary = $1 WHERE id = $2`, summary, id); err != nil {
		return fmt.Errorf("failed to update summary for bill %d: %w", id, err)
	}
	return nil
}

// ListWithStats retrieves all bills with their ministry acronym and linked
// section count, most recent first reading first
func (s *BillStore) ListWithStats(ctx context.Context) ([]model.BillWithStats, error) {
	query := `
		SELECT b.id, b.title, b.ministry_id, b.first_reading_date, b.first_reading_sitting_id,
		       b.summary, b.created_at, m.acronym,
		       (SELECT COUNT(*) FROM sections sec WHERE sec.bill_id = b.id)
		FROM bills b
		LEFT JOIN ministries m ON m.id = b.ministry_id
		ORDER BY b.first_reading_date IS NULL, b.first_reading_date DESC, b.title
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get bills: %w", err)
	}
	defer rows.Close()

	var bills []model.BillWithStats
	for rows.Next() {
		var b model.BillWithStats
		err := rows.Scan(
			&b.ID,
			&b.Title,
			&b.MinistryID,
			&b.FirstReadingDate,
			&b.FirstReadingSittingID,
			&b.Summary,
			&b.CreatedAt,
			&b.Ministry,
			&b.SectionCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}

	return bills, rows.Err()
}

// SectionTexts retrieves the plain content of every section linked to the
// bill, ordered by sitting date then position within the sitting
func (s *BillStore) SectionTexts(ctx context.Context, billID int64) ([]string, error) {
	query := `
		SELECT sec.content_plain
		FROM sections sec
		JOIN sittings st ON st.id = sec.sitting_id
		WHERE sec.bill_id = $1
		ORDER BY st.date, sec.section_order, sec.id
	`

	rows, err := s.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections for bill %d: %w", billID, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan section text: %w", err)
		}
		texts = append(texts, text)
	}

	return texts, rows.Err()
}

// DebatedInSitting retrieves the bills with a second-reading section in the
// sitting. With onlyBlanks, bills that already have a summary are omitted.
func (s *BillStore) DebatedInSitting(ctx context.Context, sittingID int64, onlyBlanks bool) ([]model.Bill, error) {
	query := `
		SELECT b.id, b.title, b.ministry_id, b.first_reading_date, b.first_reading_sitting_id,
		       b.summary, b.created_at
		FROM bills b
		WHERE EXISTS (
			SELECT 1 FROM sections sec
			WHERE sec.bill_id = b.id AND sec.sitting_id = $1 AND sec.section_type = $2
		)
	`
	if onlyBlanks {
		query += ` AND b.summary IS NULL`
	}
	query += ` ORDER BY b.id`

	rows, err := s.db.QueryContext(ctx, query, sittingID, model.SectionTypeSecondReading)
	if err != nil {
		return nil, fmt.Errorf("failed to get bills for sitting %d: %w", sittingID, err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		var b model.Bill
		if err := scanBill(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}

	return bills, rows.Err()
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
