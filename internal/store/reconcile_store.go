package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/parliament/internal/model"
)

// DuplicateSection is a section row that ranks below the survivor of its
// (sitting, title, type) group
type DuplicateSection struct {
	ID          int64
	SittingDate time.Time
	Title       string
	SectionType string
	CreatedAt   time.Time
}

// BillCandidate is a bill with its linked section count, input of the merge pass
type BillCandidate struct {
	model.Bill
	Key          string // lower(trim(title))
	SectionCount int
}

// ReconcileStore handles the queries of the duplicate repair passes
type ReconcileStore struct {
	db *sql.DB
}

// NewReconcileStore creates a new ReconcileStore
func NewReconcileStore(db *sql.DB) *ReconcileStore {
	return &ReconcileStore{db: db}
}

// rankedDuplicates selects the ids of every section that is not the survivor
// of its group. The survivor is the earliest row, or the latest with keepNewest,
// ties broken by lowest id.
func rankedDuplicates(keepNewest bool) string {
	order := "ASC"
	if keepNewest {
		order = "DESC"
	}
	return `
		SELECT ranked.id FROM (
			SELECT sec.id, ROW_NUMBER() OVER (
				PARTITION BY sec.sitting_id, sec.section_title, sec.section_type
				ORDER BY sec.created_at ` + order + `, sec.id ASC
			) AS rn
			FROM sections sec
			JOIN sittings st ON st.id = sec.sitting_id
			WHERE st.date >= $1 AND st.date <= $2
		) ranked
		WHERE ranked.rn > 1
	`
}

// CountSittings returns the number of sittings between start and end inclusive
func (s *ReconcileStore) CountSittings(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sittings WHERE date >= $1 AND date <= $2`,
		dateOnly(start), dateOnly(end)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sittings: %w", err)
	}
	return n, nil
}

// DuplicateSections lists the rows the section dedup pass would delete
func (s *ReconcileStore) DuplicateSections(ctx context.Context, start, end time.Time, keepNewest bool) ([]DuplicateSection, error) {
	query := `
		SELECT sec.id, st.date, sec.section_title, sec.section_type, sec.created_at
		FROM sections sec
		JOIN sittings st ON st.id = sec.sitting_id
		WHERE sec.id IN (` + rankedDuplicates(keepNewest) + `)
		ORDER BY st.date, sec.section_title, sec.id
	`

	rows, err := s.db.QueryContext(ctx, query, dateOnly(start), dateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate sections: %w", err)
	}
	defer rows.Close()

	var dups []DuplicateSection
	for rows.Next() {
		var d DuplicateSection
		if err := rows.Scan(&d.ID, &d.SittingDate, &d.Title, &d.SectionType, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate section: %w", err)
		}
		dups = append(dups, d)
	}

	return dups, rows.Err()
}

// DeleteDuplicateSections removes every non-survivor section in the range in a
// single transaction. Speaker links of deleted sections cascade.
func (s *ReconcileStore) DeleteDuplicateSections(ctx context.Context, start, end time.Time, keepNewest bool) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sections WHERE id IN (`+rankedDuplicates(keepNewest)+`)`,
		dateOnly(start), dateOnly(end))
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate sections: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// BillCandidates retrieves every bill whose normalized title is shared with
// another bill, grouped by normalized title then by id
func (s *ReconcileStore) BillCandidates(ctx context.Context) ([]BillCandidate, error) {
	query := `
		SELECT b.id, b.title, b.ministry_id, b.first_reading_date, b.first_reading_sitting_id,
		       b.summary, b.created_at, lower(trim(b.title)),
		       (SELECT COUNT(*) FROM sections sec WHERE sec.bill_id = b.id)
		FROM bills b
		WHERE lower(trim(b.title)) IN (
			SELECT lower(trim(title)) FROM bills
			GROUP BY lower(trim(title))
			HAVING COUNT(*) > 1
		)
		ORDER BY lower(trim(b.title)), b.id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate bills: %w", err)
	}
	defer rows.Close()

	var candidates []BillCandidate
	for rows.Next() {
		var c BillCandidate
		err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.MinistryID,
			&c.FirstReadingDate,
			&c.FirstReadingSittingID,
			&c.Summary,
			&c.CreatedAt,
			&c.Key,
			&c.SectionCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// MergeBills writes the merged master row, points the duplicates' sections at
// the master and deletes the duplicates, all in one transaction. It returns
// the number of sections reassigned.
func (s *ReconcileStore) MergeBills(ctx context.Context, master model.Bill, duplicateIDs []int64) (int64, error) {
	if len(duplicateIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE bills SET
			ministry_id = $1,
			first_reading_date = $2,
			first_reading_sitting_id = $3,
			summary = $4
		WHERE id = $5`,
		master.MinistryID,
		master.FirstReadingDate,
		master.FirstReadingSittingID,
		master.Summary,
		master.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update master bill %d: %w", master.ID, err)
	}

	args := make([]any, 0, len(duplicateIDs)+1)
	args = append(args, master.ID)
	for _, id := range duplicateIDs {
		args = append(args, id)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sections SET bill_id = $1 WHERE bill_id IN (`+placeholders(2, len(duplicateIDs))+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign sections to bill %d: %w", master.ID, err)
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM bills WHERE id IN (`+placeholders(1, len(duplicateIDs))+`)`,
		args[1:]...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate bills: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return moved, nil
}
