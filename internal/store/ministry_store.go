package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/parliament/internal/ministry"
	"github.com/jjenkins/parliament/internal/model"
)

// MinistryStore handles database operations for the ministry reference set
type MinistryStore struct {
	db *sql.DB
}

// NewMinistryStore creates a new MinistryStore
func NewMinistryStore(db *sql.DB) *MinistryStore {
	return &MinistryStore{db: db}
}

// Seed upserts the reference entries by acronym
func (s *MinistryStore) Seed(ctx context.Context, entries []ministry.Entry) error {
	query := `
		INSERT INTO ministries (acronym, name)
		VALUES ($1, $2)
		ON CONFLICT (acronym) DO UPDATE SET name = EXCLUDED.name
	`

	for _, e := range entries {
		if _, err := s.db.ExecContext(ctx, query, e.Acronym, e.Name); err != nil {
			return fmt.Errorf("failed to seed ministry %s: %w", e.Acronym, err)
		}
	}
	return nil
}

// FindByAcronym returns the ministry id, or false when the acronym is unknown
func (s *MinistryStore) FindByAcronym(ctx context.Context, acronym string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM ministries WHERE acronym = $1`, acronym).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get ministry %s: %w", acronym, err)
	}
	return id, true, nil
}

// GetAll retrieves all ministries ordered by acronym
func (s *MinistryStore) GetAll(ctx context.Context) ([]model.Ministry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, acronym, name FROM ministries ORDER BY acronym`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ministries: %w", err)
	}
	defer rows.Close()

	var ministries []model.Ministry
	for rows.Next() {
		var m model.Ministry
		if err := rows.Scan(&m.ID, &m.Acronym, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan ministry: %w", err)
		}
		ministries = append(ministries, m)
	}

	return ministries, rows.Err()
}

// GetByAcronym retrieves a ministry by acronym, or nil if unknown
func (s *MinistryStore) GetByAcronym(ctx context.Context, acronym string) (*model.Ministry, error) {
	var m model.Ministry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, acronym, name FROM ministries WHERE acronym = $1`, acronym).Scan(&m.ID, &m.Acronym, &m.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ministry %s: %w", acronym, err)
	}
	return &m, nil
}

// ListWithCounts retrieves all ministries with the number of sections and
// bills attributed to each
func (s *MinistryStore) ListWithCounts(ctx context.Context) ([]model.MinistryWithStats, error) {
	query := `
		SELECT mi.id, mi.acronym, mi.name,
		       (SELECT COUNT(*) FROM sections sec WHERE sec.ministry_id = mi.id),
		       (SELECT COUNT(*) FROM bills b WHERE b.ministry_id = mi.id)
		FROM ministries mi
		ORDER BY mi.acronym
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ministries: %w", err)
	}
	defer rows.Close()

	var ministries []model.MinistryWithStats
	for rows.Next() {
		var m model.MinistryWithStats
		if err := rows.Scan(&m.ID, &m.Acronym, &m.Name, &m.SectionCount, &m.BillCount); err != nil {
			return nil, fmt.Errorf("failed to scan ministry: %w", err)
		}
		ministries = append(ministries, m)
	}

	return ministries, rows.Err()
}
