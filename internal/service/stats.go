package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StatsService calculates store-wide row counts
type StatsService struct {
	db *sql.DB
}

// NewStatsService creates a new StatsService
func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{db: db}
}

// SystemStats represents store-wide counts
type SystemStats struct {
	Sittings            int
	Members             int
	Sections            int
	Bills               int
	Attendance          int
	Speakers            int
	AttributedSections  int
	SummarizedSections  int
	BillsWithoutReading int
	LatestSitting       sql.NullTime
}

// Calculate computes the current counts
func (s *StatsService) Calculate(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM sittings`, &stats.Sittings},
		{`SELECT COUNT(*) FROM members`, &stats.Members},
		{`SELECT COUNT(*) FROM sections`, &stats.Sections},
		{`SELECT COUNT(*) FROM bills`, &stats.Bills},
		{`SELECT COUNT(*) FROM sitting_attendance`, &stats.Attendance},
		{`SELECT COUNT(*) FROM section_speakers`, &stats.Speakers},
		{`SELECT COUNT(*) FROM sections WHERE ministry_id IS NOT NULL`, &stats.AttributedSections},
		{`SELECT COUNT(*) FROM sections WHERE summary IS NOT NULL`, &stats.SummarizedSections},
		{`SELECT COUNT(*) FROM bills WHERE first_reading_date IS NULL`, &stats.BillsWithoutReading},
	}

	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to calculate stats: %w", err)
		}
	}

	// MAX over a DATE column comes back untyped from sqlite, so order instead
	var latest time.Time
	err := s.db.QueryRowContext(ctx, `SELECT date FROM sittings ORDER BY date DESC LIMIT 1`).Scan(&latest)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find latest sitting: %w", err)
	}
	if err == nil {
		stats.LatestSitting = sql.NullTime{Time: latest, Valid: true}
	}

	return stats, nil
}
