package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatsService_Calculate(t *testing.T) {
	env := newTestEnv(t)
	stats := NewStatsService(env.db)

	empty, err := stats.Calculate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, empty.Sittings)
	assert.False(t, empty.LatestSitting.Valid)

	env.source.add(scenarioSitting(day(4)))
	env.source.add(scenarioSitting(day(6)))
	for _, d := range []int{4, 6} {
		require.NoError(t, env.ingestor.IngestDate(context.Background(), day(d)).Err)
	}

	s, err := stats.Calculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Sittings)
	assert.Equal(t, 3, s.Members)
	assert.Equal(t, 6, s.Sections)
	assert.Equal(t, 1, s.Bills)
	assert.Equal(t, 6, s.Attendance)
	assert.Equal(t, 2, s.Speakers)
	assert.Zero(t, s.SummarizedSections)
	assert.Zero(t, s.BillsWithoutReading)
	require.True(t, s.LatestSitting.Valid)
	assert.True(t, s.LatestSitting.Time.Equal(day(6)))
}

func TestStatsCollector(t *testing.T) {
	env := newTestEnv(t)
	env.source.add(scenarioSitting(day(4)))
	require.NoError(t, env.ingestor.IngestDate(context.Background(), day(4)).Err)

	collector := NewStatsCollector(NewStatsService(env.db), zap.NewNop())
	assert.Equal(t, 6, testutil.CollectAndCount(collector))

	expected := `
# HELP parliament_store_sittings Stored sittings
# TYPE parliament_store_sittings gauge
parliament_store_sittings 1
# HELP parliament_store_sections Stored sections
# TYPE parliament_store_sections gauge
parliament_store_sections 3
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"parliament_store_sittings", "parliament_store_sections"))
}

func TestIngestMetrics_ObserveDate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIngestMetrics(reg)

	m.ObserveDate(SittingResult{State: StateDone, Sections: 3, Attendance: 2}, 0)
	m.ObserveDate(SittingResult{State: StateSkipped}, 0)
	m.ObserveDate(SittingResult{State: StateDone, Sections: 1, Attendance: 1}, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dates.WithLabelValues(StateDone.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dates.WithLabelValues(StateSkipped.String())))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.sections))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.attendance))
}
