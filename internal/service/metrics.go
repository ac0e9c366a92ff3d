package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// IngestMetrics records per-date ingestion outcomes
type IngestMetrics struct {
	dates      *prometheus.CounterVec
	sections   prometheus.Counter
	attendance prometheus.Counter
	duration   prometheus.Histogram
}

// NewIngestMetrics creates the ingestion metrics and registers them with reg
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	m := &IngestMetrics{
		dates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parliament_ingest_dates_total",
			Help: "Dates processed, by outcome",
		}, []string{"outcome"}),
		sections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parliament_ingest_sections_total",
			Help: "Sections written by ingestion",
		}),
		attendance: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parliament_ingest_attendance_total",
			Help: "Attendance rows written by ingestion",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "parliament_ingest_date_duration_seconds",
			Help:    "Time taken to ingest one date",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
	}
	reg.MustRegister(m.dates, m.sections, m.attendance, m.duration)
	return m
}

// ObserveDate records the outcome of one date
func (m *IngestMetrics) ObserveDate(res SittingResult, elapsed time.Duration) {
	m.dates.WithLabelValues(res.State.String()).Inc()
	m.sections.Add(float64(res.Sections))
	m.attendance.Add(float64(res.Attendance))
	m.duration.Observe(elapsed.Seconds())
}

// StatsCollector exposes store row counts as gauges, computed on scrape
type StatsCollector struct {
	stats   *StatsService
	logger  *zap.Logger
	timeout time.Duration
	desc    map[string]*prometheus.Desc
}

// NewStatsCollector creates a collector over stats
func NewStatsCollector(stats *StatsService, logger *zap.Logger) *StatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("parliament_store_"+name, help, nil, nil)
	}
	return &StatsCollector{
		stats:   stats,
		logger:  logger.Named("stats_collector"),
		timeout: 5 * time.Second,
		desc: map[string]*prometheus.Desc{
			"sittings":   desc("sittings", "Stored sittings"),
			"members":    desc("members", "Stored members"),
			"sections":   desc("sections", "Stored sections"),
			"bills":      desc("bills", "Stored bills"),
			"attendance": desc("attendance", "Stored attendance rows"),
			"speakers":   desc("speakers", "Stored speaker links"),
		},
	}
}

// Describe implements prometheus.Collector
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.desc {
		ch <- d
	}
}

// Collect implements prometheus.Collector
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	s, err := c.stats.Calculate(ctx)
	if err != nil {
		c.logger.Warn("Failed to collect store stats", zap.Error(err))
		return
	}

	values := map[string]int{
		"sittings":   s.Sittings,
		"members":    s.Members,
		"sections":   s.Sections,
		"bills":      s.Bills,
		"attendance": s.Attendance,
		"speakers":   s.Speakers,
	}
	for name, v := range values {
		ch <- prometheus.MustNewConstMetric(c.desc[name], prometheus.GaugeValue, float64(v))
	}
}
