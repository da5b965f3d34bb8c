// Package metrics provides visit computation metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/visits-go/internal/errors"
)

// VisitMetrics contains Prometheus metrics for visit queries.
// A nil *VisitMetrics is valid and records nothing.
type VisitMetrics struct {
	registry *prometheus.Registry

	recordingsFetchedTotal *prometheus.CounterVec
	visitsTotal            *prometheus.CounterVec
	visitsSplitTotal       prometheus.Counter
	queryDuration          *prometheus.HistogramVec
	recordingsPerQuery     *prometheus.HistogramVec
	queryErrorsTotal       *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewVisitMetrics creates and registers new visit metrics
func NewVisitMetrics(registry *prometheus.Registry) (*VisitMetrics, error) {
	m := &VisitMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *VisitMetrics) initMetrics() {
	m.recordingsFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visits_recordings_fetched_total",
			Help: "Total number of recordings fetched for visit computation",
		},
		[]string{"mode"},
	)

	m.visitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visits_computed_total",
			Help: "Total number of visits returned",
		},
		[]string{"mode", "state"}, // state: complete, incomplete
	)

	m.visitsSplitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "visits_split_total",
			Help: "Total number of monitoring visits split by conflicting human tags",
		},
	)

	m.queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visits_query_duration_seconds",
			Help:    "Time taken to compute visits for one query",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
		},
		[]string{"mode"},
	)

	m.recordingsPerQuery = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visits_recordings_per_query",
			Help:    "Number of recordings read by one query",
			Buckets: prometheus.ExponentialBuckets(BucketStart1, BucketFactor2, BucketCount12), // 1 to 2048
		},
		[]string{"mode"},
	)

	m.queryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visits_query_errors_total",
			Help: "Total number of failed visit queries",
		},
		[]string{"mode", "category"},
	)

	m.collectors = []prometheus.Collector{
		m.recordingsFetchedTotal,
		m.visitsTotal,
		m.visitsSplitTotal,
		m.queryDuration,
		m.recordingsPerQuery,
		m.queryErrorsTotal,
	}
}

// Describe implements the Collector interface
func (m *VisitMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *VisitMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordQuery records a finished query.
func (m *VisitMetrics) RecordQuery(mode string, recordings int, duration time.Duration) {
	if m == nil {
		return
	}
	m.recordingsFetchedTotal.WithLabelValues(mode).Add(float64(recordings))
	m.recordingsPerQuery.WithLabelValues(mode).Observe(float64(recordings))
	m.queryDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordVisits records the visits a query returned.
func (m *VisitMetrics) RecordVisits(mode string, complete, incomplete int) {
	if m == nil {
		return
	}
	m.visitsTotal.WithLabelValues(mode, StateComplete).Add(float64(complete))
	m.visitsTotal.WithLabelValues(mode, StateIncomplete).Add(float64(incomplete))
}

// RecordSplit records visits produced by splitting.
func (m *VisitMetrics) RecordSplit(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.visitsSplitTotal.Add(float64(count))
}

// RecordError records a failed query under its error category.
func (m *VisitMetrics) RecordError(mode string, err error) {
	if m == nil || err == nil {
		return
	}
	m.queryErrorsTotal.WithLabelValues(mode, string(errors.CategoryOf(err))).Inc()
}
