// Package metrics provides datastore metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/visits-go/internal/errors"
)

// Datastore operation statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Cache results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// DatastoreMetrics contains Prometheus metrics for recording and event reads.
// A nil *DatastoreMetrics is valid and records nothing.
type DatastoreMetrics struct {
	registry *prometheus.Registry

	// Database operation metrics
	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	dbQueryResultSizeHist  *prometheus.HistogramVec

	// Connection pool
	dbConnectionsActiveGauge prometheus.Gauge
	dbConnectionsIdleGauge   prometheus.Gauge

	// Audio bait event cache
	cacheOperationsTotal *prometheus.CounterVec
	cacheSizeGauge       prometheus.Gauge

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "table", "status"},
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~2s
		},
		[]string{"operation", "table"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	m.dbQueryResultSizeHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_db_query_result_size_rows",
			Help:    "Number of rows returned by queries",
			Buckets: prometheus.ExponentialBuckets(BucketStart1, BucketFactor2, BucketCount12),
		},
		[]string{"operation", "table"},
	)

	m.dbConnectionsActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_db_connections_active",
		Help: "Number of connections currently in use",
	})

	m.dbConnectionsIdleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_db_connections_idle",
		Help: "Number of idle connections",
	})

	m.cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_cache_operations_total",
			Help: "Total number of cache lookups",
		},
		[]string{"cache_type", "result"}, // result: hit, miss
	)

	m.cacheSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_cache_size_entries",
		Help: "Current number of entries in the event cache",
	})

	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.dbQueryResultSizeHist,
		m.dbConnectionsActiveGauge,
		m.dbConnectionsIdleGauge,
		m.cacheOperationsTotal,
		m.cacheSizeGauge,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordDbOperation records one database operation with its outcome and rows.
func (m *DatastoreMetrics) RecordDbOperation(operation, table string, rows int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dbOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		m.dbOperationsTotal.WithLabelValues(operation, table, StatusError).Inc()
		m.dbOperationErrorsTotal.WithLabelValues(operation, table, string(errors.CategoryOf(err))).Inc()
		return
	}
	m.dbOperationsTotal.WithLabelValues(operation, table, StatusSuccess).Inc()
	m.dbQueryResultSizeHist.WithLabelValues(operation, table).Observe(float64(rows))
}

// RecordCacheOperation records a cache lookup.
func (m *DatastoreMetrics) RecordCacheOperation(cacheType string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheOperationsTotal.WithLabelValues(cacheType, result).Inc()
}

// UpdateCacheSize sets the current cache entry count.
func (m *DatastoreMetrics) UpdateCacheSize(size int) {
	if m == nil {
		return
	}
	m.cacheSizeGauge.Set(float64(size))
}

// UpdateConnectionMetrics sets connection pool gauges.
func (m *DatastoreMetrics) UpdateConnectionMetrics(active, idle int) {
	if m == nil {
		return
	}
	m.dbConnectionsActiveGauge.Set(float64(active))
	m.dbConnectionsIdleGauge.Set(float64(idle))
}
