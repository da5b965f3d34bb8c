// Package metrics provides constants used across metric definitions.
package metrics

// Query modes label every visit metric with the surface that ran the query.
const (
	// ModeReport is a closed-range report where every visit is final.
	ModeReport = "report"
	// ModeMonitoring is a paged monitoring view.
	ModeMonitoring = "monitoring"
	// ModeLive is an open-ended query resumed by offset.
	ModeLive = "live"
)

// Visit states.
const (
	StateComplete   = "complete"
	StateIncomplete = "incomplete"
)

// Histogram bucket configuration.
const (
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart1ms is the starting bucket for database latency histograms.
	BucketStart1ms = 0.001
	// BucketStart1 is the starting bucket for count histograms.
	BucketStart1 = 1.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
