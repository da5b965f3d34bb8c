// Package pagination drives visit aggregation over a paged recording stream.
//
// The Collector pulls batches from a visits.RecordingSource until it has
// enough completed visits or the stream ends, and computes the offset a
// follow-up query must resume from. Criteria maps a monitoring page number
// onto a time window and decides which visits a page may report.
package pagination

import (
	"context"
	"time"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/observability/metrics"
	"github.com/tphakala/visits-go/internal/recording"
	"github.com/tphakala/visits-go/internal/visits"
)

const (
	// DefaultMaxRecordings is the per-query recording ceiling.
	DefaultMaxRecordings = 2000
	// DefaultMaxBatch is the largest single fetch.
	DefaultMaxBatch = 500
)

// Config bounds a collector's fetching.
type Config struct {
	MaxRecordings int
	MaxBatch      int
	Aggregation   visits.Options
	Metrics       *metrics.VisitMetrics // optional, used by Live
}

// Collector runs the fetch/aggregate loop.
type Collector struct {
	source  visits.RecordingSource
	cfg     Config
	log     logger.Logger
	metrics *metrics.VisitMetrics
}

// NewCollector returns a collector reading from source.
func NewCollector(source visits.RecordingSource, cfg Config) *Collector {
	if cfg.MaxRecordings <= 0 {
		cfg.MaxRecordings = DefaultMaxRecordings
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	if cfg.Aggregation.EventMaxTime <= 0 {
		cfg.Aggregation.EventMaxTime = visits.EventMaxTime
	}
	log := cfg.Aggregation.Logger
	if log == nil {
		log = logger.Global().Module("pagination")
		cfg.Aggregation.Logger = log
	}
	return &Collector{source: source, cfg: cfg, log: log, metrics: cfg.Metrics}
}

// EventMaxTime returns the visit window the collector aggregates with.
func (c *Collector) EventMaxTime() time.Duration {
	return c.cfg.Aggregation.EventMaxTime
}

// Request describes one collection run.
type Request struct {
	Query visits.Query
	// Target is the number of completed visits wanted; 0 reads the whole
	// query range.
	Target int
	// Offset is where to start in the recording stream.
	Offset int
	// Final completes every open visit once the stream ends. Use it when
	// the query range is closed and nothing later can extend a visit.
	Final bool
}

// Result is the outcome of a collection run.
type Result struct {
	// Visits holds every visit built, complete or not, ordered by start.
	Visits []visits.Visit
	// Completed holds the completed visits that a follow-up query starting
	// at NextOffset will not rebuild.
	Completed []visits.Visit
	// Incomplete holds visits still open when collection stopped.
	Incomplete []visits.Visit
	// Recordings holds every recording fetched, in stream order.
	Recordings []recording.Recording
	Tracks     []*visits.DeviceVisitTrack

	NextOffset int
	Fetched    int
	Exhausted  bool
}

// Collect fetches and aggregates recordings until req.Target completed visits
// lie before the resume offset, the stream is exhausted, or the recording
// ceiling is reached.
func (c *Collector) Collect(ctx context.Context, req Request) (*Result, error) {
	agg := visits.NewAggregator(c.cfg.Aggregation)
	log := c.log.WithContext(ctx)

	var (
		recs      []recording.Recording
		offset    = req.Offset
		exhausted bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Component("pagination").
				Category(errors.CategoryCancellation).
				Context("offset", offset).
				Build()
		}

		batch := c.batchSize(req.Target, agg.ReportableCount(offset))
		if room := c.cfg.MaxRecordings - len(recs); batch > room {
			batch = room
		}
		if batch <= 0 {
			return nil, errors.New(visits.ErrTooManyRecordings).
				Component("pagination").
				Category(errors.CategoryLimit).
				Context("max_recordings", c.cfg.MaxRecordings).
				Context("offset", req.Offset).
				Build()
		}

		fetched, err := c.source.FetchRecordings(ctx, req.Query, offset, batch)
		if err != nil {
			return nil, errors.New(err).
				Component("pagination").
				Category(errors.CategoryRecordingSource).
				Context("offset", offset).
				Context("limit", batch).
				Build()
		}

		for i := range fetched {
			if err := agg.AddRecording(&fetched[i], offset+i); err != nil {
				return nil, err
			}
		}
		recs = append(recs, fetched...)
		offset += len(fetched)

		if len(fetched) > 0 {
			agg.CompleteBefore(fetched[len(fetched)-1].Start)
		}
		// A completed visit only counts once no open visit holds the resume
		// offset at or before it; otherwise the next query rebuilds it.
		reportable := agg.ReportableCount(offset)

		log.Debug("fetched recordings",
			logger.Int("count", len(fetched)),
			logger.Int("offset", offset),
			logger.Int("completed", agg.CompletedCount()),
			logger.Int("reportable", reportable))

		if len(fetched) < batch {
			exhausted = true
			break
		}
		if req.Target > 0 && reportable >= req.Target {
			break
		}
	}

	if exhausted {
		switch {
		case req.Final:
			agg.CompleteAll()
		case !req.Query.Until.IsZero():
			agg.CompleteBefore(req.Query.Until)
		}
	}

	next := agg.ResumeOffset(offset)
	res := &Result{
		Visits:     agg.Visits(),
		Recordings: recs,
		Tracks:     agg.Tracks(),
		NextOffset: next,
		Fetched:    len(recs),
		Exhausted:  exhausted,
	}
	for i := range res.Visits {
		v := &res.Visits[i]
		switch {
		case !v.Complete:
			res.Incomplete = append(res.Incomplete, *v)
		case v.QueryOffset < next:
			res.Completed = append(res.Completed, *v)
		}
	}

	log.Debug("collection finished",
		logger.Int("fetched", res.Fetched),
		logger.Int("completed", len(res.Completed)),
		logger.Int("incomplete", len(res.Incomplete)),
		logger.Int("next_offset", next),
		logger.Bool("exhausted", exhausted))

	return res, nil
}

// batchSize fetches twice the remaining visit count, capped at MaxBatch.
func (c *Collector) batchSize(target, reportable int) int {
	if target <= 0 {
		return c.cfg.MaxBatch
	}
	remaining := max(target-reportable, 1)
	return min(2*remaining, c.cfg.MaxBatch)
}
