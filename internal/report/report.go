// Package report builds closed-range visit reports: every visit in the range
// is final and annotated with nearby audio-bait playback.
package report

import (
	"cmp"
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/observability/metrics"
	"github.com/tphakala/visits-go/internal/pagination"
	"github.com/tphakala/visits-go/internal/visits"
)

// DefaultConcurrency bounds concurrent event lookups.
const DefaultConcurrency = 4

// DeviceSummary aggregates the visits of one grouping key.
type DeviceSummary struct {
	DeviceID        uint                   `json:"deviceId"`
	DeviceName      string                 `json:"deviceName"`
	GroupName       string                 `json:"groupName"`
	StationID       uint                   `json:"stationId,omitempty"`
	StationName     string                 `json:"stationName,omitempty"`
	Visits          int                    `json:"visits"`
	Events          int                    `json:"events"`
	Recordings      int                    `json:"recordings"`
	AudioBaitVisits int                    `json:"audioBaitVisits"`
	Animals         []visits.AnimalSummary `json:"animals"`
}

// Report is the result of a closed-range visit query.
type Report struct {
	From    time.Time              `json:"from"`
	Until   time.Time              `json:"until"`
	Visits  []visits.Visit         `json:"visits"`
	Devices []DeviceSummary        `json:"devices"`
	Animals []visits.AnimalSummary `json:"animals"`
	Fetched int                    `json:"recordingsFetched"`
}

// Options configures a Builder.
type Options struct {
	Location *time.Location
	// AudioBaitInterval overrides visits.AudioBaitInterval when positive.
	AudioBaitInterval time.Duration
	Concurrency       int
	Logger            logger.Logger
	Metrics           *metrics.VisitMetrics
}

// Builder assembles reports.
type Builder struct {
	collector   *pagination.Collector
	events      visits.EventSource
	correlator  *visits.AudioBaitCorrelator
	concurrency int
	log         logger.Logger
	metrics     *metrics.VisitMetrics
}

// NewBuilder returns a report builder. events may be nil, in which case
// visits are not correlated with audio bait.
func NewBuilder(collector *pagination.Collector, events visits.EventSource, opts Options) *Builder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module("report")
	}
	correlator := visits.NewAudioBaitCorrelator(opts.Location)
	if opts.AudioBaitInterval > 0 {
		correlator.Interval = opts.AudioBaitInterval
	}
	return &Builder{
		collector:   collector,
		events:      events,
		correlator:  correlator,
		concurrency: opts.Concurrency,
		log:         log,
		metrics:     opts.Metrics,
	}
}

// Build computes the report for q. Both ends of q's range must be set.
func (b *Builder) Build(ctx context.Context, q visits.Query) (*Report, error) {
	started := time.Now()
	r, err := b.build(ctx, q)
	if err != nil {
		b.metrics.RecordError(metrics.ModeReport, err)
		return nil, err
	}
	b.metrics.RecordQuery(metrics.ModeReport, r.Fetched, time.Since(started))
	b.metrics.RecordVisits(metrics.ModeReport, len(r.Visits), 0)
	return r, nil
}

func (b *Builder) build(ctx context.Context, q visits.Query) (*Report, error) {
	if q.From.IsZero() || q.Until.IsZero() || !q.From.Before(q.Until) {
		return nil, errors.Newf("report needs a closed time range").
			Component("report").
			Category(errors.CategoryValidation).
			Context("from", q.From).
			Context("until", q.Until).
			Build()
	}

	res, err := b.collector.Collect(ctx, pagination.Request{Query: q, Final: true})
	if err != nil {
		return nil, err
	}

	all := res.Visits
	if b.events != nil {
		if err := b.correlate(ctx, all); err != nil {
			return nil, err
		}
	}

	r := &Report{
		From:    q.From,
		Until:   q.Until,
		Visits:  all,
		Animals: visits.SummarizeAnimals(all),
		Fetched: res.Fetched,
	}
	r.Devices = summarizeDevices(res.Tracks, all)

	b.log.WithContext(ctx).Info("report computed",
		logger.Int("visits", len(all)),
		logger.Int("devices", len(r.Devices)),
		logger.Int("recordings", res.Fetched))
	return r, nil
}

// correlate looks up audio-bait events per device in parallel and attaches
// them to that device's visits. Each goroutine owns a disjoint set of
// visits.
func (b *Builder) correlate(ctx context.Context, all []visits.Visit) error {
	byDevice := make(map[uint][]int)
	var devices []uint
	for i := range all {
		id := all[i].DeviceID
		if _, ok := byDevice[id]; !ok {
			devices = append(devices, id)
		}
		byDevice[id] = append(byDevice[id], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, deviceID := range devices {
		idx := byDevice[deviceID]
		g.Go(func() error {
			own := make([]visits.Visit, len(idx))
			for j, i := range idx {
				own[j] = all[i]
			}
			from, until := b.correlator.EventWindow(own)
			events, err := b.events.AudioBaitEvents(gctx, deviceID, from, until)
			if err != nil {
				return errors.New(err).
					Component("report").
					Category(errors.CategoryEventSource).
					Context("device_id", deviceID).
					Build()
			}
			for _, i := range idx {
				b.correlator.Correlate(&all[i], events)
			}
			return nil
		})
	}
	return g.Wait()
}

func summarizeDevices(tracks []*visits.DeviceVisitTrack, all []visits.Visit) []DeviceSummary {
	byKey := make(map[visits.Key][]visits.Visit)
	for i := range all {
		byKey[all[i].Key] = append(byKey[all[i].Key], all[i])
	}

	out := make([]DeviceSummary, 0, len(tracks))
	for _, t := range tracks {
		vs := byKey[t.Key]
		s := DeviceSummary{
			DeviceID:    t.DeviceID,
			DeviceName:  t.DeviceName,
			GroupName:   t.GroupName,
			StationID:   t.StationID,
			StationName: t.StationName,
			Visits:      len(vs),
			Events:      t.EventCount(),
			Recordings:  t.RecordingCount(),
			Animals:     visits.SummarizeAnimals(vs),
		}
		for i := range vs {
			if vs[i].AudioBaitVisit {
				s.AudioBaitVisits++
			}
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b DeviceSummary) int {
		if c := cmp.Compare(a.DeviceName, b.DeviceName); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DeviceID, b.DeviceID); c != 0 {
			return c
		}
		return cmp.Compare(a.StationID, b.StationID)
	})
	return out
}
