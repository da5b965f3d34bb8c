package monitoring

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/observability/metrics"
	"github.com/tphakala/visits-go/internal/pagination"
	"github.com/tphakala/visits-go/internal/recording"
	"github.com/tphakala/visits-go/internal/taxonomy"
	"github.com/tphakala/visits-go/internal/visits"
)

// Options configures a Service.
type Options struct {
	PageDuration time.Duration
	Taxonomy     *taxonomy.Taxonomy
	Logger       logger.Logger
	Metrics      *metrics.VisitMetrics
}

// Params selects one monitoring page.
type Params struct {
	// Filter narrows the recordings; its time bounds are ignored.
	Filter      visits.Query
	SearchFrom  time.Time
	SearchUntil time.Time
	Page        int
}

// Service serves monitoring pages.
type Service struct {
	collector    *pagination.Collector
	splitter     *Splitter
	pageDuration time.Duration
	log          logger.Logger
	metrics      *metrics.VisitMetrics
}

// NewService returns a monitoring service reading through collector.
func NewService(collector *pagination.Collector, opts Options) *Service {
	if opts.PageDuration <= 0 {
		opts.PageDuration = pagination.DefaultPageDuration
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global().Module("monitoring")
	}
	return &Service{
		collector:    collector,
		splitter:     NewSplitter(visits.NewConsensus(opts.Taxonomy)),
		pageDuration: opts.PageDuration,
		log:          log,
		metrics:      opts.Metrics,
	}
}

// Page computes the visits of one monitoring page.
func (s *Service) Page(ctx context.Context, p Params) (*Page, error) {
	started := time.Now()
	page, err := s.page(ctx, p)
	if err != nil {
		s.metrics.RecordError(metrics.ModeMonitoring, err)
		return nil, err
	}
	s.metrics.RecordQuery(metrics.ModeMonitoring, page.Fetched, time.Since(started))
	return page, nil
}

func (s *Service) page(ctx context.Context, p Params) (*Page, error) {
	criteria, err := pagination.CalculateCriteria(p.SearchFrom, p.SearchUntil, p.Page, s.pageDuration)
	if err != nil {
		return nil, err
	}

	window := s.collector.EventMaxTime()
	q := p.Filter
	q.From, q.Until = criteria.FetchWindow(window)

	res, err := s.collector.Collect(ctx, pagination.Request{Query: q})
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*recording.Recording, len(res.Recordings))
	for i := range res.Recordings {
		byID[res.Recordings[i].ID] = &res.Recordings[i]
	}
	var maxID uint64
	for i := range res.Visits {
		maxID = max(maxID, res.Visits[i].ID)
	}
	seq := visits.NewIDSequence(maxID)
	cutoff := criteria.IncompleteCutoff(window)

	out := &Page{Criteria: criteria, Fetched: res.Fetched}
	if !criteria.IsLastPage() {
		out.NextPage = criteria.Page + 1
	}
	splits, complete, incomplete := 0, 0, 0
	for i := range res.Visits {
		v := &res.Visits[i]
		keep, flagged := criteria.Placement(v, window)
		if !keep {
			continue
		}
		parts := s.splitter.Split(v, byID, seq)
		if len(parts) > 1 {
			splits += len(parts)
		}
		for _, mv := range parts {
			mv.Incomplete = flagged || mv.End.After(cutoff)
			if mv.Incomplete {
				incomplete++
			} else {
				complete++
			}
			out.Visits = append(out.Visits, mv)
		}
	}

	slices.SortStableFunc(out.Visits, func(a, b Visit) int {
		if c := b.Start.Compare(a.Start); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	s.metrics.RecordSplit(splits)
	s.metrics.RecordVisits(metrics.ModeMonitoring, complete, incomplete)
	s.log.WithContext(ctx).Info("monitoring page computed",
		logger.Int("page", criteria.Page),
		logger.Int("pages", criteria.PagesEstimate),
		logger.Int("visits", len(out.Visits)),
		logger.Int("recordings", res.Fetched))

	return out, nil
}
