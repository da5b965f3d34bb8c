package pagination

import (
	"context"
	"time"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/observability/metrics"
	"github.com/tphakala/visits-go/internal/visits"
)

// LivePage is one page of an open-ended visit query.
type LivePage struct {
	// Visits are the completed visits of this page, ordered by start.
	Visits []visits.Visit `json:"visits"`
	// Incomplete visits may still grow and are returned again by the
	// follow-up query.
	Incomplete []visits.Visit `json:"incomplete"`
	NextOffset int            `json:"nextOffset"`
	Fetched    int            `json:"recordingsFetched"`
	// More is false once the range is closed and fully read. With an open
	// range it stays true while visits are open, so callers poll again later.
	More bool `json:"more"`
}

// Live returns at least limit completed visits starting at offset in the
// recording stream, or fewer when the stream runs out.
func (c *Collector) Live(ctx context.Context, q visits.Query, limit, offset int) (*LivePage, error) {
	started := time.Now()
	page, err := c.live(ctx, q, limit, offset)
	if err != nil {
		c.metrics.RecordError(metrics.ModeLive, err)
		return nil, err
	}
	c.metrics.RecordQuery(metrics.ModeLive, page.Fetched, time.Since(started))
	c.metrics.RecordVisits(metrics.ModeLive, len(page.Visits), len(page.Incomplete))
	return page, nil
}

func (c *Collector) live(ctx context.Context, q visits.Query, limit, offset int) (*LivePage, error) {
	if limit < 1 || offset < 0 {
		return nil, errors.Newf("limit must be positive and offset not negative").
			Component("pagination").
			Category(errors.CategoryValidation).
			Context("limit", limit).
			Context("offset", offset).
			Build()
	}

	// A closed range cannot return recordings that would extend a visit
	// once the stream is read to the end.
	res, err := c.Collect(ctx, Request{Query: q, Target: limit, Offset: offset, Final: !q.Until.IsZero()})
	if err != nil {
		return nil, err
	}
	return &LivePage{
		Visits:     res.Completed,
		Incomplete: res.Incomplete,
		NextOffset: res.NextOffset,
		Fetched:    res.Fetched,
		More:       !res.Exhausted || res.NextOffset < offset+res.Fetched,
	}, nil
}
