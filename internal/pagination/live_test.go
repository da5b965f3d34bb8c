package pagination

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/observability/metrics"
	"github.com/tphakala/visits-go/internal/testutil"
	"github.com/tphakala/visits-go/internal/visits"
)

func TestLivePagesCoverRange(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewVisitMetrics(reg)
	require.NoError(t, err)

	c := NewCollector(testutil.NewSliceSource(nightStream()...), Config{
		Aggregation: visits.Options{Logger: testutil.Logger()},
		Metrics:     m,
	})
	q := visits.Query{From: testutil.BaseTime, Until: testutil.BaseTime.Add(200 * time.Minute)}
	ctx := context.Background()

	first, err := c.Live(ctx, q, 2, 0)
	require.NoError(t, err)
	assert.Len(t, first.Visits, 4)
	assert.Equal(t, 7, first.NextOffset)
	assert.True(t, first.More)

	second, err := c.Live(ctx, q, 2, first.NextOffset)
	require.NoError(t, err)
	assert.Len(t, second.Visits, 2)
	assert.Empty(t, second.Incomplete)
	assert.False(t, second.More)

	var whats []string
	for _, v := range append(first.Visits, second.Visits...) {
		whats = append(whats, v.What)
	}
	assert.ElementsMatch(t, []string{"cat", "possum", "rat", "hedgehog", "stoat", "mouse"}, whats)
}

func TestLiveOpenRangeKeepsPolling(t *testing.T) {
	t.Parallel()

	c := newTestCollector(testutil.NewSliceSource(nightStream()...), 0, 0)
	page, err := c.Live(context.Background(), visits.Query{From: testutil.BaseTime}, 10, 0)
	require.NoError(t, err)

	assert.Len(t, page.Visits, 5, "visits older than the newest recording by a full window are done")
	require.Len(t, page.Incomplete, 1, "the latest visit may still grow")
	assert.Equal(t, "mouse", page.Incomplete[0].What)
	assert.True(t, page.More)
	assert.Equal(t, 9, page.NextOffset)
}

func TestLiveRejectsBadPaging(t *testing.T) {
	t.Parallel()

	c := newTestCollector(testutil.NewSliceSource(), 0, 0)
	for _, tc := range []struct{ limit, offset int }{{0, 0}, {5, -1}} {
		_, err := c.Live(context.Background(), visits.Query{}, tc.limit, tc.offset)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestLiveMakesProgressPastLongVisit(t *testing.T) {
	t.Parallel()

	c := newTestCollector(testutil.NewSliceSource(longVisitStream()...), 0, 0)
	page, err := c.Live(context.Background(), visits.Query{From: testutil.BaseTime}, 1, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, page.Visits)
	assert.Greater(t, page.NextOffset, 0)
	assert.ElementsMatch(t, []string{"possum", "cat"}, labelsOf(page.Visits))
}

func TestLiveClosedRangeCompletesLastVisit(t *testing.T) {
	t.Parallel()

	c := newTestCollector(testutil.NewSliceSource(nightStream()...), 0, 0)
	// The last recording is at 100 minutes, so its visit ends inside one
	// window of the range end.
	q := visits.Query{From: testutil.BaseTime, Until: testutil.BaseTime.Add(105 * time.Minute)}
	ctx := context.Background()

	page, err := c.Live(ctx, q, 10, 0)
	require.NoError(t, err)
	assert.False(t, page.More)
	assert.Empty(t, page.Incomplete)
	assert.Equal(t, 10, page.NextOffset)
	require.Len(t, page.Visits, 6)
	assert.Equal(t, "mouse", page.Visits[5].What)

	tail, err := c.Live(ctx, q, 2, 7)
	require.NoError(t, err)
	assert.False(t, tail.More)
	assert.Equal(t, []string{"stoat", "mouse"}, labelsOf(tail.Visits))
}
