package observability

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/observability/metrics"
)

func TestEndpointServesMetrics(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	m.Visits.RecordQuery(metrics.ModeReport, 42, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	e := NewEndpoint("127.0.0.1:0", m)
	require.NoError(t, e.Start(ctx, &wg))

	resp, err := http.Get("http://" + e.Addr() + "/metrics") //nolint:noctx // test
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `visits_recordings_fetched_total{mode="report"} 42`)
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	wg.Wait()
}

func TestNewMetricsIndependentRegistries(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			m, err := NewMetrics()
			assert.NoError(t, err)
			assert.NotNil(t, m.Visits)
			assert.NotNil(t, m.Datastore)
		})
	}
	wg.Wait()
}

func TestEndpointStartTwice(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	e := NewEndpoint("127.0.0.1:0", m)
	require.NoError(t, e.Start(ctx, &wg))

	err = e.Start(ctx, &wg)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))

	cancel()
	wg.Wait()
}

func TestEndpointBadListenAddress(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	var wg sync.WaitGroup
	err = NewEndpoint("127.0.0.1:notaport", m).Start(context.Background(), &wg)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
