package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/errors"
)

func TestVisitMetricsRecording(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewVisitMetrics(reg)
	require.NoError(t, err)

	m.RecordQuery(ModeReport, 120, 250*time.Millisecond)
	m.RecordVisits(ModeReport, 7, 0)
	m.RecordVisits(ModeMonitoring, 3, 2)
	m.RecordSplit(2)
	m.RecordSplit(0)
	m.RecordError(ModeLive, errors.Newf("page too large").Category(errors.CategoryLimit).Build())

	assert.InDelta(t, 120, testutil.ToFloat64(m.recordingsFetchedTotal.WithLabelValues(ModeReport)), 1e-9)
	assert.InDelta(t, 7, testutil.ToFloat64(m.visitsTotal.WithLabelValues(ModeReport, StateComplete)), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.visitsTotal.WithLabelValues(ModeMonitoring, StateIncomplete)), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.visitsSplitTotal), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.queryErrorsTotal.WithLabelValues(ModeLive, string(errors.CategoryLimit))), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(m.queryDuration))
}

func TestVisitMetricsDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewVisitMetrics(reg)
	require.NoError(t, err)
	_, err = NewVisitMetrics(reg)
	require.Error(t, err)
}

func TestNilVisitMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *VisitMetrics
	assert.NotPanics(t, func() {
		m.RecordQuery(ModeLive, 1, time.Second)
		m.RecordVisits(ModeLive, 1, 1)
		m.RecordSplit(3)
		m.RecordError(ModeLive, errors.NewStd("boom"))
	})
}
