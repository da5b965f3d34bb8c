package visits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/recording"
)

func addAll(t *testing.T, agg *Aggregator, recs ...recording.Recording) {
	t.Helper()
	for i := range recs {
		require.NoError(t, agg.AddRecording(&recs[i], i))
	}
}

func TestEndToEndVisitGrouping(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByDevice)
	addAll(t, agg,
		testRecording(1, 1, 0, recording.Track{ID: 1, Tags: []recording.TrackTag{manualTag("cat", 1)}}),
		testRecording(2, 1, 300*time.Second, recording.Track{ID: 2}),
		testRecording(3, 1, 1200*time.Second, recording.Track{ID: 3, Tags: []recording.TrackTag{manualTag("rat", 1)}}),
	)
	agg.CompleteAll()

	vs := agg.Visits()
	require.Len(t, vs, 2)
	assert.Equal(t, []string{"cat", "rat"}, labels(vs))
	assert.Equal(t, []uint{1, 2}, vs[0].RecordingIDs)
	assert.Equal(t, []uint{3}, vs[1].RecordingIDs)
	assert.Equal(t, "cat", vs[0].Events[1].AssumedTag, "untagged event takes the visit consensus")
	assert.Equal(t, 3, agg.EventCount())
}

func TestWindowingBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		gap        time.Duration
		wantVisits int
	}{
		{"gap inside window", 9 * time.Minute, 1},
		{"gap equal to window", EventMaxTime, 1},
		{"gap just past window", EventMaxTime + time.Second, 2},
		{"gap far past window", time.Hour, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			agg := newTestAggregator(GroupByDevice)
			first := testRecording(1, 1, 0, testTrack(1, 0, 20))
			// R2 starts gap after R1's last track ends.
			second := testRecording(2, 1, 20*time.Second+tt.gap, testTrack(2, 0, 5))
			addAll(t, agg, first, second)
			assert.Equal(t, tt.wantVisits, agg.VisitCount())
		})
	}
}

func TestEarliestTrackDecidesMembership(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByDevice)
	addAll(t, agg,
		testRecording(1, 1, 0, testTrack(1, 0, 10)),
		// earliest track is inside the window, the later one is not
		testRecording(2, 1, 9*time.Minute, testTrack(3, 600, 610), testTrack(2, 30, 40)),
	)

	vs := agg.Visits()
	require.Len(t, vs, 1)
	require.Len(t, vs[0].Events, 3)
	assert.Equal(t, uint(2), vs[0].Events[1].TrackID, "events are appended earliest first")
	assert.Equal(t, uint(3), vs[0].Events[2].TrackID)
	assert.Equal(t, baseTime.Add(9*time.Minute+610*time.Second), vs[0].End)
	assert.Equal(t, 1, vs[0].QueryOffset)
	assert.Equal(t, 0, vs[0].FirstOffset)
}

func TestRecordingWithoutTracksIsIgnored(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByDevice)
	addAll(t, agg,
		testRecording(1, 1, 0, testTrack(1, 0, 5)),
		testRecording(2, 1, 5*time.Minute),
		testRecording(3, 1, 20*time.Minute),
	)

	assert.Equal(t, 1, agg.VisitCount())
	vs := agg.Visits()
	assert.Equal(t, []uint{1}, vs[0].RecordingIDs)
	assert.Equal(t, 0, vs[0].QueryOffset)
}

func TestOutOfOrderRecordingIsRejected(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByDevice)
	later := testRecording(1, 1, 10*time.Minute, testTrack(1, 0, 5))
	earlier := testRecording(2, 1, 5*time.Minute, testTrack(2, 0, 5))
	otherDevice := testRecording(3, 2, time.Minute, testTrack(3, 0, 5))

	require.NoError(t, agg.AddRecording(&later, 0))
	err := agg.AddRecording(&earlier, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	require.NoError(t, agg.AddRecording(&otherDevice, 2), "ordering is checked per key")
}

func TestStationGrouping(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByStation)
	a := testRecording(1, 1, 0, testTrack(1, 0, 5))
	a.StationID = 40
	b := testRecording(2, 2, 2*time.Minute, testTrack(2, 0, 5))
	b.StationID = 40
	c := testRecording(3, 3, 3*time.Minute, testTrack(3, 0, 5))
	addAll(t, agg, a, b, c)

	vs := agg.Visits()
	require.Len(t, vs, 2)
	assert.Equal(t, Key{StationID: 40}, vs[0].Key)
	assert.Equal(t, []uint{1, 2}, vs[0].RecordingIDs)
	assert.Equal(t, Key{DeviceID: 3}, vs[1].Key, "recording without a station falls back to its device")
}

func TestCompleteBefore(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByDevice)
	addAll(t, agg, testRecording(1, 1, 0, testTrack(1, 0, 10)))
	end := baseTime.Add(10 * time.Second)

	assert.Zero(t, agg.CompleteBefore(end.Add(EventMaxTime)), "a recording at exactly end+window could still join")
	assert.Zero(t, agg.CompletedCount())
	assert.Equal(t, 1, agg.CompleteBefore(end.Add(EventMaxTime+time.Nanosecond)))
	assert.Equal(t, 1, agg.CompletedCount())
	assert.Zero(t, agg.CompleteAll())

	addAll(t, agg, testRecording(2, 1, 11*time.Minute, testTrack(2, 0, 5)))
	assert.Equal(t, 2, agg.VisitCount(), "a completed visit is never reopened")
}

func TestVisitIDsArePerAggregator(t *testing.T) {
	t.Parallel()

	for range 2 {
		agg := newTestAggregator(GroupByDevice)
		addAll(t, agg,
			testRecording(1, 1, 0, testTrack(1, 0, 5)),
			testRecording(2, 2, time.Minute, testTrack(2, 0, 5)),
		)
		vs := agg.Visits()
		require.Len(t, vs, 2)
		assert.Equal(t, uint64(1), vs[0].ID)
		assert.Equal(t, uint64(2), vs[1].ID)
	}
}

func TestResumeOffset(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByDevice)
	addAll(t, agg,
		testRecording(1, 1, 0, testTrack(1, 0, 5)),              // 0: device 1, visit A
		testRecording(2, 2, time.Minute, testTrack(2, 0, 5)),    // 1: device 2, visit B
		testRecording(3, 1, 2*time.Minute, testTrack(3, 0, 5)),  // 2: extends A
		testRecording(4, 1, 30*time.Minute, testTrack(4, 0, 5)), // 3: device 1, visit C closes A
	)

	off, ok := agg.EarliestIncompleteOffset()
	require.True(t, ok)
	assert.Equal(t, 1, off, "B is the earliest open visit")

	// A is complete but was last touched at offset 2, after B opened; it
	// must be rebuilt too, so the resume point moves back to A's start.
	assert.Equal(t, 0, agg.ResumeOffset(4))

	agg.CompleteAll()
	_, ok = agg.EarliestIncompleteOffset()
	assert.False(t, ok)
	assert.Equal(t, 4, agg.ResumeOffset(4))
}

func TestAnimalSummaries(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByDevice)
	addAll(t, agg,
		testRecording(1, 1, 0, testTrack(1, 0, 60, manualTag("possum", 1))),
		testRecording(2, 1, time.Hour, testTrack(2, 0, 30, manualTag("possum", 1))),
		testRecording(3, 1, 2*time.Hour, testTrack(3, 0, 10, manualTag("cat", 1))),
	)
	agg.CompleteAll()

	tracks := agg.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, 3, tracks[0].RecordingCount())

	summaries := tracks[0].AnimalSummaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "possum", summaries[0].What)
	assert.Equal(t, 2, summaries[0].Visits)
	assert.Equal(t, 90*time.Second, summaries[0].TotalDuration)
	assert.Equal(t, "cat", summaries[1].What)
}

func TestReportableCount(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(GroupByDevice)
	addAll(t, agg,
		testRecording(1, 1, 0, testTrack(1, 0, 5)),              // 0: device 1 opens A
		testRecording(2, 2, time.Minute, testTrack(2, 0, 5)),    // 1: device 2, visit B
		testRecording(3, 1, 8*time.Minute, testTrack(3, 0, 5)),  // 2: extends A
		testRecording(4, 1, 16*time.Minute, testTrack(4, 0, 5)), // 3: extends A
	)
	agg.CompleteBefore(baseTime.Add(16 * time.Minute))

	assert.Equal(t, 1, agg.CompletedCount(), "B is complete")
	assert.Equal(t, 0, agg.ReportableCount(4), "A still holds the resume point before B")

	agg.CompleteAll()
	assert.Equal(t, 2, agg.ReportableCount(4))
}
