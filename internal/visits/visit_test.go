package visits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/recording"
)

func TestVisitAcceptsIsAnchoredOnEnd(t *testing.T) {
	t.Parallel()

	rec := testRecording(1, 1, 0)
	v := newVisit(1, Key{DeviceID: 1}, &rec, 0, EventMaxTime)
	v.AddEvent(VisitEvent{Start: baseTime, End: baseTime.Add(30 * time.Minute)})
	end := v.End

	assert.True(t, v.Accepts(end.Add(EventMaxTime)), "gap equal to the window is accepted")
	assert.False(t, v.Accepts(end.Add(EventMaxTime+time.Second)))
	assert.True(t, v.Accepts(end.Add(-5*time.Minute)), "start long ago does not close a long visit")
}

func TestVisitAddEventWidensSpan(t *testing.T) {
	t.Parallel()

	rec := testRecording(1, 1, 0)
	v := newVisit(1, Key{DeviceID: 1}, &rec, 0, EventMaxTime)
	v.AddEvent(VisitEvent{RecordingID: 1, Start: baseTime.Add(time.Minute), End: baseTime.Add(2 * time.Minute)})
	v.AddEvent(VisitEvent{RecordingID: 1, Start: baseTime, End: baseTime.Add(90 * time.Second)})
	v.AddEvent(VisitEvent{RecordingID: 2, Start: baseTime.Add(3 * time.Minute), End: baseTime.Add(4 * time.Minute)})

	assert.Equal(t, baseTime, v.Start)
	assert.Equal(t, baseTime.Add(4*time.Minute), v.End)
	assert.Equal(t, []uint{1, 2}, v.RecordingIDs)
	assert.Equal(t, 4*time.Minute, v.Duration())
}

func TestVisitMarkCompleteIsIdempotent(t *testing.T) {
	t.Parallel()

	rec := testRecording(1, 1, 0)
	v := newVisit(1, Key{DeviceID: 1}, &rec, 0, EventMaxTime)
	v.AddEvent(VisitEvent{TrackID: 1, Start: baseTime, End: baseTime, Tag: &CanonicalTag{What: "cat"}})
	v.AddEvent(VisitEvent{TrackID: 2, Start: baseTime, End: baseTime})
	v.AddEvent(VisitEvent{TrackID: 3, Start: baseTime, End: baseTime, Tag: &CanonicalTag{What: "possum", Automatic: true}})

	v.MarkComplete()
	once := v.Clone()
	v.MarkComplete()

	assert.True(t, v.Complete)
	assert.Equal(t, "cat", v.What)
	assert.Equal(t, once.What, v.What)
	assert.Equal(t, once.Events, v.Events)
	for _, ev := range v.Events {
		assert.Equal(t, "cat", ev.AssumedTag)
		assert.True(t, ev.AssumedIsHuman)
	}
}

func TestVisitWithoutTagsIsUnidentified(t *testing.T) {
	t.Parallel()

	rec := testRecording(1, 1, 0)
	v := newVisit(1, Key{DeviceID: 1}, &rec, 0, EventMaxTime)
	v.AddEvent(VisitEvent{Start: baseTime, End: baseTime})
	v.MarkComplete()

	assert.Equal(t, recording.LabelUnidentified, v.What)
	assert.Nil(t, v.Tag)
	assert.False(t, v.Events[0].AssumedIsHuman)
}

func TestVisitCloneSharesNothing(t *testing.T) {
	t.Parallel()

	rec := testRecording(1, 1, 0)
	v := newVisit(1, Key{DeviceID: 1}, &rec, 0, EventMaxTime)
	v.AddEvent(VisitEvent{RecordingID: 1, Start: baseTime, End: baseTime, Tag: &CanonicalTag{What: "rat"}})

	c := v.Clone()
	c.Events[0].Tag.What = "mouse"
	c.RecordingIDs[0] = 99
	c.AddEvent(VisitEvent{RecordingID: 2, Start: baseTime, End: baseTime, Tag: &CanonicalTag{What: "mouse"}})

	require.Len(t, v.Events, 1)
	assert.Equal(t, "rat", v.Events[0].Tag.What)
	assert.Equal(t, []uint{1}, v.RecordingIDs)
	assert.Equal(t, "rat", v.What)
}
