package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/recording"
	"github.com/tphakala/visits-go/internal/testutil"
	"github.com/tphakala/visits-go/internal/visits"
)

// aggregate builds one visit per device from recs and returns it with the
// recordings indexed by id.
func aggregate(t *testing.T, recs ...recording.Recording) ([]visits.Visit, map[uint]*recording.Recording) {
	t.Helper()
	agg := visits.NewAggregator(visits.Options{Logger: testutil.Logger()})
	byID := make(map[uint]*recording.Recording, len(recs))
	for i := range recs {
		require.NoError(t, agg.AddRecording(&recs[i], i))
		byID[recs[i].ID] = &recs[i]
	}
	agg.CompleteAll()
	return agg.Visits(), byID
}

func recordingIDs(v Visit) []uint {
	ids := make([]uint, len(v.Recordings))
	for i, r := range v.Recordings {
		ids[i] = r.ID
	}
	return ids
}

func TestSplitConservation(t *testing.T) {
	t.Parallel()

	rb := testutil.NewRecordingBuilder
	vs, byID := aggregate(t,
		rb(1).At(0).WithTrack(0, 10, testutil.ManualTagBy("possum", 1)).Build(),
		rb(2).At(time.Minute).WithTrack(0, 10, testutil.MasterTag("cat", 0.8)).Build(),
		rb(3).At(2*time.Minute).WithTrack(0, 10, testutil.ManualTagBy("cat", 2)).Build(),
	)
	require.Len(t, vs, 1)

	out := NewSplitter(visits.NewConsensus(nil)).Split(&vs[0], byID, visits.NewIDSequence(vs[0].ID))

	require.Len(t, out, 2)
	assert.Equal(t, "possum", out[0].Classification)
	assert.Equal(t, []uint{1, 2}, recordingIDs(out[0]))
	assert.Equal(t, "cat", out[1].Classification)
	assert.Equal(t, []uint{2, 3}, recordingIDs(out[1]))
	for _, v := range out {
		assert.True(t, v.ClassFromUserTag)
		assert.NotEqual(t, vs[0].ID, v.ID, "split visits get fresh ids")
	}
	assert.NotEqual(t, out[0].ID, out[1].ID)

	assert.Equal(t, testutil.BaseTime, out[0].Start)
	assert.Equal(t, testutil.BaseTime.Add(time.Minute+10*time.Second), out[0].End)
	assert.Equal(t, testutil.BaseTime.Add(time.Minute), out[1].Start)
}

func TestSplitSingleHumanLabel(t *testing.T) {
	t.Parallel()

	rb := testutil.NewRecordingBuilder
	vs, byID := aggregate(t,
		rb(1).At(0).WithTrack(0, 10, testutil.ManualTag("rat"), testutil.MasterTag("mouse", 0.9)).Build(),
		rb(2).At(time.Minute).WithTrack(0, 10, testutil.ManualTag(recording.LabelFalsePositive)).Build(),
		rb(3).At(2*time.Minute).WithTrack(0, 10, testutil.ManualTag(recording.LabelPoorTracking)).Build(),
	)
	require.Len(t, vs, 1)

	out := NewSplitter(visits.NewConsensus(nil)).Split(&vs[0], byID, visits.NewIDSequence(vs[0].ID))

	require.Len(t, out, 1)
	assert.Equal(t, vs[0].ID, out[0].ID)
	assert.Equal(t, "rat", out[0].Classification)
	assert.True(t, out[0].ClassFromUserTag)
	assert.Equal(t, "mouse", out[0].ClassificationAI)
	require.Len(t, out[0].Recordings, 3)
	assert.Equal(t, []string{recording.LabelFalsePositive}, out[0].Recordings[1].ManualLabels)
	assert.Empty(t, out[0].Recordings[2].ManualLabels, "tracking-quality tags are not opinions")

	track := out[0].Recordings[0].Tracks[0]
	assert.Equal(t, "rat", track.Tag)
	assert.Equal(t, "mouse", track.AITag)
	assert.True(t, track.IsHuman)
	assert.InDelta(t, 10.0, track.End, 1e-9)
}

func TestSplitFalsePositiveOnly(t *testing.T) {
	t.Parallel()

	rb := testutil.NewRecordingBuilder
	vs, byID := aggregate(t,
		rb(1).At(0).WithTrack(0, 10, testutil.ManualTag(recording.LabelFalsePositive), testutil.MasterTag("possum", 0.6)).Build(),
	)

	out := NewSplitter(visits.NewConsensus(nil)).Split(&vs[0], byID, visits.NewIDSequence(vs[0].ID))

	require.Len(t, out, 1)
	assert.Equal(t, recording.LabelFalsePositive, out[0].Classification)
	assert.True(t, out[0].ClassFromUserTag)
}

func TestClassifierConsensus(t *testing.T) {
	t.Parallel()

	rb := testutil.NewRecordingBuilder

	tests := []struct {
		name string
		recs []recording.Recording
		want string
	}{
		{
			name: "animal preferred over more false triggers",
			recs: []recording.Recording{
				rb(1).At(0).WithTrack(0, 5, testutil.MasterTag(recording.LabelFalsePositive, 0.9)).
					WithTrack(5, 8, testutil.MasterTag(recording.LabelFalsePositive, 0.9)).Build(),
				rb(2).At(time.Minute).WithTrack(0, 5, testutil.MasterTag("hedgehog", 0.4)).Build(),
			},
			want: "hedgehog",
		},
		{
			name: "false trigger when nothing else",
			recs: []recording.Recording{
				rb(1).At(0).WithTrack(0, 5, testutil.MasterTag(recording.LabelFalsePositive, 0.9)).Build(),
			},
			want: recording.LabelFalsePositive,
		},
		{
			name: "most tracks wins",
			recs: []recording.Recording{
				rb(1).At(0).WithTrack(0, 5, testutil.MasterTag("rat", 0.5)).
					WithTrack(5, 8, testutil.MasterTag("rat", 0.5)).
					WithTrack(8, 9, testutil.MasterTag("mouse", 0.99)).Build(),
			},
			want: "rat",
		},
		{
			name: "confidence breaks count ties",
			recs: []recording.Recording{
				rb(1).At(0).WithTrack(0, 5, testutil.MasterTag("rat", 0.5)).
					WithTrack(8, 9, testutil.MasterTag("mouse", 0.99)).Build(),
			},
			want: "mouse",
		},
		{
			name: "non-master automatic tag is used when no master exists",
			recs: []recording.Recording{
				rb(1).At(0).WithTrack(0, 5, recording.TrackTag{What: "deer", Automatic: true, Model: "resnet"}).Build(),
			},
			want: "deer",
		},
		{
			name: "untagged",
			recs: []recording.Recording{rb(1).At(0).WithTrack(0, 5).Build()},
			want: recording.LabelNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			vs, byID := aggregate(t, tt.recs...)
			require.Len(t, vs, 1)
			out := NewSplitter(visits.NewConsensus(nil)).Split(&vs[0], byID, visits.NewIDSequence(vs[0].ID))
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Classification)
			assert.False(t, out[0].ClassFromUserTag)
		})
	}
}

func TestSplitSharesOnlyRecordingsWithoutOpinions(t *testing.T) {
	t.Parallel()

	rb := testutil.NewRecordingBuilder
	vs, byID := aggregate(t,
		rb(1).At(0).WithTrack(0, 10, testutil.ManualTagBy("possum", 1), testutil.MasterTag("possum", 0.9)).Build(),
		rb(2).At(time.Minute).WithTrack(0, 10, testutil.MasterTag("rat", 0.8)).Build(),
		rb(3).At(2*time.Minute).WithTrack(0, 10, testutil.ManualTagBy("cat", 2), testutil.MasterTag("cat", 0.95)).Build(),
		rb(4).At(3*time.Minute).WithTrack(0, 10, testutil.ManualTagBy(recording.LabelFalsePositive, 3)).Build(),
	)
	require.Len(t, vs, 1)

	out := NewSplitter(visits.NewConsensus(nil)).Split(&vs[0], byID, visits.NewIDSequence(vs[0].ID))

	require.Len(t, out, 2)
	assert.Equal(t, "possum", out[0].Classification)
	assert.Equal(t, []uint{1, 2}, recordingIDs(out[0]), "a false-positive opinion is not shared")
	assert.Equal(t, "cat", out[1].Classification)
	assert.Equal(t, []uint{2, 3}, recordingIDs(out[1]))

	// Classifier labels are ranked over each split visit's own tracks.
	assert.Equal(t, "possum", out[0].ClassificationAI)
	assert.Equal(t, "cat", out[1].ClassificationAI)
}
