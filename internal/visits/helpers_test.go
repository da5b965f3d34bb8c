package visits

import (
	"fmt"
	"io"
	"time"

	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/recording"
)

var baseTime = time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)

func manualTag(what string, confidence float64) recording.TrackTag {
	return recording.TrackTag{What: what, Confidence: confidence, UserID: 7}
}

func masterTag(what string, confidence float64) recording.TrackTag {
	return recording.TrackTag{What: what, Confidence: confidence, Automatic: true, Model: recording.MasterModel}
}

func testTrack(id uint, start, end float64, tags ...recording.TrackTag) recording.Track {
	return recording.Track{
		ID:          id,
		StartOffset: recording.Offset(start),
		EndOffset:   recording.Offset(end),
		Tags:        tags,
	}
}

func testRecording(id, deviceID uint, at time.Duration, tracks ...recording.Track) recording.Recording {
	return recording.Recording{
		ID:         id,
		DeviceID:   deviceID,
		DeviceName: fmt.Sprintf("cam-%d", deviceID),
		GroupName:  "bush-trail",
		Start:      baseTime.Add(at),
		Duration:   time.Minute,
		Tracks:     tracks,
	}
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func newTestAggregator(groupBy GroupBy) *Aggregator {
	return NewAggregator(Options{GroupBy: groupBy, Logger: quietLogger()})
}

func labels(vs []Visit) []string {
	out := make([]string, len(vs))
	for i := range vs {
		out[i] = vs[i].What
	}
	return out
}
