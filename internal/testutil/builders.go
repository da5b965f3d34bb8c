// Package testutil provides shared test helpers for the visit packages.
//
// Key components:
//   - RecordingBuilder: fluent API for tagged recordings with sensible defaults
//   - SliceSource and EventList: in-memory recording and audio-bait sources
//   - Logger: a logger that discards output
//
//nolint:gosec // Test utilities use int->uint for test IDs
package testutil

import (
	"fmt"
	"io"
	"time"

	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/recording"
)

// BaseTime is a fixed night-time instant tests build their timelines from.
var BaseTime = time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)

// RecordingBuilder provides a fluent API for building test recordings.
type RecordingBuilder struct {
	rec     recording.Recording
	trackID uint
}

// NewRecordingBuilder creates a builder for a one-minute recording on
// device 1 starting at BaseTime.
func NewRecordingBuilder(id uint) *RecordingBuilder {
	return &RecordingBuilder{
		rec: recording.Recording{
			ID:         id,
			DeviceID:   1,
			DeviceName: "cam-1",
			GroupName:  "bush-trail",
			Start:      BaseTime,
			Duration:   time.Minute,
		},
		trackID: id * 100,
	}
}

// WithDevice sets the device.
func (b *RecordingBuilder) WithDevice(id uint) *RecordingBuilder {
	b.rec.DeviceID = id
	b.rec.DeviceName = fmt.Sprintf("cam-%d", id)
	return b
}

// WithStation sets the station.
func (b *RecordingBuilder) WithStation(id uint) *RecordingBuilder {
	b.rec.StationID = id
	b.rec.StationName = fmt.Sprintf("station-%d", id)
	return b
}

// WithGroup sets the group name.
func (b *RecordingBuilder) WithGroup(name string) *RecordingBuilder {
	b.rec.GroupName = name
	return b
}

// At sets the start time relative to BaseTime.
func (b *RecordingBuilder) At(offset time.Duration) *RecordingBuilder {
	b.rec.Start = BaseTime.Add(offset)
	return b
}

// WithTrack appends a track spanning [start, end] seconds into the recording.
func (b *RecordingBuilder) WithTrack(start, end float64, tags ...recording.TrackTag) *RecordingBuilder {
	b.trackID++
	b.rec.Tracks = append(b.rec.Tracks, recording.Track{
		ID:          b.trackID,
		StartOffset: recording.Offset(start),
		EndOffset:   recording.Offset(end),
		Tags:        tags,
	})
	return b
}

// Build returns the recording.
func (b *RecordingBuilder) Build() recording.Recording {
	return b.rec
}

// ManualTag returns a human tag.
func ManualTag(what string) recording.TrackTag {
	return recording.TrackTag{What: what, Confidence: 1, UserID: 1}
}

// ManualTagBy returns a human tag from a specific user.
func ManualTagBy(what string, userID uint) recording.TrackTag {
	return recording.TrackTag{What: what, Confidence: 1, UserID: userID}
}

// MasterTag returns the classifier's master tag.
func MasterTag(what string, confidence float64) recording.TrackTag {
	return recording.TrackTag{What: what, Confidence: confidence, Automatic: true, Model: recording.MasterModel}
}

// Logger returns a logger that discards everything.
func Logger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}
