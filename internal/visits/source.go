package visits

import (
	"context"
	"time"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/recording"
)

// Query filters the recording stream.
type Query struct {
	// From and Until bound recording start times as [From, Until).
	// A zero value leaves that side open.
	From  time.Time
	Until time.Time

	GroupName  string
	DeviceIDs  []uint
	StationIDs []uint
}

// RecordingSource streams recordings ordered by ascending start time, then
// ascending id. Offsets index into that ordering.
type RecordingSource interface {
	FetchRecordings(ctx context.Context, q Query, offset, limit int) ([]recording.Recording, error)
}

// EventSource returns audio-bait events for a device between two instants.
type EventSource interface {
	AudioBaitEvents(ctx context.Context, deviceID uint, from, until time.Time) ([]recording.Event, error)
}

var (
	// ErrOutOfOrder is returned when a recording arrives earlier than one
	// already added for the same key.
	ErrOutOfOrder = errors.NewStd("recording out of chronological order")

	// ErrTooManyRecordings is returned when a query would exceed the
	// per-query recording ceiling.
	ErrTooManyRecordings = errors.NewStd("too many recordings to compute visits, reduce your page size")
)
