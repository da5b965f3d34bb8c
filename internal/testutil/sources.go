package testutil

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tphakala/visits-go/internal/recording"
	"github.com/tphakala/visits-go/internal/visits"
)

// SliceSource serves recordings from memory with the ordering and filtering
// a database source applies.
type SliceSource struct {
	mu    sync.Mutex
	recs  []recording.Recording
	calls int
}

// NewSliceSource returns a source over recs.
func NewSliceSource(recs ...recording.Recording) *SliceSource {
	sorted := slices.Clone(recs)
	slices.SortStableFunc(sorted, func(a, b recording.Recording) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return &SliceSource{recs: sorted}
}

// FetchRecordings implements visits.RecordingSource.
func (s *SliceSource) FetchRecordings(ctx context.Context, q visits.Query, offset, limit int) ([]recording.Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	var matched []recording.Recording
	for i := range s.recs {
		if Matches(&s.recs[i], q) {
			matched = append(matched, s.recs[i])
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := min(offset+limit, len(matched))
	return slices.Clone(matched[offset:end]), nil
}

// Calls returns how many fetches were made.
func (s *SliceSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Matches reports whether rec passes the query filters.
func Matches(rec *recording.Recording, q visits.Query) bool {
	if !q.From.IsZero() && rec.Start.Before(q.From) {
		return false
	}
	if !q.Until.IsZero() && !rec.Start.Before(q.Until) {
		return false
	}
	if q.GroupName != "" && rec.GroupName != q.GroupName {
		return false
	}
	if len(q.DeviceIDs) > 0 && !slices.Contains(q.DeviceIDs, rec.DeviceID) {
		return false
	}
	if len(q.StationIDs) > 0 && !slices.Contains(q.StationIDs, rec.StationID) {
		return false
	}
	return true
}

// EventList serves audio-bait events from memory.
type EventList struct {
	Events []recording.Event
}

// AudioBaitEvents implements visits.EventSource.
func (l *EventList) AudioBaitEvents(ctx context.Context, deviceID uint, from, until time.Time) ([]recording.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []recording.Event
	for _, e := range l.Events {
		if e.DeviceID == deviceID && !e.DateTime.Before(from) && e.DateTime.Before(until) {
			out = append(out, e)
		}
	}
	return out, nil
}
