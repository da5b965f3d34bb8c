package visits

import (
	"cmp"
	"slices"
	"time"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/recording"
)

// DeviceVisitTrack holds the visits of a single grouping key in
// chronological order. Only the last visit can still be open.
type DeviceVisitTrack struct {
	Key         Key
	DeviceID    uint
	DeviceName  string
	GroupName   string
	StationID   uint
	StationName string

	visits     []*Visit
	events     int
	recordings int
	lastStart  time.Time

	seq       *IDSequence
	consensus *Consensus
	window    time.Duration
}

func newDeviceVisitTrack(key Key, rec *recording.Recording, seq *IDSequence, consensus *Consensus, window time.Duration) *DeviceVisitTrack {
	return &DeviceVisitTrack{
		Key:         key,
		DeviceID:    rec.DeviceID,
		DeviceName:  rec.DeviceName,
		GroupName:   rec.GroupName,
		StationID:   rec.StationID,
		StationName: rec.StationName,
		seq:         seq,
		consensus:   consensus,
		window:      window,
	}
}

// AddRecording folds a recording's tracks into the visit sequence. Tracks
// are taken earliest first; the earliest track decides whether the
// recording extends the open visit or starts a new one. Recordings without
// tracks are ignored.
func (d *DeviceVisitTrack) AddRecording(rec *recording.Recording, offset int) error {
	if rec.Start.Before(d.lastStart) {
		return errors.New(ErrOutOfOrder).
			Component("visits").
			Category(errors.CategoryValidation).
			Context("key", d.Key.String()).
			Context("recording_id", rec.ID).
			Context("recording_start", rec.Start).
			Context("previous_start", d.lastStart).
			Build()
	}
	d.lastStart = rec.Start

	if len(rec.Tracks) == 0 {
		return nil
	}
	d.recordings++

	sorted := recording.SortTracksForVisit(rec.Tracks)
	earliestStart, _ := sorted[len(sorted)-1].TimeSpan(rec.Start)

	current := d.current()
	if current == nil || current.Complete || !current.Accepts(earliestStart) {
		if current != nil {
			current.MarkComplete()
		}
		current = newVisit(d.seq.Next(), d.Key, rec, offset, d.window)
		d.visits = append(d.visits, current)
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		track := &sorted[i]
		start, end := track.TimeSpan(rec.Start)
		ev := VisitEvent{
			RecordingID: rec.ID,
			TrackID:     track.ID,
			Start:       start,
			End:         end,
		}
		if tag, ok := d.consensus.CanonicalTagForTrack(track.Tags); ok {
			ev.Tag = &tag
		}
		current.AddEvent(ev)
		d.events++
	}
	current.QueryOffset = offset
	return nil
}

func (d *DeviceVisitTrack) current() *Visit {
	if len(d.visits) == 0 {
		return nil
	}
	return d.visits[len(d.visits)-1]
}

// CompleteBefore completes the open visit when no recording starting at or
// after t could extend it. It reports whether a visit was completed.
func (d *DeviceVisitTrack) CompleteBefore(t time.Time) bool {
	v := d.current()
	if v == nil || v.Complete {
		return false
	}
	if !v.End.Add(d.window).Before(t) {
		return false
	}
	v.MarkComplete()
	return true
}

// CompleteAll completes the open visit, if any.
func (d *DeviceVisitTrack) CompleteAll() bool {
	v := d.current()
	if v == nil || v.Complete {
		return false
	}
	v.MarkComplete()
	return true
}

// VisitCount returns the number of visits on this key.
func (d *DeviceVisitTrack) VisitCount() int { return len(d.visits) }

// EventCount returns the number of events on this key.
func (d *DeviceVisitTrack) EventCount() int { return d.events }

// RecordingCount returns the number of recordings with tracks on this key.
func (d *DeviceVisitTrack) RecordingCount() int { return d.recordings }

// Visits returns copies of the visits on this key.
func (d *DeviceVisitTrack) Visits() []Visit {
	out := make([]Visit, len(d.visits))
	for i, v := range d.visits {
		out[i] = v.Clone()
	}
	return out
}

// AnimalSummary aggregates the visits of one consensus label.
type AnimalSummary struct {
	What           string        `json:"what"`
	Visits         int           `json:"visits"`
	Events         int           `json:"events"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	TotalDuration  time.Duration `json:"totalDuration"`
	AudioBaitDays  int           `json:"audioBaitDays"`
	AudioBaitVisit int           `json:"audioBaitVisits"`
}

// AnimalSummaries groups this key's visits by label, busiest first.
func (d *DeviceVisitTrack) AnimalSummaries() []AnimalSummary {
	vs := make([]Visit, len(d.visits))
	for i, v := range d.visits {
		vs[i] = *v
	}
	return SummarizeAnimals(vs)
}

// SummarizeAnimals groups visits by label, ordered by visit count then label.
func SummarizeAnimals(vs []Visit) []AnimalSummary {
	byWhat := make(map[string]*AnimalSummary)
	for i := range vs {
		v := &vs[i]
		s, ok := byWhat[v.What]
		if !ok {
			s = &AnimalSummary{What: v.What, Start: v.Start, End: v.End}
			byWhat[v.What] = s
		}
		s.Visits++
		s.Events += len(v.Events)
		s.TotalDuration += v.Duration()
		if v.Start.Before(s.Start) {
			s.Start = v.Start
		}
		if v.End.After(s.End) {
			s.End = v.End
		}
		if v.AudioBaitDay {
			s.AudioBaitDays++
		}
		if v.AudioBaitVisit {
			s.AudioBaitVisit++
		}
	}

	out := make([]AnimalSummary, 0, len(byWhat))
	for _, s := range byWhat {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b AnimalSummary) int {
		if a.Visits != b.Visits {
			return cmp.Compare(b.Visits, a.Visits)
		}
		return cmp.Compare(a.What, b.What)
	})
	return out
}
