package visits

import (
	"slices"
	"time"

	"github.com/tphakala/visits-go/internal/recording"
)

// AudioBaitCorrelator attaches audio-bait playback events to visits.
type AudioBaitCorrelator struct {
	// Interval is how far an event may be from the visit start.
	Interval time.Duration
	// Location decides calendar days for the same-day flag.
	Location *time.Location
}

// NewAudioBaitCorrelator returns a correlator with the default interval.
func NewAudioBaitCorrelator(loc *time.Location) *AudioBaitCorrelator {
	if loc == nil {
		loc = time.UTC
	}
	return &AudioBaitCorrelator{Interval: AudioBaitInterval, Location: loc}
}

// Correlate flags v when bait played on the same day and attaches every
// event close to the visit start. Repeated calls do not duplicate events.
func (c *AudioBaitCorrelator) Correlate(v *Visit, events []recording.Event) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	vy, vm, vd := v.Start.In(loc).Date()

	for i := range events {
		e := &events[i]
		if e.Type != "" && e.Type != recording.EventTypeAudioBait {
			continue
		}
		if v.DeviceID != 0 && e.DeviceID != 0 && e.DeviceID != v.DeviceID {
			continue
		}

		ey, em, ed := e.DateTime.In(loc).Date()
		if ey == vy && em == vm && ed == vd {
			v.AudioBaitDay = true
		}

		gap := e.DateTime.Sub(v.Start)
		if gap < 0 {
			gap = -gap
		}
		if gap > c.Interval {
			continue
		}
		if slices.ContainsFunc(v.AudioBaitEvents, func(a recording.Event) bool { return a.ID == e.ID }) {
			continue
		}
		v.AudioBaitEvents = append(v.AudioBaitEvents, *e)
		v.AudioBaitVisit = true
	}
}

// EventWindow returns the instants an event source must cover so every
// visit in vs can be correlated: from the start of the earliest visit's day
// to the end of the latest visit's day, widened by the interval.
func (c *AudioBaitCorrelator) EventWindow(vs []Visit) (from, until time.Time) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	for i := range vs {
		if i == 0 || vs[i].Start.Before(from) {
			from = vs[i].Start
		}
		if i == 0 || vs[i].Start.After(until) {
			until = vs[i].Start
		}
	}
	if len(vs) == 0 {
		return from, until
	}
	y, m, d := from.In(loc).Date()
	from = time.Date(y, m, d, 0, 0, 0, 0, loc).Add(-c.Interval)
	y, m, d = until.In(loc).Date()
	until = time.Date(y, m, d+1, 0, 0, 0, 0, loc).Add(c.Interval)
	return from, until
}
