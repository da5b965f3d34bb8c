// Package visits groups tagged recordings into animal visits: contiguous runs
// of tracks on one device or station, separated by less than the event
// window, each resolved to a single consensus identity.
package visits

import (
	"slices"
	"time"

	"github.com/tphakala/visits-go/internal/recording"
)

const (
	// EventMaxTime is the longest gap between the end of a visit and the
	// start of the next track for the track to extend that visit.
	EventMaxTime = 10 * time.Minute

	// AudioBaitInterval is how close an audio-bait playback must be to a
	// visit start to be attached to it.
	AudioBaitInterval = 10 * time.Minute
)

// VisitEvent is one track inside a visit.
type VisitEvent struct {
	RecordingID uint      `json:"recordingId"`
	TrackID     uint      `json:"trackId"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	// Tag is the track's canonical tag, nil when the track has none.
	Tag *CanonicalTag `json:"tag,omitempty"`
	// AssumedTag is stamped from the visit's consensus when the visit completes.
	AssumedTag     string `json:"assumedTag,omitempty"`
	AssumedIsHuman bool   `json:"assumedIsHuman"`
}

// Visit is a contiguous run of events on one device or station.
type Visit struct {
	ID          uint64 `json:"id"`
	Key         Key    `json:"-"`
	DeviceID    uint   `json:"deviceId"`
	DeviceName  string `json:"deviceName"`
	GroupName   string `json:"groupName"`
	StationID   uint   `json:"stationId,omitempty"`
	StationName string `json:"stationName,omitempty"`

	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Events []VisitEvent `json:"events"`

	// What is the consensus label. It is provisional until Complete is set.
	What string        `json:"what"`
	Tag  *CanonicalTag `json:"tag,omitempty"`

	Complete bool `json:"complete"`

	AudioBaitDay    bool              `json:"audioBaitDay"`
	AudioBaitVisit  bool              `json:"audioBaitVisit"`
	AudioBaitEvents []recording.Event `json:"audioBaitEvents,omitempty"`

	// FirstOffset is the stream offset of the recording that opened the
	// visit; QueryOffset is the offset of the last recording that touched it.
	FirstOffset int `json:"-"`
	QueryOffset int `json:"queryOffset"`

	RecordingIDs []uint `json:"recordingIds"`

	window time.Duration
	tally  TagTally
}

func newVisit(id uint64, key Key, rec *recording.Recording, offset int, window time.Duration) *Visit {
	return &Visit{
		ID:          id,
		Key:         key,
		DeviceID:    rec.DeviceID,
		DeviceName:  rec.DeviceName,
		GroupName:   rec.GroupName,
		StationID:   rec.StationID,
		StationName: rec.StationName,
		FirstOffset: offset,
		QueryOffset: offset,
		window:      window,
	}
}

// Accepts reports whether an event starting at eventStart falls inside the
// visit's window. The window is anchored on the visit's current end.
func (v *Visit) Accepts(eventStart time.Time) bool {
	if len(v.Events) == 0 {
		return true
	}
	gap := v.End.Sub(eventStart)
	if gap < 0 {
		gap = -gap
	}
	return gap <= v.window
}

// AddEvent appends an event and widens the visit's time span.
func (v *Visit) AddEvent(ev VisitEvent) {
	if len(v.Events) == 0 || ev.Start.Before(v.Start) {
		v.Start = ev.Start
	}
	if len(v.Events) == 0 || ev.End.After(v.End) {
		v.End = ev.End
	}
	v.Events = append(v.Events, ev)
	if n := len(v.RecordingIDs); n == 0 || v.RecordingIDs[n-1] != ev.RecordingID {
		v.RecordingIDs = append(v.RecordingIDs, ev.RecordingID)
	}
	if ev.Tag != nil {
		v.tally.Add(*ev.Tag)
	}
	v.What = v.consensusLabel()
}

// MarkComplete finalises the visit's identity and stamps it onto every
// event. Calling it again has no effect.
func (v *Visit) MarkComplete() {
	if v.Complete {
		return
	}
	v.What = v.consensusLabel()
	if tag, ok := v.tally.Best(); ok {
		v.Tag = &tag
	}
	human := v.Tag != nil && v.Tag.IsHuman()
	for i := range v.Events {
		v.Events[i].AssumedTag = v.What
		v.Events[i].AssumedIsHuman = human
	}
	v.Complete = true
}

func (v *Visit) consensusLabel() string {
	if tag, ok := v.tally.Best(); ok {
		return tag.What
	}
	return recording.LabelUnidentified
}

// Duration returns the visit length.
func (v *Visit) Duration() time.Duration {
	return v.End.Sub(v.Start)
}

// Clone returns a deep copy that shares nothing with v.
func (v *Visit) Clone() Visit {
	c := *v
	c.Events = slices.Clone(v.Events)
	for i := range c.Events {
		if t := c.Events[i].Tag; t != nil {
			tag := *t
			c.Events[i].Tag = &tag
		}
	}
	if v.Tag != nil {
		tag := *v.Tag
		c.Tag = &tag
	}
	c.AudioBaitEvents = slices.Clone(v.AudioBaitEvents)
	c.RecordingIDs = slices.Clone(v.RecordingIDs)
	c.tally = TagTally{}
	for i := range c.Events {
		if c.Events[i].Tag != nil {
			c.tally.Add(*c.Events[i].Tag)
		}
	}
	return c
}
