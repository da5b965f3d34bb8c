// Package recording provides the read-only domain models consumed by the visit
// engine: tagged recordings from wildlife cameras and microphones, their
// tracks, the tags humans and classifiers put on those tracks, and device
// events such as audio-bait playback.
//
// These models are independent of the database schema; the datastore package
// maps its rows onto them.
package recording

import (
	"slices"
	"time"
)

// Well-known tag labels.
const (
	LabelUnidentified  = "unidentified"
	LabelUnknown       = "unknown"
	LabelConflict      = "conflicting tags"
	LabelFalsePositive = "false-positive"
	LabelPart          = "part"
	LabelPoorTracking  = "poor tracking"
	LabelNone          = "none"
)

// MasterModel is the model name of the automatic tag that represents the
// classifier's final opinion on a track.
const MasterModel = "Master"

// Recording is one uploaded recording with its tracks.
type Recording struct {
	ID          uint
	DeviceID    uint
	DeviceName  string
	GroupName   string
	StationID   uint // 0 means unknown location
	StationName string
	Start       time.Time
	Duration    time.Duration
	Tracks      []Track
}

// End returns the time the recording stopped.
func (r *Recording) End() time.Time {
	return r.Start.Add(r.Duration)
}

// Track is a single detected animal path inside a recording.
// Offsets are seconds from the recording start; nil means the tracker did
// not report them.
type Track struct {
	ID          uint
	StartOffset *float64
	EndOffset   *float64
	Tags        []TrackTag
}

// TimeSpan returns the absolute start and end of the track. A track with
// missing offsets is treated as a zero-length event at the recording start.
func (t *Track) TimeSpan(recordingStart time.Time) (start, end time.Time) {
	if t.StartOffset == nil || t.EndOffset == nil {
		return recordingStart, recordingStart
	}
	start = recordingStart.Add(seconds(*t.StartOffset))
	end = recordingStart.Add(seconds(*t.EndOffset))
	if end.Before(start) {
		end = start
	}
	return start, end
}

// StartSeconds returns the start offset, or 0 when missing.
func (t *Track) StartSeconds() float64 {
	if t.StartOffset == nil || t.EndOffset == nil {
		return 0
	}
	return *t.StartOffset
}

// EndSeconds returns the end offset, or the start offset when missing.
func (t *Track) EndSeconds() float64 {
	if t.StartOffset == nil || t.EndOffset == nil {
		return 0
	}
	return max(*t.EndOffset, *t.StartOffset)
}

// TrackTag is a single tagging event on a track.
type TrackTag struct {
	ID         uint
	What       string
	Confidence float64
	Automatic  bool
	Model      string         // classifier model name for automatic tags
	UserID     uint           // tagger for manual tags
	Data       map[string]any // free-form tagger data
}

// IsMeta reports whether the label describes tracking quality rather than
// an animal.
func IsMeta(what string) bool {
	return what == LabelPart || what == LabelPoorTracking
}

// IsUnidentified reports whether the label is a placeholder for "some animal".
func IsUnidentified(what string) bool {
	return what == LabelUnidentified || what == LabelUnknown
}

// IsWeak reports whether a label should lose to any real species label.
func IsWeak(what string) bool {
	return IsMeta(what) || IsUnidentified(what)
}

// Event is a device event. Only audio-bait playback events are used by the
// visit engine.
type Event struct {
	ID       uint           `json:"id"`
	DeviceID uint           `json:"deviceId"`
	DateTime time.Time      `json:"dateTime"`
	Type     string         `json:"type"`
	Details  map[string]any `json:"details,omitempty"`
}

// EventTypeAudioBait is the event type recorded when a device plays a lure sound.
const EventTypeAudioBait = "audioBait"

// SortTracksForVisit orders tracks by descending start offset, breaking ties
// by descending track id. The last element is the earliest track.
func SortTracksForVisit(tracks []Track) []Track {
	sorted := slices.Clone(tracks)
	slices.SortStableFunc(sorted, func(a, b Track) int {
		as, bs := a.StartSeconds(), b.StartSeconds()
		switch {
		case as > bs:
			return -1
		case as < bs:
			return 1
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Offset is a convenience for building tracks with known offsets.
func Offset(s float64) *float64 {
	return &s
}
