package datastore

import (
	"encoding/json"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/visits-go/internal/recording"
)

// RecordingRow is a stored recording with its device and station denormalised.
type RecordingRow struct {
	ID          uint      `gorm:"primaryKey"`
	DeviceID    uint      `gorm:"index:idx_recordings_device_time,priority:1;not null"`
	DeviceName  string    `gorm:"size:255"`
	GroupName   string    `gorm:"size:255;index"`
	StationID   uint      `gorm:"index"`
	StationName string    `gorm:"size:255"`
	StartedAt   time.Time `gorm:"index:idx_recordings_device_time,priority:2;index;not null"`
	DurationSec float64
	Tracks      []TrackRow `gorm:"foreignKey:RecordingID;constraint:OnDelete:CASCADE"`
}

func (RecordingRow) TableName() string { return "recordings" }

// TrackRow is a stored track. Offsets are seconds from the recording start.
type TrackRow struct {
	ID          uint `gorm:"primaryKey"`
	RecordingID uint `gorm:"index;not null"`
	StartSec    *float64
	EndSec      *float64
	Tags        []TrackTagRow `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE"`
}

func (TrackRow) TableName() string { return "tracks" }

// TrackTagRow is a stored tag. Data holds the tagger's free-form JSON.
type TrackTagRow struct {
	ID         uint   `gorm:"primaryKey"`
	TrackID    uint   `gorm:"index;not null"`
	What       string `gorm:"size:100;index"`
	Confidence float64
	Automatic  bool
	Model      string `gorm:"size:100"`
	UserID     uint
	Data       string `gorm:"type:text"`
}

func (TrackTagRow) TableName() string { return "track_tags" }

// EventRow is a stored device event.
type EventRow struct {
	ID       uint      `gorm:"primaryKey"`
	DeviceID uint      `gorm:"index:idx_events_device_time,priority:1;not null"`
	DateTime time.Time `gorm:"index:idx_events_device_time,priority:2;not null"`
	Type     string    `gorm:"size:50;index"`
	Details  string    `gorm:"type:text"`
}

func (EventRow) TableName() string { return "events" }

func (r *RecordingRow) toDomain() recording.Recording {
	rec := recording.Recording{
		ID:          r.ID,
		DeviceID:    r.DeviceID,
		DeviceName:  r.DeviceName,
		GroupName:   r.GroupName,
		StationID:   r.StationID,
		StationName: r.StationName,
		Start:       r.StartedAt,
		Duration:    time.Duration(r.DurationSec * float64(time.Second)),
		Tracks:      make([]recording.Track, 0, len(r.Tracks)),
	}
	for i := range r.Tracks {
		t := &r.Tracks[i]
		track := recording.Track{
			ID:          t.ID,
			StartOffset: t.StartSec,
			EndOffset:   t.EndSec,
			Tags:        make([]recording.TrackTag, 0, len(t.Tags)),
		}
		for j := range t.Tags {
			tag := &t.Tags[j]
			track.Tags = append(track.Tags, recording.TrackTag{
				ID:         tag.ID,
				What:       tag.What,
				Confidence: tag.Confidence,
				Automatic:  tag.Automatic,
				Model:      tag.Model,
				UserID:     tag.UserID,
				Data:       decodeObject(tag.Data),
			})
		}
		rec.Tracks = append(rec.Tracks, track)
	}
	return rec
}

func recordingRowFrom(rec *recording.Recording) (RecordingRow, error) {
	row := RecordingRow{
		ID:          rec.ID,
		DeviceID:    rec.DeviceID,
		DeviceName:  rec.DeviceName,
		GroupName:   rec.GroupName,
		StationID:   rec.StationID,
		StationName: rec.StationName,
		StartedAt:   rec.Start.UTC(),
		DurationSec: rec.Duration.Seconds(),
	}
	for i := range rec.Tracks {
		t := &rec.Tracks[i]
		tr := TrackRow{ID: t.ID, StartSec: t.StartOffset, EndSec: t.EndOffset}
		for _, tag := range t.Tags {
			data, err := encodeObject(tag.Data)
			if err != nil {
				return RecordingRow{}, err
			}
			tr.Tags = append(tr.Tags, TrackTagRow{
				ID:         tag.ID,
				What:       tag.What,
				Confidence: tag.Confidence,
				Automatic:  tag.Automatic,
				Model:      tag.Model,
				UserID:     tag.UserID,
				Data:       data,
			})
		}
		row.Tracks = append(row.Tracks, tr)
	}
	return row, nil
}

func (e *EventRow) toDomain() recording.Event {
	return recording.Event{
		ID:       e.ID,
		DeviceID: e.DeviceID,
		DateTime: e.DateTime,
		Type:     e.Type,
		Details:  decodeObject(e.Details),
	}
}

// decodeObject reads a JSON object column. Anything that is not an object
// yields nil; free-form data never fails a query.
func decodeObject(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	obj, err := jason.NewObjectFromBytes([]byte(raw))
	if err != nil {
		return nil
	}
	fields := obj.Map()
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = plainJSON(v.Interface())
	}
	return out
}

// plainJSON converts json.Number leaves to float64 so decoded data compares
// like encoding/json output.
func plainJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = plainJSON(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = plainJSON(e)
		}
		return t
	default:
		return v
	}
}

func encodeObject(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
