package visits

import (
	"fmt"

	"github.com/tphakala/visits-go/internal/recording"
)

// GroupBy selects what a visit is scoped to.
type GroupBy string

const (
	GroupByDevice  GroupBy = "device"
	GroupByStation GroupBy = "station"
)

// Valid reports whether g is a known grouping mode.
func (g GroupBy) Valid() bool {
	return g == GroupByDevice || g == GroupByStation
}

// Key identifies the device or station a visit belongs to.
type Key struct {
	DeviceID  uint
	StationID uint
}

// KeyFor returns the grouping key for a recording. In station mode a
// recording without a station falls back to its device.
func KeyFor(rec *recording.Recording, groupBy GroupBy) Key {
	if groupBy == GroupByStation && rec.StationID != 0 {
		return Key{StationID: rec.StationID}
	}
	return Key{DeviceID: rec.DeviceID}
}

func (k Key) String() string {
	if k.StationID != 0 {
		return fmt.Sprintf("station:%d", k.StationID)
	}
	return fmt.Sprintf("device:%d", k.DeviceID)
}
