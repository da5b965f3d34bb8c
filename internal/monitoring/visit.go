// Package monitoring builds the paged camera-trap monitoring view: visits
// per time page, with human tags splitting visits that taggers disagree on.
package monitoring

import (
	"time"

	"github.com/tphakala/visits-go/internal/pagination"
)

// Track is one track of a monitoring recording.
type Track struct {
	ID      uint    `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Tag     string  `json:"tag,omitempty"`
	AITag   string  `json:"aiTag,omitempty"`
	IsHuman bool    `json:"isHuman"`
}

// Recording is a recording as shown in a monitoring visit.
type Recording struct {
	ID       uint          `json:"id"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Tracks   []Track       `json:"tracks"`
	// ManualLabels are the distinct human labels on this recording's tracks,
	// excluding tracking-quality tags.
	ManualLabels []string `json:"manualLabels,omitempty"`
}

// Visit is one monitoring visit.
type Visit struct {
	ID          uint64      `json:"id"`
	DeviceID    uint        `json:"deviceId"`
	DeviceName  string      `json:"deviceName"`
	GroupName   string      `json:"groupName"`
	StationID   uint        `json:"stationId,omitempty"`
	StationName string      `json:"stationName,omitempty"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Incomplete  bool        `json:"incomplete"`
	QueryOffset int         `json:"queryOffset"`
	Recordings  []Recording `json:"recordings"`

	// Classification is the human consensus when one exists, otherwise the
	// best classifier label.
	Classification   string `json:"classification"`
	ClassFromUserTag bool   `json:"classFromUserTag"`
	ClassificationAI string `json:"classificationAi"`
}

// Page is one page of the monitoring view, most recent visit first.
type Page struct {
	Criteria pagination.Criteria `json:"criteria"`
	Visits   []Visit             `json:"visits"`
	Fetched  int                 `json:"fetched"`
	// NextPage is the page to request next, or 0 on the last page.
	NextPage int `json:"nextPage,omitempty"`
}
