package datastore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/recording"
)

// AudioBaitEvents returns a device's audio-bait events in [from, until),
// oldest first. Results are cached per device and range.
func (s *Store) AudioBaitEvents(ctx context.Context, deviceID uint, from, until time.Time) ([]recording.Event, error) {
	key := fmt.Sprintf("%d|%d|%d", deviceID, from.UnixNano(), until.UnixNano())
	if s.events != nil {
		if cached, ok := s.events.Get(key); ok {
			if events, ok := cached.([]recording.Event); ok {
				s.metrics.RecordCacheOperation("audio_bait", true)
				return slices.Clone(events), nil
			}
		}
		s.metrics.RecordCacheOperation("audio_bait", false)
	}

	start := time.Now()
	var rows []EventRow
	err := s.db.WithContext(ctx).
		Where("device_id = ? AND type = ?", deviceID, recording.EventTypeAudioBait).
		Where("date_time >= ? AND date_time < ?", from.UTC(), until.UTC()).
		Order("date_time ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		enhancedErr := errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "audio_bait_events").
			Context("device_id", deviceID).
			Build()
		s.metrics.RecordDbOperation("fetch", "events", 0, time.Since(start), enhancedErr)
		return nil, enhancedErr
	}
	s.metrics.RecordDbOperation("fetch", "events", len(rows), time.Since(start), nil)

	events := make([]recording.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toDomain()
	}

	if s.events != nil {
		s.events.DeleteExpired()
		s.events.Set(key, slices.Clone(events), cache.DefaultExpiration)
		s.metrics.UpdateCacheSize(s.events.ItemCount())
	}
	s.log.WithContext(ctx).Debug("audio bait events fetched",
		logger.Uint64("device_id", uint64(deviceID)),
		logger.Int("count", len(events)))
	return events, nil
}

// SaveEvent stores a device event.
func (s *Store) SaveEvent(ctx context.Context, e *recording.Event) error {
	details, err := encodeObject(e.Details)
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}
	row := EventRow{
		ID:       e.ID,
		DeviceID: e.DeviceID,
		DateTime: e.DateTime.UTC(),
		Type:     e.Type,
		Details:  details,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_event").
			Build()
	}
	e.ID = row.ID
	if s.events != nil {
		s.events.Flush()
		s.metrics.UpdateCacheSize(0)
	}
	return nil
}
