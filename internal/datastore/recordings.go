package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
	"github.com/tphakala/visits-go/internal/recording"
	"github.com/tphakala/visits-go/internal/visits"
)

// FetchRecordings returns one page of recordings ordered by start time then
// id, with tracks and tags loaded.
func (s *Store) FetchRecordings(ctx context.Context, q visits.Query, offset, limit int) ([]recording.Recording, error) {
	start := time.Now()

	var rows []RecordingRow
	err := s.filter(s.db.WithContext(ctx), q).
		Preload("Tracks", func(db *gorm.DB) *gorm.DB { return db.Order("tracks.id ASC") }).
		Preload("Tracks.Tags", func(db *gorm.DB) *gorm.DB { return db.Order("track_tags.id ASC") }).
		Order("started_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		enhancedErr := errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "fetch_recordings").
			Context("offset", offset).
			Context("limit", limit).
			Timing("fetch_recordings", time.Since(start)).
			Build()
		s.metrics.RecordDbOperation("fetch", "recordings", 0, time.Since(start), enhancedErr)
		return nil, enhancedErr
	}
	s.metrics.RecordDbOperation("fetch", "recordings", len(rows), time.Since(start), nil)
	s.recordPool()

	out := make([]recording.Recording, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}

	s.log.WithContext(ctx).Debug("recordings fetched",
		logger.Int("offset", offset),
		logger.Int("limit", limit),
		logger.Int("count", len(out)),
		logger.Duration("elapsed", time.Since(start)))
	return out, nil
}

// CountRecordings returns how many recordings match q.
func (s *Store) CountRecordings(ctx context.Context, q visits.Query) (int64, error) {
	var n int64
	if err := s.filter(s.db.WithContext(ctx).Model(&RecordingRow{}), q).Count(&n).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_recordings").
			Build()
	}
	return n, nil
}

func (s *Store) filter(db *gorm.DB, q visits.Query) *gorm.DB {
	if !q.From.IsZero() {
		db = db.Where("started_at >= ?", q.From.UTC())
	}
	if !q.Until.IsZero() {
		db = db.Where("started_at < ?", q.Until.UTC())
	}
	if q.GroupName != "" {
		db = db.Where("group_name = ?", q.GroupName)
	}
	if len(q.DeviceIDs) > 0 {
		db = db.Where("device_id IN ?", q.DeviceIDs)
	}
	if len(q.StationIDs) > 0 {
		db = db.Where("station_id IN ?", q.StationIDs)
	}
	return db
}

// SaveRecording stores a recording with its tracks and tags.
func (s *Store) SaveRecording(ctx context.Context, rec *recording.Recording) error {
	row, err := recordingRowFrom(rec)
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("recording_id", rec.ID).
			Build()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_recording").
			Context("recording_id", rec.ID).
			Build()
	}
	rec.ID = row.ID
	return nil
}
