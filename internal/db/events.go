package db

import (
	"context"

	"gorm.io/gorm"

	"sitepulse/internal/analytics"
)

// EventStore exposes the event collection to the analytics core.
type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// InsertEvent appends a single event record.
func (s *EventStore) InsertEvent(ctx context.Context, e *Event) error {
	return s.db.WithContext(ctx).Create(e).Error
}

// DeviceSubjectCounts runs the match-and-group phase of a summary query:
// matching events grouped by (device, subject user), with per-group
// counts. The cross-device rollup happens in the analytics engine.
func (s *EventStore) DeviceSubjectCounts(ctx context.Context, m analytics.Match) ([]analytics.DeviceSubjectCount, error) {
	q := s.db.WithContext(ctx).Model(&Event{}).
		Select("device, subject_user_id, COUNT(*) AS count").
		Where("event_name = ?", m.EventName).
		Where("app_id IN ?", m.AppIDs)
	if m.From != nil {
		q = q.Where("created_at >= ?", *m.From)
	}
	if m.To != nil {
		q = q.Where("created_at <= ?", *m.To)
	}

	var rows []analytics.DeviceSubjectCount
	if err := q.Group("device").Group("subject_user_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LatestBySubject returns the most recent event observed for the subject
// user, or ok=false when the subject has no events.
func (s *EventStore) LatestBySubject(ctx context.Context, subjectUserID string) (analytics.SubjectEvent, bool, error) {
	var e Event
	err := s.db.WithContext(ctx).
		Where("subject_user_id = ?", subjectUserID).
		Order("created_at DESC").
		First(&e).Error
	if err == gorm.ErrRecordNotFound {
		return analytics.SubjectEvent{}, false, nil
	}
	if err != nil {
		return analytics.SubjectEvent{}, false, err
	}

	se := analytics.SubjectEvent{IPAddress: e.IPAddress}
	if v, ok := e.Metadata["browser"].(string); ok {
		se.Browser = v
	}
	if v, ok := e.Metadata["os"].(string); ok {
		se.OS = v
	}
	return se, true, nil
}

// CountBySubject returns the total number of events observed for the subject user.
func (s *EventStore) CountBySubject(ctx context.Context, subjectUserID string) (uint64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Event{}).
		Where("subject_user_id = ?", subjectUserID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return uint64(count), nil
}
