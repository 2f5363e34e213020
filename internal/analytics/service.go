package analytics

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"sitepulse/internal/cache"
)

// DeviceDetails is the latest-event client context reported by user-stats.
type DeviceDetails struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

// UserStats reports activity for one subject user across apps.
type UserStats struct {
	SubjectUserID string        `json:"userId"`
	TotalEvents   uint64        `json:"totalEvents"`
	DeviceDetails DeviceDetails `json:"deviceDetails"`
	IPAddress     string        `json:"ipAddress"`
}

// Service orchestrates the read path: cache key derivation, cache
// lookup, aggregation on miss and cache population. It also handles
// write-side invalidation. The cache is best-effort throughout: any
// cache failure is logged and treated as a miss, so results come out
// identical with or without it.
type Service struct {
	engine *Engine
	store  EventStore
	cache  cache.Store
	ttl    time.Duration
	log    zerolog.Logger
}

func NewService(engine *Engine, store EventStore, c cache.Store, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{engine: engine, store: store, cache: c, ttl: ttl, log: log}
}

// summaryKey derives the cache key for a summary filter. Every field
// that affects the result is embedded; absent optionals normalize to
// fixed sentinels; the owning user is always embedded so two owners can
// never share an entry.
func summaryKey(f Filter) string {
	app := scopeAll
	if f.AppID != nil {
		app = strconv.FormatUint(uint64(*f.AppID), 10)
	}
	var from, to string
	if f.From != nil {
		from = f.From.UTC().Format(time.RFC3339Nano)
	}
	if f.To != nil {
		to = f.To.UTC().Format(time.RFC3339Nano)
	}
	caller := strconv.FormatUint(uint64(f.OwnerUserID), 10)
	return DeriveKey(KindSummary, caller, f.EventName, app, from, to)
}

// EventSummary returns the aggregate for the filter, serving from the
// cache when a fresh entry exists and computing + repopulating otherwise.
func (s *Service) EventSummary(ctx context.Context, f Filter) (*Summary, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	key := summaryKey(f)
	if body, ok := s.cacheGet(ctx, key, KindSummary); ok {
		var cached Summary
		if err := json.Unmarshal(body, &cached); err == nil {
			return &cached, nil
		}
		s.log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	summary, err := s.engine.Aggregate(ctx, f)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, summary)
	return summary, nil
}

// UserStats returns per-subject activity: total event count plus the ip
// and client details of the subject's most recent event. ErrNotFound
// when the subject has no events.
//
// The key and lookup are deliberately not scoped to the caller, matching
// the reference behavior; see DESIGN.md.
func (s *Service) UserStats(ctx context.Context, subjectUserID string) (*UserStats, error) {
	if subjectUserID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "required"}
	}

	key := DeriveKey(KindUserStats, "", subjectUserID)
	if body, ok := s.cacheGet(ctx, key, KindUserStats); ok {
		var cached UserStats
		if err := json.Unmarshal(body, &cached); err == nil {
			return &cached, nil
		}
		s.log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	latest, found, err := s.store.LatestBySubject(qctx, subjectUserID)
	if err != nil {
		return nil, &DependencyError{Resource: "event store", Err: err}
	}
	if !found {
		return nil, ErrNotFound
	}

	total, err := s.store.CountBySubject(qctx, subjectUserID)
	if err != nil {
		return nil, &DependencyError{Resource: "event store", Err: err}
	}

	stats := &UserStats{
		SubjectUserID: subjectUserID,
		TotalEvents:   total,
		DeviceDetails: DeviceDetails{
			Browser: orUnknown(latest.Browser),
			OS:      orUnknown(latest.OS),
		},
		IPAddress: orUnknown(latest.IPAddress),
	}

	s.cacheSet(ctx, key, stats)
	return stats, nil
}

// InvalidateSummary removes the one summary entry the given ingestion
// could have produced under an empty caller id and no date range. This
// narrow invalidation is intentional: broader entries (all-apps scope,
// date-filtered, caller-scoped) are left to expire with the TTL.
func (s *Service) InvalidateSummary(ctx context.Context, eventName string, appID uint) {
	key := DeriveKey(KindSummary, "", eventName, strconv.FormatUint(uint64(appID), 10), "", "")
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// cacheGet is a best-effort lookup: errors log as warnings and read as
// misses.
func (s *Service) cacheGet(ctx context.Context, key, kind string) ([]byte, bool) {
	body, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		recordCacheMiss(kind)
		return nil, false
	}
	if !ok {
		recordCacheMiss(kind)
		return nil, false
	}
	recordCacheHit(kind)
	return body, true
}

// cacheSet is best-effort: a failure only defeats the speed-up. Absent
// results are never cached.
func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, body, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}
