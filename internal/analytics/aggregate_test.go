package analytics

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type fakeEventStore struct {
	rows      []DeviceSubjectCount
	rowsErr   error
	lastMatch Match

	latest    map[string]SubjectEvent
	counts    map[string]uint64
	lookupErr error
}

func (f *fakeEventStore) DeviceSubjectCounts(_ context.Context, m Match) ([]DeviceSubjectCount, error) {
	f.lastMatch = m
	if f.rowsErr != nil {
		return nil, f.rowsErr
	}
	return f.rows, nil
}

func (f *fakeEventStore) LatestBySubject(_ context.Context, subjectUserID string) (SubjectEvent, bool, error) {
	if f.lookupErr != nil {
		return SubjectEvent{}, false, f.lookupErr
	}
	e, ok := f.latest[subjectUserID]
	return e, ok, nil
}

func (f *fakeEventStore) CountBySubject(_ context.Context, subjectUserID string) (uint64, error) {
	if f.lookupErr != nil {
		return 0, f.lookupErr
	}
	return f.counts[subjectUserID], nil
}

type fakeAppRegistry struct {
	owned  map[uint][]uint // owner -> app ids
	owners map[uint]uint   // app id -> owner
	err    error
}

func (f *fakeAppRegistry) AppIDsOwnedBy(_ context.Context, ownerUserID uint) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.owned[ownerUserID], nil
}

func (f *fakeAppRegistry) AppOwner(_ context.Context, appID uint) (uint, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	owner, ok := f.owners[appID]
	return owner, ok, nil
}

func uintPtr(v uint) *uint { return &v }

func TestAggregateCrossDeviceDedup(t *testing.T) {
	t.Parallel()

	// Three events for the same app and event name:
	// {desktop, u1}, {mobile, u1}, {mobile, u2}. u1 appears on two
	// devices and must count once.
	store := &fakeEventStore{rows: []DeviceSubjectCount{
		{Device: "desktop", SubjectUserID: "u1", Count: 1},
		{Device: "mobile", SubjectUserID: "u1", Count: 1},
		{Device: "mobile", SubjectUserID: "u2", Count: 1},
	}}
	apps := &fakeAppRegistry{owned: map[uint][]uint{1: {10}}}
	engine := NewEngine(store, apps)

	got, err := engine.Aggregate(context.Background(), Filter{EventName: "click", OwnerUserID: 1})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if got.Count != 3 {
		t.Errorf("count = %d, want 3", got.Count)
	}
	if got.UniqueUsers != 2 {
		t.Errorf("uniqueUsers = %d, want 2", got.UniqueUsers)
	}
	wantDevices := map[string]uint64{"desktop": 1, "mobile": 2}
	if !reflect.DeepEqual(got.DeviceData, wantDevices) {
		t.Errorf("deviceData = %v, want %v", got.DeviceData, wantDevices)
	}
}

func TestAggregateZeroResult(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{}
	apps := &fakeAppRegistry{owned: map[uint][]uint{1: {10}}}
	engine := NewEngine(store, apps)

	got, err := engine.Aggregate(context.Background(), Filter{EventName: "click", OwnerUserID: 1})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got.Count != 0 || got.UniqueUsers != 0 || len(got.DeviceData) != 0 {
		t.Errorf("want zero summary, got %+v", got)
	}
	if got.DeviceData == nil {
		t.Error("deviceData must be an empty map, not nil")
	}
}

func TestAggregateEmptyScopeSkipsStore(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{rowsErr: errors.New("store must not be queried")}
	apps := &fakeAppRegistry{owned: map[uint][]uint{}}
	engine := NewEngine(store, apps)

	got, err := engine.Aggregate(context.Background(), Filter{EventName: "click", OwnerUserID: 1})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got.Count != 0 {
		t.Errorf("count = %d, want 0", got.Count)
	}
}

func TestAggregateUnknownDeviceLabel(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{rows: []DeviceSubjectCount{
		{Device: "", SubjectUserID: "u1", Count: 2},
	}}
	apps := &fakeAppRegistry{owned: map[uint][]uint{1: {10}}}
	engine := NewEngine(store, apps)

	got, err := engine.Aggregate(context.Background(), Filter{EventName: "click", OwnerUserID: 1})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got.DeviceData["unknown"] != 2 {
		t.Errorf("deviceData = %v, want unknown:2", got.DeviceData)
	}
}

func TestAggregateAnonymousEventsCountButDoNotAddUsers(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{rows: []DeviceSubjectCount{
		{Device: "desktop", SubjectUserID: "", Count: 5},
		{Device: "desktop", SubjectUserID: "u1", Count: 1},
	}}
	apps := &fakeAppRegistry{owned: map[uint][]uint{1: {10}}}
	engine := NewEngine(store, apps)

	got, err := engine.Aggregate(context.Background(), Filter{EventName: "click", OwnerUserID: 1})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got.Count != 6 {
		t.Errorf("count = %d, want 6", got.Count)
	}
	if got.UniqueUsers != 1 {
		t.Errorf("uniqueUsers = %d, want 1", got.UniqueUsers)
	}
}

func TestAggregateOwnershipIsolation(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{rows: []DeviceSubjectCount{
		{Device: "desktop", SubjectUserID: "u1", Count: 100},
	}}
	apps := &fakeAppRegistry{
		owned:  map[uint][]uint{1: {10}, 2: {20}},
		owners: map[uint]uint{10: 1, 20: 2},
	}
	engine := NewEngine(store, apps)

	// Caller 1 explicitly names caller 2's app.
	_, err := engine.Aggregate(context.Background(), Filter{
		EventName:   "click",
		OwnerUserID: 1,
		AppID:       uintPtr(20),
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
}

func TestAggregateUnknownAppDenied(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{}
	apps := &fakeAppRegistry{owners: map[uint]uint{}}
	engine := NewEngine(store, apps)

	_, err := engine.Aggregate(context.Background(), Filter{
		EventName:   "click",
		OwnerUserID: 1,
		AppID:       uintPtr(999),
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
}

func TestAggregateOwnedAppScopesMatch(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{}
	apps := &fakeAppRegistry{owners: map[uint]uint{10: 1}}
	engine := NewEngine(store, apps)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	_, err := engine.Aggregate(context.Background(), Filter{
		EventName:   "visit",
		OwnerUserID: 1,
		AppID:       uintPtr(10),
		From:        &from,
		To:          &to,
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	m := store.lastMatch
	if m.EventName != "visit" {
		t.Errorf("match event = %q, want visit", m.EventName)
	}
	if !reflect.DeepEqual(m.AppIDs, []uint{10}) {
		t.Errorf("match apps = %v, want [10]", m.AppIDs)
	}
	if m.From == nil || !m.From.Equal(from) || m.To == nil || !m.To.Equal(to) {
		t.Errorf("match dates = %v..%v, want %v..%v", m.From, m.To, from, to)
	}
}

func TestAggregateValidatesFilter(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&fakeEventStore{}, &fakeAppRegistry{})
	_, err := engine.Aggregate(context.Background(), Filter{OwnerUserID: 1})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestAggregateStoreFailureSurfaces(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{rowsErr: errors.New("connection refused")}
	apps := &fakeAppRegistry{owned: map[uint][]uint{1: {10}}}
	engine := NewEngine(store, apps)

	_, err := engine.Aggregate(context.Background(), Filter{EventName: "click", OwnerUserID: 1})
	var derr *DependencyError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want DependencyError", err)
	}
}
