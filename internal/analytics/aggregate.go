package analytics

import (
	"context"
	"time"
)

// unknownDevice is the breakdown label for events with no reported device.
const unknownDevice = "unknown"

// queryTimeout bounds read-path store and registry calls so a dependency
// outage degrades latency, not availability.
const queryTimeout = 15 * time.Second

// Filter describes one summary query. OwnerUserID is derived from the
// authenticated caller, never from request input; a filter can therefore
// never cross ownership boundaries.
type Filter struct {
	EventName   string
	OwnerUserID uint

	// AppID optionally narrows the summary to a single app, which must
	// be owned by OwnerUserID. Nil means all of the caller's apps.
	AppID *uint

	From *time.Time
	To   *time.Time
}

// Validate reports whether the filter is well-formed.
func (f Filter) Validate() error {
	if f.EventName == "" {
		return &ValidationError{Field: "event", Reason: "required"}
	}
	return nil
}

// Match is the predicate handed to the event store: event name, resolved
// app scope and optional date bounds.
type Match struct {
	EventName string
	AppIDs    []uint
	From      *time.Time
	To        *time.Time
}

// DeviceSubjectCount is one row of the store's match-and-group output:
// the number of matching events for a (device, subject user) pair.
type DeviceSubjectCount struct {
	Device        string
	SubjectUserID string
	Count         uint64
}

// SubjectEvent carries the fields of a subject user's latest event that
// user-stats reports.
type SubjectEvent struct {
	IPAddress string
	Browser   string
	OS        string
}

// Summary is the computed aggregate for one filter. Always replaced
// wholesale, never partially updated. Field names are part of the
// reporting API.
type Summary struct {
	EventName   string            `json:"event"`
	Count       uint64            `json:"count"`
	UniqueUsers uint64            `json:"uniqueUsers"`
	DeviceData  map[string]uint64 `json:"deviceData"`
}

// EventStore is the durable event collection's query capability.
type EventStore interface {
	DeviceSubjectCounts(ctx context.Context, m Match) ([]DeviceSubjectCount, error)
	LatestBySubject(ctx context.Context, subjectUserID string) (SubjectEvent, bool, error)
	CountBySubject(ctx context.Context, subjectUserID string) (uint64, error)
}

// AppRegistry resolves app ownership for scope checks.
type AppRegistry interface {
	AppIDsOwnedBy(ctx context.Context, ownerUserID uint) ([]uint, error)
	AppOwner(ctx context.Context, appID uint) (ownerUserID uint, ok bool, err error)
}

// Engine computes event summaries from the durable store under an
// ownership-scoped filter.
type Engine struct {
	store EventStore
	apps  AppRegistry
}

func NewEngine(store EventStore, apps AppRegistry) *Engine {
	return &Engine{store: store, apps: apps}
}

type deviceGroup struct {
	count    uint64
	subjects map[string]struct{}
}

// Aggregate resolves the filter's app scope, matches events against it
// and reduces them to a Summary. A filter matching no events yields the
// zero Summary, not an error.
//
// Grouping is two-phase: events are first grouped per device (count plus
// the set of distinct subject users seen on that device), then reduced
// across devices. Unique-user counting deduplicates across devices — a
// user seen on two devices counts once — so a per-group count-distinct
// would overcount and is deliberately not used.
func (e *Engine) Aggregate(ctx context.Context, f Filter) (*Summary, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	summary := &Summary{EventName: f.EventName, DeviceData: map[string]uint64{}}

	var scope []uint
	if f.AppID != nil {
		owner, ok, err := e.apps.AppOwner(ctx, *f.AppID)
		if err != nil {
			return nil, &DependencyError{Resource: "app registry", Err: err}
		}
		if !ok || owner != f.OwnerUserID {
			return nil, ErrAccessDenied
		}
		scope = []uint{*f.AppID}
	} else {
		ids, err := e.apps.AppIDsOwnedBy(ctx, f.OwnerUserID)
		if err != nil {
			return nil, &DependencyError{Resource: "app registry", Err: err}
		}
		if len(ids) == 0 {
			return summary, nil
		}
		scope = ids
	}

	rows, err := e.store.DeviceSubjectCounts(ctx, Match{
		EventName: f.EventName,
		AppIDs:    scope,
		From:      f.From,
		To:        f.To,
	})
	if err != nil {
		return nil, &DependencyError{Resource: "event store", Err: err}
	}

	// Phase one: per-device counts and subject sets. Anonymous events
	// (no subject user id) count toward the totals but contribute no
	// subject.
	groups := make(map[string]*deviceGroup)
	for _, r := range rows {
		device := r.Device
		if device == "" {
			device = unknownDevice
		}
		g := groups[device]
		if g == nil {
			g = &deviceGroup{subjects: make(map[string]struct{})}
			groups[device] = g
		}
		g.count += r.Count
		if r.SubjectUserID != "" {
			g.subjects[r.SubjectUserID] = struct{}{}
		}
	}

	// Phase two: reduce across devices, deduplicating subjects that
	// appeared on more than one device.
	allSubjects := make(map[string]struct{})
	for device, g := range groups {
		summary.Count += g.count
		summary.DeviceData[device] = g.count
		for s := range g.subjects {
			allSubjects[s] = struct{}{}
		}
	}
	summary.UniqueUsers = uint64(len(allSubjects))

	return summary, nil
}
