package analytics

import (
	"errors"
	"fmt"
)

// ErrAccessDenied is returned when a filter names an app the caller does
// not own. Unknown apps map here too, so existence is not leaked.
var ErrAccessDenied = errors.New("access to this app is denied")

// ErrNotFound is returned by user-stats queries for subjects with no events.
var ErrNotFound = errors.New("user not found")

// ValidationError describes a malformed filter or query parameter.
// Surfaced to the caller, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DependencyError wraps a failure of the event store or app registry.
// On the read path there is no fallback source of truth, so these
// surface as server errors.
type DependencyError struct {
	Resource string
	Err      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Resource, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
