// Package cache provides the key-space cache the summary service reads
// through: a TTL-expiring key/value store with get, set and delete.
//
// Implementations are interchangeable behind Store. The Redis-backed
// store is shared across service instances; the in-memory store serves
// tests and single-instance deployments. Failure handling is the
// caller's concern: the summary service treats every cache error as a
// miss, so a broken cache only costs latency, never correctness.
package cache

import (
	"context"
	"time"
)

// Store is the key-space cache capability.
type Store interface {
	// Get returns the value stored under key. ok is false when the key
	// is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying connection or goroutines.
	Close() error
}
