// Package cache provides the small read-through cache dockgate uses to
// collapse duplicate container-runtime lookups inside a sweep.
//
// Two backends exist behind one interface:
//   - single: local in-memory Ristretto cache with per-key TTL
//   - disabled: noop passthrough, every read is a miss
//
// All implementations are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// Cache is the interface shared by all backends. Values are short-lived
// byte slices; expiry is always explicit via TTL.
type Cache interface {
	// Get retrieves a value. Returns ErrNotFound on a miss and ErrClosed
	// after Close.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores a value that expires after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources. Operations after Close return
	// ErrClosed. Close is idempotent.
	Close() error
}

// Stats reports backend counters for observability.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeyCount  uint64 `json:"key_count"`
	Evictions uint64 `json:"evictions"`
}

// StatsProvider is implemented by backends that track statistics.
type StatsProvider interface {
	Stats() Stats
}
