// Package cache defines the byte-value cache used for response caching
// and rate-limit counters, with in-memory and Redis implementations.
package cache

import (
	"context"
	"time"
)

// Store is the cache contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key. The second return reports whether
	// the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl. A non-positive ttl stores the
	// value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Incr atomically increments the counter at key and returns the new
	// value. The ttl applies only when the increment creates the key, so
	// a counting window is anchored at its first hit.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
