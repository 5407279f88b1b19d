// Package cache provides optional storage for upstream HTTP response bodies.
//
// The pipeline itself keeps no state between runs. A response cache is an
// opt-in transport concern: it lets repeated runs against the same accounts
// skip storefront and review requests that were answered recently. The
// default backend is [NullCache], which stores nothing.
//
// Backends:
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry under a local directory
//   - [RedisCache]: a shared Redis instance
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long cached response bodies stay fresh.
const DefaultTTL = 6 * time.Hour

// Cache stores opaque byte payloads by key.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the payload for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
