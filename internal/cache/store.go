// Package cache implements the TTL-based read model for appointments: a
// small key/value store abstraction plus a typed read-through repository
// that keeps denormalized appointment views consistent after writes.
package cache

import (
	"context"
	"time"
)

// Store is the key/value capability the read model is built on.  Get
// reports a miss with ok=false; an empty value with ok=true is a valid
// cached answer.  Implementations must bound each operation with a
// short timeout so a cache outage never blocks booking.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob-style pattern,
	// e.g. "appointments:*".
	DeletePattern(ctx context.Context, pattern string) error
}
