package cache

import (
	"context"
	"time"
)

// Store is the byte level key value contract the cache-aside layer talks to.
//
// Keys handed to a Store are logical keys. Implementations namespace them as
// "{prefix}:{key}" so that Clear only touches entries owned by this process family.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	// Transport failures are reported as (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl. Expiry is enforced by the store.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes every key under the store prefix.
	Clear(ctx context.Context) error

	// Incr atomically increments the integer stored at key and returns the new value.
	// Missing keys start at zero. Used for generation counters.
	Incr(ctx context.Context, key string) (int64, error)

	Close() error
}

// LoaderFunc is the shape of every read operation the cache-aside layer can wrap.
// P carries the call parameters used to render the cache key.
type LoaderFunc[P, T any] func(ctx context.Context, params P) (T, error)

// KeyArgser lets a parameter type expose its cache key arguments explicitly.
// The returned map must have the same key set for every value of the type.
type KeyArgser interface {
	KeyArgs() map[string]any
}
