package testsupport

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStoreDown is the default error of FailingStore.
var ErrStoreDown = errors.New("testsupport: cache store down")

// ByteStore is the method set of cache.Store.
type ByteStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}

// FailingStore fails every call, like a cache store that cannot be reached.
type FailingStore struct {
	Err error
}

func (f FailingStore) err() error {
	if f.Err == nil {
		return ErrStoreDown
	}
	return f.Err
}

func (f FailingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err() }

func (f FailingStore) Set(context.Context, string, []byte, time.Duration) error { return f.err() }

func (f FailingStore) Delete(context.Context, string) error { return f.err() }

func (f FailingStore) Exists(context.Context, string) (bool, error) { return false, f.err() }

func (f FailingStore) Clear(context.Context) error { return f.err() }

func (f FailingStore) Incr(context.Context, string) (int64, error) { return 0, f.err() }

func (f FailingStore) Close() error { return nil }

// CountingStore records calls made to the store it wraps.
type CountingStore struct {
	ByteStore

	mu    sync.Mutex
	calls map[string]int
	sets  []string
}

func NewCountingStore(inner ByteStore) *CountingStore {
	return &CountingStore{ByteStore: inner, calls: make(map[string]int)}
}

func (c *CountingStore) record(op, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	if op == "set" {
		c.sets = append(c.sets, key)
	}
}

// Calls returns how many times op ("get", "set", "delete", "incr") ran.
func (c *CountingStore) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// SetKeys returns the keys written so far, in order.
func (c *CountingStore) SetKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sets...)
}

func (c *CountingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.record("get", key)
	return c.ByteStore.Get(ctx, key)
}

func (c *CountingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.record("set", key)
	return c.ByteStore.Set(ctx, key, value, ttl)
}

func (c *CountingStore) Delete(ctx context.Context, key string) error {
	c.record("delete", key)
	return c.ByteStore.Delete(ctx, key)
}

func (c *CountingStore) Incr(ctx context.Context, key string) (int64, error) {
	c.record("incr", key)
	return c.ByteStore.Incr(ctx, key)
}
