package cacheinfra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// MemoryConfig holds the configuration for the in-process sturdyc store.
type MemoryConfig struct {
	// Prefix namespaces every key as "{prefix}:{key}".
	Prefix string

	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// Retention is the sturdyc level TTL. Per entry expiry is tracked by the
	// store itself, so Retention only bounds how long entries set without a
	// ttl survive. Counters are not subject to it. Must be greater than 0.
	Retention time.Duration

	// EvictionInterval sets how often sturdyc sweeps expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults for most use cases.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Prefix:             "catalog",
		Capacity:           10000,
		NumShards:          256,
		EvictionPercentage: 10,
		Retention:          30 * 24 * time.Hour,
	}
}

// ToSturdycOptions converts the optional settings to sturdyc options.
// Capacity, NumShards, Retention and EvictionPercentage go to sturdyc.New directly.
func (c MemoryConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	if c.Prefix == "" {
		return &ConfigError{Field: "Prefix", Message: "must not be empty"}
	}

	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.Retention <= 0 {
		return &ConfigError{Field: "Retention", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryOption customizes a SturdycStore.
type MemoryOption func(*SturdycStore)

// WithClock replaces the time source used for entry expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *SturdycStore) {
		if now != nil {
			s.now = now
		}
	}
}

// SturdycStore is an in-process byte store backed by a sturdyc client.
// sturdyc has a single TTL per client, so each entry carries its own deadline.
//
// Keys written by Incr live in a separate map that is never evicted: losing a
// counter would roll it back and make entries stamped with an older value
// reachable again.
type SturdycStore struct {
	client   *sturdyc.Client[memoryEntry]
	counters *xsync.MapOf[string, int64]
	prefix   string
	now      func() time.Time
}

// NewSturdycStore validates cfg and initializes a sturdyc client with it.
func NewSturdycStore(cfg MemoryConfig, opts ...MemoryOption) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &SturdycStore{
		client: sturdyc.New[memoryEntry](
			cfg.Capacity,
			cfg.NumShards,
			cfg.Retention,
			cfg.EvictionPercentage,
			cfg.ToSturdycOptions()...,
		),
		counters: xsync.NewMapOf[string, int64](),
		prefix:   cfg.Prefix,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SturdycStore) key(k string) string { return s.prefix + ":" + k }

func (s *SturdycStore) lookup(k string) (memoryEntry, bool) {
	e, ok := s.client.Get(k)
	if !ok {
		return memoryEntry{}, false
	}
	if e.expired(s.now()) {
		s.client.Delete(k)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *SturdycStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	k := s.key(key)
	if n, ok := s.counters.Load(k); ok {
		return []byte(strconv.FormatInt(n, 10)), true, nil
	}
	e, ok := s.lookup(k)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (s *SturdycStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	k := s.key(key)
	s.counters.Delete(k)
	s.client.Set(k, e)
	return nil
}

func (s *SturdycStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := s.key(key)
	s.counters.Delete(k)
	s.client.Delete(k)
	return nil
}

func (s *SturdycStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := s.key(key)
	if _, ok := s.counters.Load(k); ok {
		return true, nil
	}
	_, ok := s.lookup(k)
	return ok, nil
}

// Clear removes every key under the store prefix.
func (s *SturdycStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ns := s.prefix + ":"
	for _, k := range s.client.ScanKeys() {
		if strings.HasPrefix(k, ns) {
			s.client.Delete(k)
		}
	}
	s.counters.Range(func(k string, _ int64) bool {
		if strings.HasPrefix(k, ns) {
			s.counters.Delete(k)
		}
		return true
	})
	return nil
}

// Incr increments the counter at key. A plain integer value set earlier is
// moved into the counter map on first increment.
func (s *SturdycStore) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	k := s.key(key)
	var parseErr error
	n, _ := s.counters.Compute(k, func(old int64, loaded bool) (int64, bool) {
		if loaded {
			return old + 1, false
		}
		e, ok := s.lookup(k)
		if !ok {
			return 1, false
		}
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			parseErr = fmt.Errorf("cacheinfra: value at %q is not an integer", key)
			return 0, true
		}
		s.client.Delete(k)
		return parsed + 1, false
	})
	if parseErr != nil {
		return 0, parseErr
	}
	return n, nil
}

func (s *SturdycStore) Close() error { return nil }
