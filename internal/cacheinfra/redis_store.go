package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// clearBatch bounds both the SCAN page size and the keys per DEL.
const clearBatch = 256

// RedisConfig configures the Redis backed store.
type RedisConfig struct {
	Prefix      string
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// DefaultRedisConfig returns a RedisConfig pointing at a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:      "catalog",
		Addr:        "localhost:6379",
		PoolSize:    10,
		DialTimeout: 2 * time.Second,
	}
}

func (c RedisConfig) Validate() error {
	if c.Prefix == "" {
		return &ConfigError{Field: "Prefix", Message: "must not be empty"}
	}
	if c.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "must not be empty"}
	}
	if c.DB < 0 {
		return &ConfigError{Field: "DB", Message: "must be non-negative"}
	}
	if c.PoolSize < 0 {
		return &ConfigError{Field: "PoolSize", Message: "must be non-negative"}
	}
	return nil
}

// RedisStore is a byte store on top of a shared go-redis client.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	owned  bool
}

// NewRedisStore creates its own client from cfg. Close releases it.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	return &RedisStore{rdb: rdb, prefix: cfg.Prefix, owned: true}, nil
}

// NewRedisStoreWithClient wraps a client owned by the caller. Close is a no-op.
func NewRedisStoreWithClient(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + ":" + k }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set uses SETEX so the entry and its expiry are written atomically.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.rdb.Set(ctx, s.key(key), value, 0).Err()
	}
	return s.rdb.SetEx(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear deletes every "{prefix}:*" key. It walks the keyspace with SCAN so a
// large namespace never blocks the server the way KEYS would.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", clearBatch).Iterator()

	batch := make([]string, 0, clearBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatch {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.rdb.Incr(ctx, s.key(key)).Result()
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}
