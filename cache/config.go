package cache

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-catalog-cache/internal/cacheinfra"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend    string        `mapstructure:"backend"`
	Prefix     string        `mapstructure:"prefix"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	// OpTimeout bounds every single store round trip.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
	// ReadTimeout bounds a coalesced read, which runs detached from the
	// callers waiting on it.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// ClearTimeout bounds Clear, which walks the whole key space.
	ClearTimeout time.Duration `mapstructure:"clear_timeout"`
	Codec        string        `mapstructure:"codec"`
	// Coalesce collapses concurrent misses on one key into a single read.
	Coalesce bool         `mapstructure:"coalesce"`
	Redis    RedisConfig  `mapstructure:"redis"`
	Memory   MemoryConfig `mapstructure:"memory"`
}

// RedisConfig mirrors the Redis store options.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// MemoryConfig mirrors the in-process sturdyc store options.
type MemoryConfig struct {
	Capacity           int           `mapstructure:"capacity"`
	NumShards          int           `mapstructure:"num_shards"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
	Retention          time.Duration `mapstructure:"retention"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	mem := cacheinfra.DefaultMemoryConfig()
	rds := cacheinfra.DefaultRedisConfig()

	return Config{
		Backend:      BackendMemory,
		Prefix:       mem.Prefix,
		DefaultTTL:   time.Hour,
		OpTimeout:    250 * time.Millisecond,
		ReadTimeout:  10 * time.Second,
		ClearTimeout: 30 * time.Second,
		Codec:        CodecJSON,
		Coalesce:     true,
		Redis: RedisConfig{
			Addr:        rds.Addr,
			PoolSize:    rds.PoolSize,
			DialTimeout: rds.DialTimeout,
		},
		Memory: MemoryConfig{
			Capacity:           mem.Capacity,
			NumShards:          mem.NumShards,
			EvictionPercentage: mem.EvictionPercentage,
			Retention:          mem.Retention,
			EvictionInterval:   mem.EvictionInterval,
		},
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendRedis, BackendMemory)),
		validation.Field(&c.Prefix, validation.Required, validation.Match(prefixPattern)),
		validation.Field(&c.DefaultTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.OpTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ReadTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ClearTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Codec, validation.Required, validation.In(CodecJSON, CodecMsgpack, CodecCBOR)),
	)
	if err != nil {
		return err
	}

	switch c.Backend {
	case BackendRedis:
		return c.toRedis().Validate()
	default:
		return c.toMemory().Validate()
	}
}

// NewStore constructs the configured store backend.
func NewStore(cfg Config, opts ...cacheinfra.MemoryOption) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendRedis:
		store, err := cacheinfra.NewRedisStore(cfg.toRedis())
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		store, err := cacheinfra.NewSturdycStore(cfg.toMemory(), opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, errors.New("cache: unknown backend " + cfg.Backend)
}

func (c Config) toRedis() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Prefix:      c.Prefix,
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		DialTimeout: c.Redis.DialTimeout,
	}
}

func (c Config) toMemory() cacheinfra.MemoryConfig {
	return cacheinfra.MemoryConfig{
		Prefix:             c.Prefix,
		Capacity:           c.Memory.Capacity,
		NumShards:          c.Memory.NumShards,
		EvictionPercentage: c.Memory.EvictionPercentage,
		Retention:          c.Memory.Retention,
		EvictionInterval:   c.Memory.EvictionInterval,
	}
}
