// Package config loads the process configuration from defaults, an optional
// YAML file and CATALOG_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-catalog-cache/pkg/di"
)

const EnvPrefix = "CATALOG"

// DotEnvFile is loaded into the environment when present. Variables already
// set keep their values.
var DotEnvFile = ".env"

// Load reads the configuration. path may be empty; a file that does not
// exist is an error only when path was given.
func Load(path string) (di.Config, error) {
	if _, err := os.Stat(DotEnvFile); err == nil {
		if err := godotenv.Load(DotEnvFile); err != nil {
			return di.Config{}, fmt.Errorf("config: load %s: %w", DotEnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, di.DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return di.Config{}, fmt.Errorf("config: file %s not found", path)
			}
			return di.Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg di.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return di.Config{}, fmt.Errorf("config: unable to decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return di.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal.
func setDefaults(v *viper.Viper, d di.Config) {
	c := d.Cache
	v.SetDefault("cache.backend", c.Backend)
	v.SetDefault("cache.prefix", c.Prefix)
	v.SetDefault("cache.default_ttl", c.DefaultTTL)
	v.SetDefault("cache.op_timeout", c.OpTimeout)
	v.SetDefault("cache.read_timeout", c.ReadTimeout)
	v.SetDefault("cache.clear_timeout", c.ClearTimeout)
	v.SetDefault("cache.codec", c.Codec)
	v.SetDefault("cache.coalesce", c.Coalesce)
	v.SetDefault("cache.redis.addr", c.Redis.Addr)
	v.SetDefault("cache.redis.password", c.Redis.Password)
	v.SetDefault("cache.redis.db", c.Redis.DB)
	v.SetDefault("cache.redis.pool_size", c.Redis.PoolSize)
	v.SetDefault("cache.redis.dial_timeout", c.Redis.DialTimeout)
	v.SetDefault("cache.memory.capacity", c.Memory.Capacity)
	v.SetDefault("cache.memory.num_shards", c.Memory.NumShards)
	v.SetDefault("cache.memory.eviction_percentage", c.Memory.EvictionPercentage)
	v.SetDefault("cache.memory.retention", c.Memory.Retention)
	v.SetDefault("cache.memory.eviction_interval", c.Memory.EvictionInterval)

	doc := d.Documents
	v.SetDefault("documents.backend", doc.Backend)
	v.SetDefault("documents.uri", doc.URI)
	v.SetDefault("documents.database", doc.Database)
	v.SetDefault("documents.query_timeout", doc.QueryTimeout)
	v.SetDefault("documents.connect_timeout", doc.ConnectTimeout)
	v.SetDefault("documents.max_pool_size", doc.MaxPoolSize)

	v.SetDefault("log.driver", d.Log.Driver)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}
