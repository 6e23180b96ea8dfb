package di

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/internal/docinfra"
)

const (
	DocumentsMongo  = "mongo"
	DocumentsMemory = "memory"
)

const (
	LogZap    = "zap"
	LogLogrus = "logrus"
	LogNop    = "nop"
)

// Config is the full process configuration the container is built from.
type Config struct {
	Cache     cache.Config    `mapstructure:"cache"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Log       LogConfig       `mapstructure:"log"`
}

// DocumentsConfig selects the document store. The memory backend keeps every
// collection in process and is meant for demos and tests.
type DocumentsConfig struct {
	Backend        string        `mapstructure:"backend"`
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

type LogConfig struct {
	Driver      string `mapstructure:"driver"`
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// DefaultConfig returns a Config for a local MongoDB and the in-process cache.
func DefaultConfig() Config {
	mongo := docinfra.DefaultMongoConfig()
	return Config{
		Cache: cache.DefaultConfig(),
		Documents: DocumentsConfig{
			Backend:        DocumentsMongo,
			URI:            mongo.URI,
			Database:       mongo.Database,
			QueryTimeout:   catalog.DefaultQueryTimeout,
			ConnectTimeout: mongo.ConnectTimeout,
			MaxPoolSize:    mongo.MaxPoolSize,
		},
		Log: LogConfig{Driver: LogZap, Level: "info"},
	}
}

func (c Config) Validate() error {
	return validation.Errors{
		"cache":     c.Cache.Validate(),
		"documents": c.Documents.Validate(),
		"log":       c.Log.Validate(),
	}.Filter()
}

func (d DocumentsConfig) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Backend, validation.Required, validation.In(DocumentsMongo, DocumentsMemory)),
		validation.Field(&d.QueryTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
	if err != nil || d.Backend != DocumentsMongo {
		return err
	}
	return d.mongo().Validate()
}

func (d DocumentsConfig) mongo() docinfra.MongoConfig {
	return docinfra.MongoConfig{
		URI:            d.URI,
		Database:       d.Database,
		ConnectTimeout: d.ConnectTimeout,
		MaxPoolSize:    d.MaxPoolSize,
	}
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Driver, validation.Required, validation.In(LogZap, LogLogrus, LogNop)),
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}
