package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/internal/docinfra"
	"github.com/goliatone/go-catalog-cache/log/logruslog"
	"github.com/goliatone/go-catalog-cache/log/zaplog"
	"github.com/goliatone/go-catalog-cache/query"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

// Collection names of the catalog entities.
const (
	ProductsCollection   = "products"
	CategoriesCollection = "categories"
	MaterialsCollection  = "materials"
	ColorsCollection     = "colors"
)

// Container owns the process-wide clients: one cache store, one Aside over it,
// one document store connection and a logger. Repositories built from the
// container share them. Create it once at startup and Close it on shutdown.
type Container struct {
	cfg    Config
	logger cache.Logger
	store  cache.Store
	aside  *cache.Aside
	client *mongo.Client

	mu          sync.Mutex
	collections map[string]catalog.Collection
	closers     []func(context.Context) error
	closed      bool
}

// NewContainer validates cfg, connects the configured backends and returns
// the container. Anything opened before a failure is closed again.
func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("di: invalid config: %w", err)
	}

	c := &Container{cfg: cfg, collections: make(map[string]catalog.Collection)}

	logger, flush, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	c.closers = append(c.closers, func(context.Context) error { return flush() })

	store, err := cache.NewStore(cfg.Cache)
	if err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("di: cache store: %w", err)
	}
	c.store = store
	c.closers = append(c.closers, func(context.Context) error { return store.Close() })

	aside, err := cache.NewAside(store, cfg.Cache, cache.WithLogger(logger))
	if err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("di: cache aside: %w", err)
	}
	c.aside = aside

	if cfg.Documents.Backend == DocumentsMongo {
		client, err := docinfra.Connect(ctx, cfg.Documents.mongo())
		if err != nil {
			_ = c.Close(ctx)
			return nil, fmt.Errorf("di: document store: %w", err)
		}
		c.client = client
		c.closers = append(c.closers, client.Disconnect)
	}

	logger.Info("container ready", cache.Fields{
		"cache":     cfg.Cache.Backend,
		"documents": cfg.Documents.Backend,
	})
	return c, nil
}

// NewContainerWithDefaults builds a container with in-process backends for
// both the cache and the documents.
func NewContainerWithDefaults(ctx context.Context) (*Container, error) {
	cfg := DefaultConfig()
	cfg.Documents.Backend = DocumentsMemory
	cfg.Log.Driver = LogNop
	return NewContainer(ctx, cfg)
}

func newLogger(cfg LogConfig) (cache.Logger, func() error, error) {
	switch cfg.Driver {
	case LogZap:
		l, err := zaplog.NewProduction(cfg.Level, cfg.Development)
		if err != nil {
			return nil, nil, fmt.Errorf("di: zap logger: %w", err)
		}
		return l, func() error {
			// Syncing stderr fails on some platforms; nothing is lost.
			_ = l.Sync()
			return nil
		}, nil
	case LogLogrus:
		l, err := logruslog.NewJSON(os.Stderr, cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("di: logrus logger: %w", err)
		}
		return l, func() error { return nil }, nil
	}
	return cache.NopLogger{}, func() error { return nil }, nil
}

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() Config { return c.cfg }

func (c *Container) Logger() cache.Logger { return c.logger }

func (c *Container) Store() cache.Store { return c.store }

func (c *Container) Aside() *cache.Aside { return c.aside }

// Collection returns the shared handle of the named collection.
func (c *Container) Collection(name string) catalog.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()

	if coll, ok := c.collections[name]; ok {
		return coll
	}

	var coll catalog.Collection
	if c.client != nil {
		coll = docinfra.NewMongoCollection(c.client.Database(c.cfg.Documents.Database).Collection(name))
	} else {
		coll = docinfra.NewMemoryCollection(name)
	}
	c.collections[name] = coll
	return coll
}

// EnsureIndexes creates the product indexes. It is a no-op for the memory
// backend.
func (c *Container) EnsureIndexes(ctx context.Context) error {
	coll, ok := c.Collection(ProductsCollection).(*docinfra.MongoCollection)
	if !ok {
		return nil
	}
	return coll.EnsureIndexes(ctx, docinfra.ProductIndexes())
}

// Close releases every client in reverse order of creation. It is safe to
// call more than once.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRepository creates an uncached repository over the named collection.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function.
func NewRepository[T any](c *Container, collection string, opts ...catalog.Option) (*catalog.Repository[T], error) {
	opts = append([]catalog.Option{catalog.WithQueryTimeout(c.cfg.Documents.QueryTimeout)}, opts...)
	return catalog.NewRepository[T](c.Collection(collection), opts...)
}

// NewCachedRepository creates a repository over the named collection whose
// reads go through the shared Aside.
// Example: NewCachedRepository[catalog.Product](container, di.ProductsCollection)
func NewCachedRepository[T any](c *Container, collection string, opts ...repositorycache.Option) (*repositorycache.CachedRepository[T], error) {
	return newCached[T](c, collection, nil, opts...)
}

func newCached[T any](c *Container, collection string, baseOpts []catalog.Option, opts ...repositorycache.Option) (*repositorycache.CachedRepository[T], error) {
	base, err := NewRepository[T](c, collection, baseOpts...)
	if err != nil {
		return nil, err
	}
	opts = append([]repositorycache.Option{repositorycache.WithLogger(c.logger)}, opts...)
	return repositorycache.New[T](base, c.aside, opts...)
}

// Products returns the cached product repository. Product reads embed the
// category name, so category writes invalidate them.
func (c *Container) Products() (*repositorycache.CachedRepository[catalog.Product], error) {
	return NewCachedRepository[catalog.Product](c, ProductsCollection,
		repositorycache.WithDependencies(CategoriesCollection),
	)
}

// Categories, Materials and Colors search by name only.
func (c *Container) Categories() (*repositorycache.CachedRepository[catalog.Category], error) {
	return newCached[catalog.Category](c, CategoriesCollection, lookupOptions())
}

func (c *Container) Materials() (*repositorycache.CachedRepository[catalog.Material], error) {
	return newCached[catalog.Material](c, MaterialsCollection, lookupOptions())
}

func (c *Container) Colors() (*repositorycache.CachedRepository[catalog.Color], error) {
	return newCached[catalog.Color](c, ColorsCollection, lookupOptions())
}

func lookupOptions() []catalog.Option {
	return []catalog.Option{catalog.WithBuilder(query.BuildNameSearch)}
}
