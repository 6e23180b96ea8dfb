package repositorycache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/query"
)

// Repository is the surface of catalog.Repository that CachedRepository
// decorates.
type Repository[T any] interface {
	Collection() string
	Search(ctx context.Context, req query.Request) ([]T, int, error)
	Count(ctx context.Context, filter query.FilterSpec) (int64, error)
	GetByID(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id string, mutate func(*T) error) (T, error)
	Archive(ctx context.Context, id string) error
}

var (
	_ Repository[catalog.Product] = (*catalog.Repository[catalog.Product])(nil)
	_ Repository[catalog.Product] = (*CachedRepository[catalog.Product])(nil)
)

// Templates are the cache key templates of the three cached reads.
type Templates struct {
	List  string
	Count string
	Get   string
}

const filterSegment = "price={start_price},{end_price}" +
	":w={min_width},{max_width}" +
	":h={min_height},{max_height}" +
	":d={min_depth},{max_depth}" +
	":l={min_length},{max_length}" +
	":kg={min_weight},{max_weight}" +
	":cat={category_id}:mat={material_id}:col={color_ids}:q={search}"

// DefaultTemplates returns templates that reference every key argument of
// their read, namespaced by collection.
func DefaultTemplates(collection string) Templates {
	return Templates{
		List:  collection + ":list:p={page}:n={page_size}:s={sort_by}:o={sort_order}:" + filterSegment,
		Count: collection + ":count:" + filterSegment,
		Get:   collection + ":get:id={id}",
	}
}

type getParams struct {
	ID string `key:"id"`
}

type options struct {
	ttl       time.Duration
	deps      []string
	templates *Templates
	log       cache.Logger
}

type Option func(*options)

// WithTTL overrides the Aside default TTL for every cached read.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithDependencies adds tags of other entities these reads embed. Products
// embed their category name, so product reads depend on "categories".
func WithDependencies(tags ...string) Option {
	return func(o *options) { o.deps = append(o.deps, tags...) }
}

// WithTemplates replaces DefaultTemplates. Every template must still
// reference every key argument of its read.
func WithTemplates(t Templates) Option {
	return func(o *options) { o.templates = &t }
}

func WithLogger(l cache.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// CachedRepository decorates a repository with cache-aside reads. Writes pass
// through and, when they succeed, invalidate every cached read of the
// collection through its generation tag.
type CachedRepository[T any] struct {
	base  Repository[T]
	aside *cache.Aside
	tag   string
	log   cache.Logger

	list  cache.LoaderFunc[query.Request, []T]
	count cache.LoaderFunc[query.FilterSpec, int64]
	get   cache.LoaderFunc[getParams, T]
}

// New wraps base. The collection name, reduced to [a-z0-9_], is the
// invalidation tag of the repository.
func New[T any](base Repository[T], aside *cache.Aside, opts ...Option) (*CachedRepository[T], error) {
	if base == nil {
		return nil, errors.New("repositorycache: base repository is required")
	}
	if aside == nil {
		return nil, errors.New("repositorycache: aside is required")
	}

	o := options{log: cache.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	tag := collectionTag(base.Collection())
	if tag == "" {
		return nil, fmt.Errorf("repositorycache: collection %q yields no tag", base.Collection())
	}
	tmpl := DefaultTemplates(base.Collection())
	if o.templates != nil {
		tmpl = *o.templates
	}

	if err := coversArgs(tmpl.List, query.Request{}); err != nil {
		return nil, err
	}
	if err := coversArgs(tmpl.Count, query.FilterSpec{}); err != nil {
		return nil, err
	}
	if err := coversArgs(tmpl.Get, getParams{}); err != nil {
		return nil, err
	}

	wrapOpts := []cache.WrapOption{cache.WithTags(append([]string{tag}, o.deps...)...)}
	if o.ttl > 0 {
		wrapOpts = append(wrapOpts, cache.WithTTL(o.ttl))
	}

	c := &CachedRepository[T]{base: base, aside: aside, tag: tag, log: o.log}

	var err error
	if c.list, err = cache.Wrap[query.Request, []T](aside, tmpl.List, c.readList, wrapOpts...); err != nil {
		return nil, err
	}
	if c.count, err = cache.Wrap[query.FilterSpec, int64](aside, tmpl.Count, c.readCount, wrapOpts...); err != nil {
		return nil, err
	}
	if c.get, err = cache.Wrap[getParams, T](aside, tmpl.Get, c.readGet, wrapOpts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](base Repository[T], aside *cache.Aside, opts ...Option) *CachedRepository[T] {
	c, err := New(base, aside, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *CachedRepository[T]) Collection() string { return c.base.Collection() }

// Tag is the invalidation tag of this repository.
func (c *CachedRepository[T]) Tag() string { return c.tag }

// Search returns one page of records matching req, with caching. Invalid
// requests fail before the cache is consulted.
func (c *CachedRepository[T]) Search(ctx context.Context, req query.Request) ([]T, int, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	items, err := c.list(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	return items, len(items), nil
}

// List is Search without the page length.
func (c *CachedRepository[T]) List(ctx context.Context, req query.Request) ([]T, error) {
	items, _, err := c.Search(ctx, req)
	return items, err
}

// Count returns the total matching filter, with caching.
func (c *CachedRepository[T]) Count(ctx context.Context, filter query.FilterSpec) (int64, error) {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	return c.count(ctx, filter)
}

// ListPage combines a cached Search and a cached Count into page metadata.
func (c *CachedRepository[T]) ListPage(ctx context.Context, req query.Request) (catalog.Page[T], error) {
	items, _, err := c.Search(ctx, req)
	if err != nil {
		return catalog.Page[T]{}, err
	}
	total, err := c.Count(ctx, req.Filter)
	if err != nil {
		return catalog.Page[T]{}, err
	}
	return catalog.NewPage(items, total, req.Page), nil
}

// GetByID returns a single record by id, with caching. Not found errors are
// not cached.
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	return c.get(ctx, getParams{ID: strings.ToLower(strings.TrimSpace(id))})
}

func (c *CachedRepository[T]) Create(ctx context.Context, rec T) (T, error) {
	created, err := c.base.Create(ctx, rec)
	if err == nil {
		c.invalidate(ctx, "create")
	}
	return created, err
}

func (c *CachedRepository[T]) Update(ctx context.Context, id string, mutate func(*T) error) (T, error) {
	updated, err := c.base.Update(ctx, id, mutate)
	if err == nil {
		c.invalidate(ctx, "update")
	}
	return updated, err
}

func (c *CachedRepository[T]) Archive(ctx context.Context, id string) error {
	err := c.base.Archive(ctx, id)
	if err == nil {
		c.invalidate(ctx, "archive")
	}
	return err
}

// Invalidate makes every cached read of this repository unreachable.
func (c *CachedRepository[T]) Invalidate(ctx context.Context) error {
	return c.aside.Invalidate(ctx, c.tag)
}

func (c *CachedRepository[T]) readList(ctx context.Context, req query.Request) ([]T, error) {
	items, _, err := c.base.Search(ctx, req)
	return items, err
}

func (c *CachedRepository[T]) readCount(ctx context.Context, filter query.FilterSpec) (int64, error) {
	return c.base.Count(ctx, filter)
}

func (c *CachedRepository[T]) readGet(ctx context.Context, p getParams) (T, error) {
	return c.base.GetByID(ctx, p.ID)
}

// invalidate bumps the repository tag and any valid tags carried by ctx. A
// malformed context tag is dropped so it cannot block the repository tag. The
// write already succeeded, so a failure here is logged and left to the TTL.
func (c *CachedRepository[T]) invalidate(ctx context.Context, op string) {
	tags := []string{c.tag}
	for _, tag := range cacheTagsFromContext(ctx) {
		if !cache.ValidTag(tag) {
			c.log.Warn("cache tag ignored", cache.Fields{"op": op, "tag": tag})
			continue
		}
		tags = append(tags, tag)
	}
	if err := c.aside.Invalidate(ctx, tags...); err != nil {
		c.log.Warn("cache invalidation failed", cache.Fields{
			"op":    op,
			"tags":  tags,
			"error": err,
		})
	}
}

// coversArgs rejects a template that leaves a key argument of params out of
// the key, since two calls differing only in that argument would collide.
func coversArgs(template string, params any) error {
	tmpl, err := cache.ParseTemplate(template)
	if err != nil {
		return err
	}
	args, err := cache.BindArgs(params)
	if err != nil {
		return err
	}

	used := make(map[string]bool)
	for _, ph := range tmpl.Placeholders() {
		used[ph] = true
	}
	for name := range args {
		if !used[name] {
			return &cache.KeyTemplateError{Template: template, Placeholder: name, Reason: "key argument missing from template"}
		}
	}
	return nil
}

func collectionTag(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
