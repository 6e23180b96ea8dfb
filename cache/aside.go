package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

var tagPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Aside runs reads through a cache-aside protocol on top of a Store.
//
// Cache failures never reach the caller of a wrapped read: an unreadable or
// unavailable cache degrades to a miss, and a failed write is skipped. Errors
// returned by the wrapped read itself propagate unchanged and are never cached.
type Aside struct {
	store        Store
	codec        Codec
	log          Logger
	ttl          time.Duration
	timeout      time.Duration
	readTimeout  time.Duration
	clearTimeout time.Duration
	coalesce     bool
	group        singleflight.Group
}

// Option customizes an Aside.
type Option func(*Aside)

func WithLogger(l Logger) Option {
	return func(a *Aside) {
		if l != nil {
			a.log = l
		}
	}
}

// WithCodec overrides the codec named by Config.Codec.
func WithCodec(c Codec) Option {
	return func(a *Aside) {
		if c != nil {
			a.codec = c
		}
	}
}

// NewAside validates cfg and builds an Aside over store.
func NewAside(store Store, cfg Config, opts ...Option) (*Aside, error) {
	if store == nil {
		return nil, errors.New("cache: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	a := &Aside{
		store:        store,
		codec:        codec,
		log:          NopLogger{},
		ttl:          cfg.DefaultTTL,
		timeout:      cfg.OpTimeout,
		readTimeout:  cfg.ReadTimeout,
		clearTimeout: cfg.ClearTimeout,
		coalesce:     cfg.Coalesce,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Store returns the underlying store.
func (a *Aside) Store() Store { return a.store }

// DefaultTTL is applied to reads wrapped without WithTTL.
func (a *Aside) DefaultTTL() time.Duration { return a.ttl }

func (a *Aside) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

// WrapOption customizes a single wrapped read.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	ttl  time.Duration
	tags []string
}

// WithTTL sets how long entries of this read live.
func WithTTL(d time.Duration) WrapOption {
	return func(c *wrapConfig) { c.ttl = d }
}

// WithTags declares the entity tags this read depends on. Invalidate on any of
// them makes every entry of this read unreachable.
func WithTags(tags ...string) WrapOption {
	return func(c *wrapConfig) { c.tags = append(c.tags, tags...) }
}

type wrapped[P, T any] struct {
	aside *Aside
	tmpl  *Template
	read  LoaderFunc[P, T]
	ttl   time.Duration
	tags  []string
}

// Wrap returns a read with the same signature as read that answers from the
// cache when it can. The template is checked against the argument names bound
// by P, so a placeholder no call could ever fill is a KeyTemplateError here
// rather than on the first call.
func Wrap[P, T any](a *Aside, template string, read LoaderFunc[P, T], opts ...WrapOption) (LoaderFunc[P, T], error) {
	if a == nil {
		return nil, errors.New("cache: aside is required")
	}
	if read == nil {
		return nil, errors.New("cache: read function is required")
	}

	tmpl, err := ParseTemplate(template)
	if err != nil {
		return nil, err
	}

	names, err := paramNames[P]()
	if err != nil {
		return nil, &KeyTemplateError{Template: template, Reason: err.Error()}
	}
	bound := make(map[string]bool, len(names))
	for _, n := range names {
		bound[n] = true
	}
	for _, ph := range tmpl.Placeholders() {
		if !bound[ph] {
			return nil, &KeyTemplateError{Template: template, Placeholder: ph, Reason: "not bound by the read parameters"}
		}
	}

	cfg := wrapConfig{ttl: a.ttl}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ttl <= 0 {
		return nil, fmt.Errorf("cache: ttl must be positive, got %s", cfg.ttl)
	}

	tags, err := normalizeTags(cfg.tags)
	if err != nil {
		return nil, err
	}

	w := &wrapped[P, T]{
		aside: a,
		tmpl:  tmpl,
		read:  read,
		ttl:   cfg.ttl,
		tags:  tags,
	}
	return w.load, nil
}

// MustWrap is like Wrap but panics on error.
func MustWrap[P, T any](a *Aside, template string, read LoaderFunc[P, T], opts ...WrapOption) LoaderFunc[P, T] {
	fn, err := Wrap(a, template, read, opts...)
	if err != nil {
		panic(err)
	}
	return fn
}

func (w *wrapped[P, T]) load(ctx context.Context, params P) (T, error) {
	key, ok := w.key(ctx, params)
	if !ok {
		return w.read(ctx, params)
	}

	if plain, hit := w.aside.lookup(ctx, key); hit {
		v, err := Deserialize[T](plain)
		if err == nil {
			w.aside.log.Debug("cache hit", Fields{"key": key})
			return v, nil
		}
		w.aside.log.Warn("cache entry unreadable", Fields{"key": key, "error": err})
		w.aside.forget(ctx, key)
	}

	return w.fill(ctx, key, params)
}

// key renders the logical key for params. ok is false when the cache must be
// bypassed for this call.
func (w *wrapped[P, T]) key(ctx context.Context, params P) (string, bool) {
	args, err := BindArgs(params)
	if err == nil {
		var strs map[string]string
		strs, err = renderArgs(args)
		if err == nil {
			var key string
			key, err = w.tmpl.Render(strs)
			if err == nil {
				return w.withGenerations(ctx, key)
			}
		}
	}

	w.aside.log.Error("cache key build failed", Fields{"template": w.tmpl.String(), "error": err})
	return "", false
}

// withGenerations appends the current generation of every dependency tag. An
// invalidation changes the generation and therefore every key of this read.
func (w *wrapped[P, T]) withGenerations(ctx context.Context, key string) (string, bool) {
	if len(w.tags) == 0 {
		return key, true
	}

	gens, err := w.aside.generations(ctx, w.tags)
	if err != nil {
		w.aside.log.Warn("cache generations unavailable", Fields{"key": key, "tags": w.tags, "error": err})
		return "", false
	}

	parts := make([]string, len(w.tags))
	for i, tag := range w.tags {
		parts[i] = tag + "." + strconv.FormatInt(gens[i], 10)
	}
	return key + "#g=" + strings.Join(parts, ","), true
}

// flight is the outcome of a coalesced read. plain is the serialized value
// that every caller sharing the flight rebuilds its own copy from.
type flight[T any] struct {
	value      T
	plain      any
	serialized bool
}

// fill reads through to the source on a miss. Coalesced callers wait on one
// read that runs detached from all of them, bounded by ReadTimeout, so a caller
// that gives up only stops its own wait.
func (w *wrapped[P, T]) fill(ctx context.Context, key string, params P) (T, error) {
	if !w.aside.coalesce {
		f, err := w.readAndStore(ctx, key, params)
		return f.value, err
	}

	ch := w.aside.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.aside.readTimeout)
		defer cancel()

		f, err := w.readAndStore(flightCtx, key, params)
		if err != nil {
			return nil, err
		}
		return f, nil
	})

	var zero T
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}

	f := res.Val.(flight[T])
	if !res.Shared {
		return f.value, nil
	}

	w.aside.log.Debug("cache miss coalesced", Fields{"key": key})
	if !f.serialized {
		return f.value, nil
	}
	v, err := Deserialize[T](f.plain)
	if err != nil {
		w.aside.log.Warn("cache coalesced copy failed", Fields{"key": key, "error": err})
		return f.value, nil
	}
	return v, nil
}

func (w *wrapped[P, T]) readAndStore(ctx context.Context, key string, params P) (flight[T], error) {
	w.aside.log.Debug("cache miss", Fields{"key": key})

	v, err := w.read(ctx, params)
	if err != nil {
		return flight[T]{value: v}, err
	}

	plain, ok := w.aside.put(ctx, key, v, w.ttl)
	return flight[T]{value: v, plain: plain, serialized: ok}, nil
}

func (a *Aside) lookup(ctx context.Context, key string) (any, bool) {
	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	raw, ok, err := a.store.Get(opCtx, key)
	if err != nil {
		a.log.Warn("cache get failed", Fields{"key": key, "error": &UnavailableError{Op: "get", Key: key, Err: err}})
		return nil, false
	}
	if !ok {
		return nil, false
	}

	plain, err := a.codec.Decode(raw)
	if err != nil {
		a.log.Warn("cache entry undecodable", Fields{"key": key, "codec": a.codec.Name(), "error": err})
		a.forget(ctx, key)
		return nil, false
	}
	return plain, true
}

// put stores v under key and returns its plain form, if v had one. The write
// outlives a caller that gives up after the read completed, bounded by the op
// timeout.
func (a *Aside) put(ctx context.Context, key string, v any, ttl time.Duration) (any, bool) {
	plain, err := Serialize(v)
	if err != nil {
		a.log.Warn("cache set skipped", Fields{"key": key, "error": err})
		return nil, false
	}
	data, err := a.codec.Encode(plain)
	if err != nil {
		a.log.Warn("cache set skipped", Fields{"key": key, "error": &SerializationError{Type: typeName(v), Err: err}})
		return plain, true
	}

	opCtx, cancel := a.opContext(context.WithoutCancel(ctx))
	defer cancel()

	if err := a.store.Set(opCtx, key, data, ttl); err != nil {
		a.log.Warn("cache set failed", Fields{"key": key, "ttl": ttl, "error": &UnavailableError{Op: "set", Key: key, Err: err}})
		return plain, true
	}
	a.log.Debug("cache set", Fields{"key": key, "ttl": ttl})
	return plain, true
}

// forget drops an unreadable entry so the next read refills it.
func (a *Aside) forget(ctx context.Context, key string) {
	opCtx, cancel := a.opContext(context.WithoutCancel(ctx))
	defer cancel()

	if err := a.store.Delete(opCtx, key); err != nil {
		a.log.Warn("cache delete failed", Fields{"key": key, "error": &UnavailableError{Op: "delete", Key: key, Err: err}})
	}
}

func generationKey(tag string) string { return "gen:" + tag }

func (a *Aside) generations(ctx context.Context, tags []string) ([]int64, error) {
	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	gens := make([]int64, len(tags))
	for i, tag := range tags {
		k := generationKey(tag)
		raw, ok, err := a.store.Get(opCtx, k)
		if err != nil {
			return nil, &UnavailableError{Op: "get", Key: k, Err: err}
		}
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cache: generation %q: %w", k, err)
		}
		gens[i] = n
	}
	return gens, nil
}

// Generation returns the current generation of tag, zero when never invalidated.
func (a *Aside) Generation(ctx context.Context, tag string) (int64, error) {
	gens, err := a.generations(ctx, []string{tag})
	if err != nil {
		return 0, err
	}
	return gens[0], nil
}

// Invalidate bumps the generation of every tag. Entries keyed under the old
// generation are left to expire on their TTL.
func (a *Aside) Invalidate(ctx context.Context, tags ...string) error {
	tags, err := normalizeTags(tags)
	if err != nil {
		return err
	}

	var failed []string
	var errs []error
	for _, tag := range tags {
		opCtx, cancel := a.opContext(ctx)
		_, err := a.store.Incr(opCtx, generationKey(tag))
		cancel()
		if err != nil {
			failed = append(failed, tag)
			errs = append(errs, &UnavailableError{Op: "incr", Key: generationKey(tag), Err: err})
			continue
		}
		a.log.Debug("cache invalidated", Fields{"tags": tag})
	}

	if len(errs) > 0 {
		return &InvalidateError{Tags: failed, Errs: errs}
	}
	return nil
}

// Delete removes a single logical key.
func (a *Aside) Delete(ctx context.Context, key string) error {
	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	if err := a.store.Delete(opCtx, key); err != nil {
		return &UnavailableError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Exists reports whether a logical key is present.
func (a *Aside) Exists(ctx context.Context, key string) (bool, error) {
	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	ok, err := a.store.Exists(opCtx, key)
	if err != nil {
		return false, &UnavailableError{Op: "exists", Key: key, Err: err}
	}
	return ok, nil
}

// Clear removes every entry under the store prefix, generations included.
// It is bounded by ClearTimeout.
func (a *Aside) Clear(ctx context.Context) error {
	clearCtx, cancel := context.WithTimeout(ctx, a.clearTimeout)
	defer cancel()

	if err := a.store.Clear(clearCtx); err != nil {
		return &UnavailableError{Op: "clear", Err: err}
	}
	a.log.Info("cache cleared", nil)
	return nil
}

// ValidTag reports whether tag is accepted by WithTags and Invalidate.
func ValidTag(tag string) bool { return tagPattern.MatchString(tag) }

func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if !ValidTag(tag) {
			return nil, fmt.Errorf("cache: invalid tag %q", tag)
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out, nil
}
