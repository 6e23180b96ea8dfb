// Package cache provides a cache-aside layer for read operations over a shared
// key value store.
//
// # Overview
//
// The package is built from four small pieces:
//
//   - Store: the byte level contract implemented by the Redis and in-process backends
//   - Template: deterministic, collision-free cache keys such as "products:q={search}|page={page}"
//   - Serialize / Deserialize: records to a plain cache-safe representation and back
//   - Aside and Wrap: the cache-aside protocol around any LoaderFunc
//
// # Basic Usage
//
//	store, err := cache.NewStore(cfg)
//	aside, err := cache.NewAside(store, cfg, cache.WithLogger(logger))
//
//	get, err := cache.Wrap(aside, "products:id={id}",
//		func(ctx context.Context, p ByID) (Product, error) {
//			return repo.GetByID(ctx, p.ID)
//		},
//		cache.WithTTL(10*time.Minute),
//		cache.WithTags("products"),
//	)
//
//	product, err := get(ctx, ByID{ID: "..."})
//
// # Key Arguments
//
// A parameter type either implements KeyArgser or is a struct whose exported
// fields are named by their `key` tag, their `json` tag, or the snake_case of
// the field name. Values go through Stringify: absent values (nil, "", empty
// lists) render as "", floats use their shortest round-trip form, and object
// ids render as hex.
//
// # Failure Semantics
//
// Errors from the wrapped read propagate unchanged and are never cached. Every
// cache failure is logged and absorbed: a failed or undecodable get is a miss,
// a failed set is skipped. Callers observe exactly what the uncached read
// would have returned.
//
// # Invalidation
//
// Reads declare the entity tags they depend on with WithTags. Each tag owns a
// generation counter stored at "gen:{tag}" and embedded in every key of the
// reads that depend on it. Invalidate bumps the counter; older entries become
// unreachable and expire on their TTL.
package cache
