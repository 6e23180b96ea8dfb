// Package repositorycache provides a cached decorator for catalog repositories.
//
// # Overview
//
// CachedRepository wraps a catalog repository and answers its reads through a
// cache.Aside. Writes go straight to the base repository and, once they
// succeed, invalidate the cached reads of the collection.
//
// # Basic Usage
//
//	base, _ := catalog.NewRepository[catalog.Product](coll)
//	aside, _ := cache.NewAside(store, cache.DefaultConfig())
//
//	products, err := repositorycache.New[catalog.Product](base, aside,
//		repositorycache.WithDependencies("categories"),
//	)
//
//	items, n, err := products.Search(ctx, req)
//	product, err := products.GetByID(ctx, "65d000000000000000000001")
//
// # Cached vs Pass-through Operations
//
// Cached:
//   - Search, List, ListPage
//   - Count
//   - GetByID
//
// Pass-through, invalidating on success:
//   - Create, Update, Archive
//
// # Cache Keys
//
// Each read has a key template, DefaultTemplates unless WithTemplates is
// given. New rejects a template that leaves out any key argument of its read,
// because two requests differing only in that argument would share an entry.
// Requests are normalized first, so reordered or repeated color ids and
// padded search terms reuse the same entry. Invalid requests fail with a
// query.ValidationError before the cache is touched.
//
// # Cache Invalidation
//
// Every key carries the generation of the repository tag (the collection name)
// and of any WithDependencies tags. A successful write bumps the repository
// tag plus any tags attached with WithCacheTags, which makes every older
// entry unreachable without enumerating keys. Old entries expire on their TTL.
// A failed invalidation is logged and the write still succeeds; readers may
// then see stale data for at most the TTL.
//
// # Error Handling
//
// Errors from the base repository are propagated unchanged and never cached.
// Cache errors are handled by cache.Aside and never reach the caller.
package repositorycache
