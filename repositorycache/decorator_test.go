package repositorycache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/pkg/testsupport"
	"github.com/goliatone/go-catalog-cache/query"
)

type mockRepository[T any] struct {
	mu         sync.Mutex
	collection string
	calls      map[string]int

	searchResult []T
	searchErr    error
	countResult  int64
	countErr     error
	getResult    T
	getErr       error
	writeErr     error
	lastRequest  query.Request
}

func newMockRepository[T any](collection string) *mockRepository[T] {
	return &mockRepository[T]{collection: collection, calls: make(map[string]int)}
}

func (m *mockRepository[T]) record(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *mockRepository[T]) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *mockRepository[T]) Collection() string { return m.collection }

func (m *mockRepository[T]) Search(ctx context.Context, req query.Request) ([]T, int, error) {
	m.record("Search")
	m.mu.Lock()
	m.lastRequest = req
	m.mu.Unlock()
	if m.searchErr != nil {
		return nil, 0, m.searchErr
	}
	return m.searchResult, len(m.searchResult), nil
}

func (m *mockRepository[T]) Count(ctx context.Context, filter query.FilterSpec) (int64, error) {
	m.record("Count")
	return m.countResult, m.countErr
}

func (m *mockRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	m.record("GetByID")
	if m.getErr != nil {
		var zero T
		return zero, m.getErr
	}
	return m.getResult, nil
}

func (m *mockRepository[T]) Create(ctx context.Context, rec T) (T, error) {
	m.record("Create")
	return rec, m.writeErr
}

func (m *mockRepository[T]) Update(ctx context.Context, id string, mutate func(*T) error) (T, error) {
	m.record("Update")
	rec := m.getResult
	if m.writeErr != nil {
		var zero T
		return zero, m.writeErr
	}
	if err := mutate(&rec); err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

func (m *mockRepository[T]) Archive(ctx context.Context, id string) error {
	m.record("Archive")
	return m.writeErr
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	msg    string
	fields cache.Fields
}

func (l *recordingLogger) record(msg string, fields cache.Fields) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{msg: msg, fields: fields})
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, f cache.Fields) { l.record(msg, f) }
func (l *recordingLogger) Info(msg string, f cache.Fields)  { l.record(msg, f) }
func (l *recordingLogger) Warn(msg string, f cache.Fields)  { l.record(msg, f) }
func (l *recordingLogger) Error(msg string, f cache.Fields) { l.record(msg, f) }

func (l *recordingLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

func newAside(t *testing.T, store cache.Store, opts ...cache.Option) *cache.Aside {
	t.Helper()
	if store == nil {
		var err error
		store, err = cache.NewStore(cache.DefaultConfig())
		if err != nil {
			t.Fatalf("new store: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
	}
	aside, err := cache.NewAside(store, cache.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("new aside: %v", err)
	}
	return aside
}

func newProductMock(t *testing.T) *mockRepository[catalog.Product] {
	t.Helper()
	products := testsupport.Products()
	base := newMockRepository[catalog.Product]("products")
	base.searchResult = products
	base.countResult = int64(len(products))
	base.getResult = products[0]
	return base
}

func priceRequest(start, end float64) query.Request {
	return query.NewRequest(query.FilterSpec{StartPrice: query.Float(start), EndPrice: query.Float(end)})
}

func TestCachedRepository_SearchCachesResult(t *testing.T) {
	ctx := context.Background()
	base := newProductMock(t)
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	first, n, err := repo.Search(ctx, priceRequest(100, 400))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	second, _, err := repo.Search(ctx, priceRequest(100, 400))
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if base.callCount("Search") != 1 {
		t.Fatalf("expected 1 base search, got %d", base.callCount("Search"))
	}
	if n != len(base.searchResult) {
		t.Fatalf("expected %d items, got %d", len(base.searchResult), n)
	}
	if len(first) != len(second) {
		t.Fatalf("cached result has %d items, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Name != second[i].Name || first[i].Price != second[i].Price {
			t.Fatalf("cached item %d differs:\n%+v\n%+v", i, first[i], second[i])
		}
	}
}

func TestCachedRepository_DistinctRequestsUseDistinctEntries(t *testing.T) {
	ctx := context.Background()
	base := newProductMock(t)
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	nextPage := priceRequest(100, 400)
	nextPage.Page.Page = 2

	byPrice := priceRequest(100, 400)
	byPrice.Sort = query.Sort{Field: "price", Direction: query.Descending}

	requests := []query.Request{
		priceRequest(100, 400),
		priceRequest(100, 500),
		query.NewRequest(query.FilterSpec{EndPrice: query.Float(400)}),
		query.NewRequest(query.FilterSpec{MinWidth: query.Float(100)}),
		query.NewRequest(query.FilterSpec{MaxWidth: query.Float(100)}),
		nextPage,
		byPrice,
	}
	for _, req := range requests {
		if _, _, err := repo.Search(ctx, req); err != nil {
			t.Fatalf("search: %v", err)
		}
	}

	if got := base.callCount("Search"); got != len(requests) {
		t.Fatalf("expected %d base searches, got %d", len(requests), got)
	}
}

func TestCachedRepository_EquivalentRequestsShareEntry(t *testing.T) {
	ctx := context.Background()
	base := newProductMock(t)
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	const (
		black = "65c000000000000000000002"
		white = "65c000000000000000000003"
	)

	a := query.NewRequest(query.FilterSpec{ColorIDs: []string{white, black}, Search: "stool"})
	b := query.NewRequest(query.FilterSpec{ColorIDs: []string{black, " " + white, black}, Search: "  stool "})

	if _, _, err := repo.Search(ctx, a); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, _, err := repo.Search(ctx, b); err != nil {
		t.Fatalf("search: %v", err)
	}

	if base.callCount("Search") != 1 {
		t.Fatalf("expected equivalent requests to share an entry, got %d base searches", base.callCount("Search"))
	}
	if got := base.lastRequest.Filter.ColorIDs; !reflect.DeepEqual(got, []string{black, white}) {
		t.Fatalf("expected normalized color ids, got %v", got)
	}
}

func TestCachedRepository_InvalidRequestSkipsCache(t *testing.T) {
	ctx := context.Background()
	store := testsupport.NewCountingStore(newStore(t))
	base := newProductMock(t)
	repo := MustNew[catalog.Product](base, newAside(t, store))

	_, _, err := repo.Search(ctx, priceRequest(400, 100))
	if !errors.Is(err, query.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var verr *query.ValidationError
	if !errors.As(err, &verr) || verr.Field != "end_price" {
		t.Fatalf("expected end_price field, got %v", err)
	}

	_, err = repo.Count(ctx, query.FilterSpec{MaxWeight: query.Float(-1)})
	if !errors.Is(err, query.ErrValidation) {
		t.Fatalf("expected validation error from count, got %v", err)
	}

	if base.callCount("Search") != 0 || base.callCount("Count") != 0 {
		t.Fatal("base repository must not be called for invalid requests")
	}
	if store.Calls("get") != 0 || store.Calls("set") != 0 {
		t.Fatalf("cache must not be touched, got %d gets %d sets", store.Calls("get"), store.Calls("set"))
	}
}

func TestCachedRepository_BaseErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	base := newProductMock(t)
	base.searchErr = &catalog.QueryExecutionError{Collection: "products", Op: "find", Err: errors.New("boom")}
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	for i := 0; i < 2; i++ {
		_, _, err := repo.Search(ctx, priceRequest(100, 400))
		var qerr *catalog.QueryExecutionError
		if !errors.As(err, &qerr) {
			t.Fatalf("expected query execution error, got %v", err)
		}
	}
	if base.callCount("Search") != 2 {
		t.Fatalf("expected errors to reach the base every time, got %d calls", base.callCount("Search"))
	}
}

func TestCachedRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	base := newProductMock(t)
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	id := base.getResult.ID.Hex()
	for _, in := range []string{id, " " + id + " "} {
		got, err := repo.GetByID(ctx, in)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ID != base.getResult.ID {
			t.Fatalf("unexpected record %+v", got)
		}
	}
	if base.callCount("GetByID") != 1 {
		t.Fatalf("expected 1 base get, got %d", base.callCount("GetByID"))
	}
}

func TestCachedRepository_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	base := newProductMock(t)
	base.getErr = &catalog.NotFoundError{Collection: "products", ID: "65d0000000000000000000ff"}
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(ctx, "65d0000000000000000000ff"); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if base.callCount("GetByID") != 2 {
		t.Fatalf("expected 2 base gets, got %d", base.callCount("GetByID"))
	}
}

func TestCachedRepository_CountAndListPage(t *testing.T) {
	ctx := context.Background()
	base := newProductMock(t)
	base.countResult = 23
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	req := priceRequest(0, 1000)
	req.Page = query.Pagination{Page: 2, PageSize: 10}

	page, err := repo.ListPage(ctx, req)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if page.Total != 23 || page.TotalPages != 3 || !page.HasNext || !page.HasPrev {
		t.Fatalf("unexpected page metadata %+v", page)
	}
	if len(page.Items) != len(base.searchResult) {
		t.Fatalf("expected %d items, got %d", len(base.searchResult), len(page.Items))
	}

	if _, err := repo.ListPage(ctx, req); err != nil {
		t.Fatalf("list page: %v", err)
	}
	total, err := repo.Count(ctx, req.Filter)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 23 {
		t.Fatalf("expected 23, got %d", total)
	}
	if base.callCount("Search") != 1 || base.callCount("Count") != 1 {
		t.Fatalf("expected one base call each, got search=%d count=%d", base.callCount("Search"), base.callCount("Count"))
	}
}

func TestCachedRepository_WritesInvalidate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		write func(repo *CachedRepository[catalog.Product], p catalog.Product) error
	}{
		{"create", func(repo *CachedRepository[catalog.Product], p catalog.Product) error {
			_, err := repo.Create(ctx, p)
			return err
		}},
		{"update", func(repo *CachedRepository[catalog.Product], p catalog.Product) error {
			_, err := repo.Update(ctx, p.ID.Hex(), func(rec *catalog.Product) error {
				rec.Price = 175
				return nil
			})
			return err
		}},
		{"archive", func(repo *CachedRepository[catalog.Product], p catalog.Product) error {
			return repo.Archive(ctx, p.ID.Hex())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := newProductMock(t)
			repo := MustNew[catalog.Product](base, newAside(t, nil))
			id := base.getResult.ID.Hex()

			if _, _, err := repo.Search(ctx, priceRequest(100, 400)); err != nil {
				t.Fatalf("search: %v", err)
			}
			if _, err := repo.GetByID(ctx, id); err != nil {
				t.Fatalf("get: %v", err)
			}
			if _, err := repo.Count(ctx, query.FilterSpec{}); err != nil {
				t.Fatalf("count: %v", err)
			}

			if err := tt.write(repo, base.getResult); err != nil {
				t.Fatalf("write: %v", err)
			}

			if _, _, err := repo.Search(ctx, priceRequest(100, 400)); err != nil {
				t.Fatalf("search: %v", err)
			}
			if _, err := repo.GetByID(ctx, id); err != nil {
				t.Fatalf("get: %v", err)
			}
			if _, err := repo.Count(ctx, query.FilterSpec{}); err != nil {
				t.Fatalf("count: %v", err)
			}

			for _, method := range []string{"Search", "GetByID", "Count"} {
				if got := base.callCount(method); got != 2 {
					t.Fatalf("expected %s to reach the base twice, got %d", method, got)
				}
			}
		})
	}
}

func TestCachedRepository_FailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	base := newProductMock(t)
	base.writeErr = errors.New("write failed")
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	if _, _, err := repo.Search(ctx, priceRequest(100, 400)); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := repo.Create(ctx, base.getResult); err == nil {
		t.Fatal("expected create error")
	}
	if err := repo.Archive(ctx, base.getResult.ID.Hex()); err == nil {
		t.Fatal("expected archive error")
	}
	if _, _, err := repo.Search(ctx, priceRequest(100, 400)); err != nil {
		t.Fatalf("search: %v", err)
	}

	if base.callCount("Search") != 1 {
		t.Fatalf("expected cached entry to survive failed writes, got %d base searches", base.callCount("Search"))
	}
}

func TestCachedRepository_DependenciesAndContextTags(t *testing.T) {
	ctx := context.Background()
	aside := newAside(t, nil)

	productsBase := newProductMock(t)
	products := MustNew[catalog.Product](productsBase, aside, WithDependencies("categories"))

	categoriesBase := newMockRepository[catalog.Category]("categories")
	categoriesBase.getResult = testsupport.Catalog().Categories[0]
	categories := MustNew[catalog.Category](categoriesBase, aside)

	colorsBase := newMockRepository[catalog.Color]("colors")
	colorsBase.getResult = testsupport.Catalog().Colors[0]
	colors := MustNew[catalog.Color](colorsBase, aside)

	search := func() {
		t.Helper()
		if _, _, err := products.Search(ctx, priceRequest(100, 400)); err != nil {
			t.Fatalf("search: %v", err)
		}
	}

	search()

	// A color write does not touch product reads unless asked to.
	if _, err := colors.Update(ctx, colorsBase.getResult.ID.Hex(), func(*catalog.Color) error { return nil }); err != nil {
		t.Fatalf("update color: %v", err)
	}
	search()
	if productsBase.callCount("Search") != 1 {
		t.Fatalf("expected unrelated write to keep entry, got %d", productsBase.callCount("Search"))
	}

	// Product reads depend on categories.
	if _, err := categories.Update(ctx, categoriesBase.getResult.ID.Hex(), func(c *catalog.Category) error {
		c.Name = "Desks"
		return nil
	}); err != nil {
		t.Fatalf("update category: %v", err)
	}
	search()
	if productsBase.callCount("Search") != 2 {
		t.Fatalf("expected dependency write to invalidate, got %d", productsBase.callCount("Search"))
	}

	// Context tags extend the invalidation of a single write.
	tagged := WithCacheTags(ctx, products.Tag())
	if _, err := colors.Update(tagged, colorsBase.getResult.ID.Hex(), func(*catalog.Color) error { return nil }); err != nil {
		t.Fatalf("update color: %v", err)
	}
	search()
	if productsBase.callCount("Search") != 3 {
		t.Fatalf("expected context tag to invalidate, got %d", productsBase.callCount("Search"))
	}
}

func TestCachedRepository_InvalidContextTagStillInvalidates(t *testing.T) {
	ctx := context.Background()
	log := &recordingLogger{}
	base := newProductMock(t)
	repo := MustNew[catalog.Product](base, newAside(t, nil), WithLogger(log))

	if _, _, err := repo.Search(ctx, priceRequest(100, 400)); err != nil {
		t.Fatalf("search: %v", err)
	}

	tagged := WithCacheTags(ctx, "Home-Page", "colors")
	if _, err := repo.Update(tagged, base.getResult.ID.Hex(), func(p *catalog.Product) error {
		p.Price = 175
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, _, err := repo.Search(ctx, priceRequest(100, 400)); err != nil {
		t.Fatalf("search: %v", err)
	}
	if base.callCount("Search") != 2 {
		t.Fatalf("expected the write to invalidate its own reads, got %d base searches", base.callCount("Search"))
	}

	entry, ok := log.find("cache tag ignored")
	if !ok || entry.fields["tag"] != "Home-Page" || entry.fields["op"] != "update" {
		t.Fatalf("expected the malformed tag to be logged, got %+v", entry)
	}
	if _, ok := log.find("cache invalidation failed"); ok {
		t.Fatal("valid tags must still be invalidated")
	}
}

func TestCachedRepository_StoreFailureIsTransparent(t *testing.T) {
	ctx := context.Background()
	log := &recordingLogger{}
	base := newProductMock(t)
	repo := MustNew[catalog.Product](base,
		newAside(t, testsupport.FailingStore{}, cache.WithLogger(log)),
		WithLogger(log),
	)

	for i := 0; i < 2; i++ {
		items, _, err := repo.Search(ctx, priceRequest(100, 400))
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(items) != len(base.searchResult) {
			t.Fatalf("expected %d items, got %d", len(base.searchResult), len(items))
		}
	}
	if base.callCount("Search") != 2 {
		t.Fatalf("expected every read to reach the base, got %d", base.callCount("Search"))
	}

	created, err := repo.Create(ctx, base.getResult)
	if err != nil {
		t.Fatalf("create must succeed when invalidation fails: %v", err)
	}
	if created.ID != base.getResult.ID {
		t.Fatalf("unexpected created record %+v", created)
	}

	entry, ok := log.find("cache invalidation failed")
	if !ok {
		t.Fatal("expected invalidation failure to be logged")
	}
	if entry.fields["op"] != "create" {
		t.Fatalf("expected op=create, got %v", entry.fields["op"])
	}
	if tags, _ := entry.fields["tags"].([]string); !reflect.DeepEqual(tags, []string{"products"}) {
		t.Fatalf("unexpected tags %v", entry.fields["tags"])
	}
}

func TestCachedRepository_WithTTLAndTemplates(t *testing.T) {
	ctx := context.Background()
	store := testsupport.NewCountingStore(newStore(t))
	base := newProductMock(t)

	tmpl := DefaultTemplates("shop_products")
	repo, err := New[catalog.Product](base, newAside(t, store), WithTemplates(tmpl), WithTTL(cache.DefaultConfig().DefaultTTL/2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := repo.GetByID(ctx, base.getResult.ID.Hex()); err != nil {
		t.Fatalf("get: %v", err)
	}
	keys := store.SetKeys()
	if len(keys) != 1 {
		t.Fatalf("expected one stored key, got %v", keys)
	}
	want := "shop_products:get:id=" + base.getResult.ID.Hex() + "#g=products.0"
	if keys[0] != want {
		t.Fatalf("expected key %q, got %q", want, keys[0])
	}
}

func TestNew_Errors(t *testing.T) {
	aside := newAside(t, nil)
	base := newProductMock(t)

	incomplete := DefaultTemplates("products")
	incomplete.Count = "products:count:price={start_price},{end_price}"

	tests := []struct {
		name    string
		base    Repository[catalog.Product]
		aside   *cache.Aside
		opts    []Option
		wantKey bool
	}{
		{name: "nil base", aside: aside},
		{name: "nil aside", base: base},
		{name: "no tag", base: newMockRepository[catalog.Product]("--"), aside: aside},
		{name: "template misses argument", base: base, aside: aside, opts: []Option{WithTemplates(incomplete)}, wantKey: true},
		{name: "bad dependency tag", base: base, aside: aside, opts: []Option{WithDependencies("Bad-Tag")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[catalog.Product](tt.base, tt.aside, tt.opts...)
			if err == nil {
				t.Fatal("expected error")
			}
			var kerr *cache.KeyTemplateError
			if tt.wantKey && !errors.As(err, &kerr) {
				t.Fatalf("expected key template error, got %v", err)
			}
		})
	}
}

func TestCoversArgs(t *testing.T) {
	if err := coversArgs(DefaultTemplates("products").List, query.Request{}); err != nil {
		t.Fatalf("default list template: %v", err)
	}
	if err := coversArgs(DefaultTemplates("products").Count, query.FilterSpec{}); err != nil {
		t.Fatalf("default count template: %v", err)
	}

	err := coversArgs("products:get", getParams{})
	var kerr *cache.KeyTemplateError
	if !errors.As(err, &kerr) || kerr.Placeholder != "id" {
		t.Fatalf("expected missing id, got %v", err)
	}
}

func TestCollectionTag(t *testing.T) {
	tests := map[string]string{
		"products":      "products",
		"Products":      "products",
		"shop.products": "shop_products",
		"product-color": "product_color",
		"__tmp__":       "tmp",
		"--":            "",
	}
	for in, want := range tests {
		if got := collectionTag(in); got != want {
			t.Errorf("collectionTag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithCacheTags(t *testing.T) {
	ctx := WithCacheTags(context.Background(), "categories", "", "colors")
	ctx = WithCacheTags(ctx, "colors", "materials")

	got := cacheTagsFromContext(ctx)
	want := []string{"categories", "colors", "materials"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got[0] = "mutated"
	if cacheTagsFromContext(ctx)[0] != "categories" {
		t.Fatal("returned tags must be a copy")
	}

	if tags := cacheTagsFromContext(WithCacheTags(context.Background())); tags != nil {
		t.Fatalf("expected no tags, got %v", tags)
	}
	//nolint:staticcheck // nil context is accepted
	if WithCacheTags(nil, "x") == nil {
		t.Fatal("expected a context")
	}
}

func TestCachedRepository_EndToEnd(t *testing.T) {
	ctx := context.Background()

	base, _ := testsupport.NewProductRepository(t)
	repo := MustNew[catalog.Product](base, newAside(t, nil))

	names := func(items []catalog.Product) []string {
		out := make([]string, len(items))
		for i, p := range items {
			out[i] = p.Name
		}
		return out
	}

	req := priceRequest(100, 400)
	req.Sort = query.Sort{Field: "price", Direction: query.Ascending}

	items, _, err := repo.Search(ctx, req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{"Oak Side Table", "Steel Bar Stool"}
	if !reflect.DeepEqual(names(items), want) {
		t.Fatalf("expected %v, got %v", want, names(items))
	}

	// Moving the dining table into range must show up on the next read.
	if _, err := repo.Update(ctx, "65d000000000000000000003", func(p *catalog.Product) error {
		p.Price = 350
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	items, _, err = repo.Search(ctx, req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want = []string{"Oak Side Table", "Steel Bar Stool", "Oak Dining Table"}
	if !reflect.DeepEqual(names(items), want) {
		t.Fatalf("expected %v after update, got %v", want, names(items))
	}

	// A failing store gives the same answers as a working one.
	uncached := MustNew[catalog.Product](base, newAside(t, testsupport.FailingStore{}))
	direct, _, err := uncached.Search(ctx, req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !reflect.DeepEqual(names(direct), names(items)) {
		t.Fatalf("expected %v without cache, got %v", names(items), names(direct))
	}
}

func newStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
