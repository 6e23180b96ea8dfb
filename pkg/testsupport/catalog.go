package testsupport

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/internal/docinfra"
	"github.com/goliatone/go-catalog-cache/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//go:embed testdata/catalog.json
var catalogJSON []byte

// CatalogFixture is the shared catalog data set. Its three products are
// priced 150, 300 and 500 with widths 60, 40 and 80.
type CatalogFixture struct {
	Categories []catalog.Category `json:"categories"`
	Materials  []catalog.Material `json:"materials"`
	Colors     []catalog.Color    `json:"colors"`
	Products   []catalog.Product  `json:"products"`
}

// Catalog returns a fresh copy of the fixture data set.
func Catalog() CatalogFixture {
	var f CatalogFixture
	if err := json.Unmarshal(catalogJSON, &f); err != nil {
		panic(fmt.Sprintf("testsupport: bad catalog fixture: %v", err))
	}
	return f
}

// Products returns the fixture products.
func Products() []catalog.Product { return Catalog().Products }

// SeedCollection inserts records into coll.
func SeedCollection[T any](t testing.TB, coll catalog.Collection, records ...T) {
	t.Helper()
	for i, rec := range records {
		if err := coll.Insert(context.Background(), rec); err != nil {
			t.Fatalf("seed %s record %d: %v", coll.Name(), i, err)
		}
	}
}

// Collections is an in-memory document store holding the fixture.
type Collections struct {
	Products   *docinfra.MemoryCollection
	Categories *docinfra.MemoryCollection
	Materials  *docinfra.MemoryCollection
	Colors     *docinfra.MemoryCollection
}

// NewCollections builds in-memory collections seeded with Catalog().
func NewCollections(t testing.TB) Collections {
	t.Helper()

	f := Catalog()
	c := Collections{
		Products:   docinfra.NewMemoryCollection("products"),
		Categories: docinfra.NewMemoryCollection("categories"),
		Materials:  docinfra.NewMemoryCollection("materials"),
		Colors:     docinfra.NewMemoryCollection("colors"),
	}
	SeedCollection(t, c.Products, f.Products...)
	SeedCollection(t, c.Categories, f.Categories...)
	SeedCollection(t, c.Materials, f.Materials...)
	SeedCollection(t, c.Colors, f.Colors...)
	return c
}

// NewProductRepository returns a product repository over a seeded in-memory
// collection, together with that collection.
func NewProductRepository(t testing.TB, opts ...catalog.Option) (*catalog.Repository[catalog.Product], *docinfra.MemoryCollection) {
	t.Helper()

	coll := docinfra.NewMemoryCollection("products")
	SeedCollection(t, coll, Products()...)

	repo, err := catalog.NewRepository[catalog.Product](coll, opts...)
	if err != nil {
		t.Fatalf("new product repository: %v", err)
	}
	return repo, coll
}

// FailingCollection is a catalog.Collection whose every call returns Err.
type FailingCollection struct {
	CollectionName string
	Err            error
}

func (f FailingCollection) Name() string { return f.CollectionName }

func (f FailingCollection) Find(context.Context, query.Query, query.Pagination, query.Sort) ([]bson.Raw, error) {
	return nil, f.Err
}

func (f FailingCollection) Count(context.Context, query.Query) (int64, error) { return 0, f.Err }

func (f FailingCollection) Insert(context.Context, any) error { return f.Err }

func (f FailingCollection) Replace(context.Context, primitive.ObjectID, any) (int64, error) { return 0, f.Err }
