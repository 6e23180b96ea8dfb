package docinfra

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/goliatone/go-catalog-cache/query"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MongoConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*MongoConfig) {}},
		{name: "srv uri", mutate: func(c *MongoConfig) { c.URI = "mongodb+srv://cluster.example.com" }},
		{name: "empty uri", mutate: func(c *MongoConfig) { c.URI = "" }, wantErr: true},
		{name: "http uri", mutate: func(c *MongoConfig) { c.URI = "http://localhost" }, wantErr: true},
		{name: "no database", mutate: func(c *MongoConfig) { c.Database = "" }, wantErr: true},
		{name: "no timeout", mutate: func(c *MongoConfig) { c.ConnectTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMongoConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConnect_InvalidConfig(t *testing.T) {
	if _, err := Connect(context.Background(), MongoConfig{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestProductIndexes(t *testing.T) {
	idx := ProductIndexes()
	if len(idx) != 5 {
		t.Fatalf("expected 5 indexes, got %d", len(idx))
	}
	first, ok := idx[0].Keys.(bson.D)
	if !ok || first[0].Key != query.FieldArchived || first[1].Key != "price" {
		t.Fatalf("unexpected first index %v", idx[0].Keys)
	}
}

// TestMongoCollection_AgainstServer runs the shared query semantics against a
// real server. Set CATALOG_TEST_MONGO_URI to enable it.
func TestMongoCollection_AgainstServer(t *testing.T) {
	uri := os.Getenv("CATALOG_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CATALOG_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := DefaultMongoConfig()
	cfg.URI = uri
	cfg.Database = "catalog_test"
	client, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(context.Background())

	raw := client.Database(cfg.Database).Collection(fmt.Sprintf("products_%d", time.Now().UnixNano()))
	defer raw.Drop(context.Background())

	c := NewMongoCollection(raw)
	if err := c.EnsureIndexes(ctx, ProductIndexes()); err != nil {
		t.Fatalf("indexes: %v", err)
	}

	for _, d := range []bson.D{
		product(1, "p150", 150, 60),
		product(2, "p300", 300, 40),
		product(3, "p500", 500, 80),
	} {
		if err := c.Insert(ctx, d); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	q, err := query.Build(query.FilterSpec{StartPrice: query.Float(100), EndPrice: query.Float(300), MinWidth: query.Float(50)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	docs, err := c.Find(ctx, q, query.DefaultPagination(), query.DefaultSort())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := names(t, docs); len(got) != 1 || got[0] != "p150" {
		t.Fatalf("expected only p150, got %v", got)
	}

	n, err := c.Count(ctx, query.BuildSearch(""))
	if err != nil || n != 3 {
		t.Fatalf("expected count 3, got %d (%v)", n, err)
	}
}
