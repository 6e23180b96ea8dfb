package docinfra

import (
	"context"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-catalog-cache/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig describes the MongoDB connection shared by every collection.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "catalog",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    100,
	}
}

var mongoURI = regexp.MustCompile(`^mongodb(\+srv)?://`)

func (c MongoConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URI, validation.Required, validation.Match(mongoURI)),
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.ConnectTimeout, validation.Required),
	)
}

// Connect opens the client and pings the primary. The client is safe for
// concurrent use and should be created once per process.
func Connect(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("docinfra: invalid mongo config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("docinfra: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("docinfra: ping: %w", err)
	}
	return client, nil
}

// MongoCollection executes structured queries as aggregation pipelines.
type MongoCollection struct {
	coll *mongo.Collection
}

func NewMongoCollection(coll *mongo.Collection) *MongoCollection {
	return &MongoCollection{coll: coll}
}

func (c *MongoCollection) Name() string { return c.coll.Name() }

func (c *MongoCollection) Find(ctx context.Context, q query.Query, page query.Pagination, sort query.Sort) ([]bson.Raw, error) {
	cur, err := c.coll.Aggregate(ctx, query.Pipeline(q, page, sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]bson.Raw, 0, page.Limit())
	for cur.Next(ctx) {
		out = append(out, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MongoCollection) Count(ctx context.Context, q query.Query) (int64, error) {
	return c.coll.CountDocuments(ctx, q.Match())
}

func (c *MongoCollection) Insert(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateID, err)
	}
	return err
}

func (c *MongoCollection) Replace(ctx context.Context, id primitive.ObjectID, doc any) (int64, error) {
	res, err := c.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// ProductIndexes are the secondary indexes the product filters rely on.
func ProductIndexes() []mongo.IndexModel {
	asc := func(fields ...string) mongo.IndexModel {
		keys := bson.D{}
		for _, f := range fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}
		return mongo.IndexModel{Keys: keys}
	}
	return []mongo.IndexModel{
		asc(query.FieldArchived, "price"),
		asc(query.FieldCategoryID),
		asc(query.FieldMaterialID),
		asc(query.FieldColorIDs),
		asc("created_at"),
	}
}

// EnsureIndexes creates models on the collection. Existing identical indexes
// are left alone by the server.
func (c *MongoCollection) EnsureIndexes(ctx context.Context, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := c.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("docinfra: create indexes on %s: %w", c.coll.Name(), err)
	}
	return nil
}
