package docinfra

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-catalog-cache/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicateID is returned when inserting a document whose _id exists.
var ErrDuplicateID = errors.New("docinfra: duplicate _id")

// MemoryCollection is an in-process document collection that evaluates
// structured queries with the same semantics as MongoCollection. Documents
// are stored as marshaled BSON, so readers always get independent copies.
type MemoryCollection struct {
	name string

	mu    sync.RWMutex
	docs  []bson.Raw
	index map[primitive.ObjectID]int
}

func NewMemoryCollection(name string) *MemoryCollection {
	return &MemoryCollection{name: name, index: make(map[primitive.ObjectID]int)}
}

func (c *MemoryCollection) Name() string { return c.name }

// Find applies match, sort, skip and limit in that order.
func (c *MemoryCollection) Find(ctx context.Context, q query.Query, page query.Pagination, srt query.Sort) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matched, err := c.match(q)
	if err != nil {
		return nil, err
	}

	keys := srt.Document()
	sort.SliceStable(matched, func(i, j int) bool {
		for _, k := range keys {
			dir, _ := k.Value.(int)
			cmp := compare(sortKeyValue(matched[i], k.Key, dir), sortKeyValue(matched[j], k.Key, dir))
			if cmp == 0 {
				continue
			}
			if dir < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	skip, limit := page.Skip(), page.Limit()
	if skip >= int64(len(matched)) {
		return []bson.Raw{}, nil
	}
	matched = matched[skip:]
	if limit > 0 && limit < int64(len(matched)) {
		matched = matched[:limit]
	}

	out := make([]bson.Raw, len(matched))
	for i, doc := range matched {
		out[i] = append(bson.Raw(nil), doc...)
	}
	return out, nil
}

func (c *MemoryCollection) Count(ctx context.Context, q query.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	matched, err := c.match(q)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Insert stores doc, which must marshal to a document with an ObjectID _id.
func (c *MemoryCollection) Insert(ctx context.Context, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, id, err := marshalDocument(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id.Hex())
	}
	c.index[id] = len(c.docs)
	c.docs = append(c.docs, raw)
	return nil
}

func (c *MemoryCollection) Replace(ctx context.Context, id primitive.ObjectID, doc any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	raw, docID, err := marshalDocument(doc)
	if err != nil {
		return 0, err
	}
	if docID != id {
		return 0, fmt.Errorf("docinfra: replacement _id %s does not match %s", docID.Hex(), id.Hex())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return 0, nil
	}
	c.docs[i] = raw
	return 1, nil
}

// Len reports the number of stored documents, archived ones included.
func (c *MemoryCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *MemoryCollection) match(q query.Query) ([]bson.Raw, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []bson.Raw
	for _, doc := range c.docs {
		ok, err := Matches(q, doc)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func marshalDocument(doc any) (bson.Raw, primitive.ObjectID, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, primitive.NilObjectID, fmt.Errorf("docinfra: marshal document: %w", err)
	}
	raw := bson.Raw(data)

	id, ok := raw.Lookup("_id").ObjectIDOK()
	if !ok || id.IsZero() {
		return nil, primitive.NilObjectID, errors.New("docinfra: document needs an ObjectID _id")
	}
	return raw, id, nil
}
