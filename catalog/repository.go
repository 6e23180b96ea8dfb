package catalog

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-catalog-cache/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultQueryTimeout bounds every document store call.
const DefaultQueryTimeout = 5 * time.Second

// Collection is the document store boundary. Implementations evaluate a
// structured query with match, sort, skip and limit applied in that order.
type Collection interface {
	Name() string
	Find(ctx context.Context, q query.Query, page query.Pagination, sort query.Sort) ([]bson.Raw, error)
	Count(ctx context.Context, q query.Query) (int64, error)
	Insert(ctx context.Context, doc any) error
	// Replace swaps the document with the given id and reports how many
	// documents matched.
	Replace(ctx context.Context, id primitive.ObjectID, doc any) (int64, error)
}

// Repository runs typed, paginated reads and writes against one collection.
// *T must implement Record, which every type embedding Base does.
type Repository[T any] struct {
	coll    Collection
	build   query.BuildFunc
	timeout time.Duration
	now     func() time.Time
}

type Option func(*repoOptions)

type repoOptions struct {
	build   query.BuildFunc
	timeout time.Duration
	now     func() time.Time
}

// WithBuilder sets how filters become queries. The default is query.Build,
// the product builder.
func WithBuilder(b query.BuildFunc) Option {
	return func(o *repoOptions) { o.build = b }
}

// WithQueryTimeout bounds each store call. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *repoOptions) { o.timeout = d }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *repoOptions) { o.now = now }
}

func NewRepository[T any](coll Collection, opts ...Option) (*Repository[T], error) {
	if coll == nil {
		return nil, fmt.Errorf("catalog: collection is required")
	}
	var probe T
	if _, ok := any(&probe).(Record); !ok {
		return nil, fmt.Errorf("catalog: %T does not embed catalog.Base", probe)
	}

	o := repoOptions{build: query.Build, timeout: DefaultQueryTimeout, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Repository[T]{coll: coll, build: o.build, timeout: o.timeout, now: o.now}, nil
}

// Collection names the backing collection.
func (r *Repository[T]) Collection() string { return r.coll.Name() }

// Query executes a structured query and returns the typed records of the
// requested page with their count. It does not compute a total.
func (r *Repository[T]) Query(ctx context.Context, q query.Query, page query.Pagination, sort query.Sort) ([]T, int, error) {
	ctx, cancel := r.context(ctx)
	defer cancel()

	docs, err := r.coll.Find(ctx, q, page, sort)
	if err != nil {
		return nil, 0, &QueryExecutionError{Collection: r.coll.Name(), Op: "find", Err: err}
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := r.decode(doc)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, len(items), nil
}

// Search validates a request, builds its query and runs it.
func (r *Repository[T]) Search(ctx context.Context, req query.Request) ([]T, int, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}
	q, err := r.build(req.Filter)
	if err != nil {
		return nil, 0, err
	}
	return r.Query(ctx, q, req.Page, req.Sort)
}

// Count returns the number of live records matching filter across all pages.
func (r *Repository[T]) Count(ctx context.Context, filter query.FilterSpec) (int64, error) {
	q, err := r.build(filter)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.context(ctx)
	defer cancel()

	n, err := r.coll.Count(ctx, q)
	if err != nil {
		return 0, &QueryExecutionError{Collection: r.coll.Name(), Op: "count", Err: err}
	}
	return n, nil
}

// Page runs Search and Count for the same request.
func (r *Repository[T]) Page(ctx context.Context, req query.Request) (Page[T], error) {
	items, _, err := r.Search(ctx, req)
	if err != nil {
		return Page[T]{}, err
	}
	total, err := r.Count(ctx, req.Filter)
	if err != nil {
		return Page[T]{}, err
	}
	return NewPage(items, total, req.Page), nil
}

// GetByID returns the live record with the given hex id. A malformed id can
// name no record and is reported as not found.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return zero, &NotFoundError{Collection: r.coll.Name(), ID: id}
	}

	items, _, err := r.Query(ctx, query.ByID(oid), query.Pagination{Page: 1, PageSize: 1}, query.DefaultSort())
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, &NotFoundError{Collection: r.coll.Name(), ID: id}
	}
	return items[0], nil
}

// Create assigns an id when the record has none, stamps both timestamps and
// inserts the record.
func (r *Repository[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T

	meta := any(&rec).(Record).Meta()
	if meta.ID.IsZero() {
		meta.ID = primitive.NewObjectID()
	}
	now := r.stamp()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.IsArchived = false

	if err := validateRecord(rec); err != nil {
		return zero, err
	}

	ctx, cancel := r.context(ctx)
	defer cancel()

	if err := r.coll.Insert(ctx, rec); err != nil {
		return zero, &QueryExecutionError{Collection: r.coll.Name(), Op: "insert", Err: err}
	}
	return rec, nil
}

// Update loads the record, applies mutate and replaces the stored document.
// The id and creation time survive mutate. There is no version check, so two
// concurrent updates of one record keep the last write.
func (r *Repository[T]) Update(ctx context.Context, id string, mutate func(*T) error) (T, error) {
	var zero T

	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}
	orig := *any(&rec).(Record).Meta()

	if err := mutate(&rec); err != nil {
		return zero, err
	}

	meta := any(&rec).(Record).Meta()
	meta.ID = orig.ID
	meta.CreatedAt = orig.CreatedAt
	meta.UpdatedAt = r.stamp()

	if err := validateRecord(rec); err != nil {
		return zero, err
	}

	ctx, cancel := r.context(ctx)
	defer cancel()

	matched, err := r.coll.Replace(ctx, orig.ID, rec)
	if err != nil {
		return zero, &QueryExecutionError{Collection: r.coll.Name(), Op: "replace", Err: err}
	}
	if matched == 0 {
		return zero, &NotFoundError{Collection: r.coll.Name(), ID: id}
	}
	return rec, nil
}

// Archive soft deletes a record. Archived records never match a read.
func (r *Repository[T]) Archive(ctx context.Context, id string) error {
	_, err := r.Update(ctx, id, func(rec *T) error {
		any(rec).(Record).Meta().IsArchived = true
		return nil
	})
	return err
}

func (r *Repository[T]) decode(doc bson.Raw) (T, error) {
	var rec, zero T
	if err := bson.Unmarshal(doc, &rec); err != nil {
		return zero, &InvalidDocumentError{Collection: r.coll.Name(), ID: rawID(doc), Err: err}
	}
	if v, ok := any(rec).(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return zero, &InvalidDocumentError{Collection: r.coll.Name(), ID: rawID(doc), Err: err}
		}
	}
	return rec, nil
}

func (r *Repository[T]) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// stamp truncates to the millisecond precision of stored dates so records
// read back compare equal.
func (r *Repository[T]) stamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func validateRecord(rec any) error {
	if v, ok := rec.(validation.Validatable); ok {
		return query.NewValidationError(v.Validate())
	}
	return nil
}

func rawID(doc bson.Raw) string {
	if oid, ok := doc.Lookup("_id").ObjectIDOK(); ok {
		return oid.Hex()
	}
	return ""
}
