package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Document field paths used by the builders.
const (
	FieldID         = "_id"
	FieldArchived   = "is_archived"
	FieldCategoryID = "category._id"
	FieldMaterialID = "material_id"
	FieldColorIDs   = "color_ids"
)

// SearchFields are matched by the free text search term.
var SearchFields = []string{"name", "short_name", "description"}

// BuildFunc turns a filter into a structured query for one collection.
type BuildFunc func(FilterSpec) (Query, error)

// Build translates a product filter into a structured query. The filter is
// validated first; an invalid filter yields a ValidationError and no query.
// Archived records are always excluded.
func Build(f FilterSpec) (Query, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return Query{}, err
	}

	q := Query{Predicates: []Predicate{NotTrue{Field: FieldArchived}}}

	for _, r := range f.ranges() {
		if r.min == nil && r.max == nil {
			continue
		}
		q.Predicates = append(q.Predicates, Range{Field: r.field, Min: r.min, Max: r.max})
	}

	if f.CategoryID != "" {
		q.Predicates = append(q.Predicates, Equals{Field: FieldCategoryID, Value: mustObjectID(f.CategoryID)})
	}
	if f.MaterialID != "" {
		q.Predicates = append(q.Predicates, Equals{Field: FieldMaterialID, Value: mustObjectID(f.MaterialID)})
	}
	if len(f.ColorIDs) > 0 {
		ids := make([]any, len(f.ColorIDs))
		for i, c := range f.ColorIDs {
			ids[i] = mustObjectID(c)
		}
		q.Predicates = append(q.Predicates, In{Field: FieldColorIDs, Values: ids})
	}
	if f.Search != "" {
		q.Predicates = append(q.Predicates, TextSearch{Fields: SearchFields, Term: f.Search})
	}

	return q, nil
}

// BuildSearch matches non-archived records containing term in any of fields,
// SearchFields when none are given. An empty term matches every live record.
func BuildSearch(term string, fields ...string) Query {
	if len(fields) == 0 {
		fields = SearchFields
	}
	q := Query{Predicates: []Predicate{NotTrue{Field: FieldArchived}}}
	if term = strings.TrimSpace(term); term != "" {
		q.Predicates = append(q.Predicates, TextSearch{Fields: fields, Term: term})
	}
	return q
}

// BuildNameSearch is the BuildFunc for lookup collections (categories,
// materials, colors). Only the search term applies to them.
func BuildNameSearch(f FilterSpec) (Query, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return Query{}, err
	}
	return BuildSearch(f.Search, "name", "short_name"), nil
}

// ByID matches the live record with the given id.
func ByID(id primitive.ObjectID) Query {
	return Query{Predicates: []Predicate{
		Equals{Field: FieldID, Value: id},
		NotTrue{Field: FieldArchived},
	}}
}

// Pipeline renders match, sort, skip and limit stages in that order.
func Pipeline(q Query, page Pagination, sort Sort) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: q.Match()}},
		{{Key: "$sort", Value: sort.Document()}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: page.Limit()}},
	}
}

// mustObjectID is only called on validated hex ids.
func mustObjectID(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		panic("query: unvalidated object id " + hex)
	}
	return id
}
