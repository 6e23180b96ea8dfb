package query

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
)

// Predicate is one conjunct of a structured query. Field paths are dotted
// document paths such as "dimensions.width".
type Predicate interface {
	element() bson.E
}

// Range matches numeric values within inclusive bounds. A nil bound is open.
type Range struct {
	Field string
	Min   *float64
	Max   *float64
}

func (r Range) element() bson.E {
	cond := bson.D{}
	if r.Min != nil {
		cond = append(cond, bson.E{Key: "$gte", Value: *r.Min})
	}
	if r.Max != nil {
		cond = append(cond, bson.E{Key: "$lte", Value: *r.Max})
	}
	return bson.E{Key: r.Field, Value: cond}
}

// Equals matches an exact value, or any element equal to it for array fields.
type Equals struct {
	Field string
	Value any
}

func (e Equals) element() bson.E { return bson.E{Key: e.Field, Value: e.Value} }

// In matches when the field, or any of its elements, is one of Values.
type In struct {
	Field  string
	Values []any
}

func (in In) element() bson.E {
	return bson.E{Key: in.Field, Value: bson.D{{Key: "$in", Value: bson.A(in.Values)}}}
}

// NotTrue matches documents where the field is absent or anything but true.
type NotTrue struct {
	Field string
}

func (n NotTrue) element() bson.E {
	return bson.E{Key: n.Field, Value: bson.D{{Key: "$ne", Value: true}}}
}

// TextSearch matches a case-insensitive literal substring in any of Fields.
type TextSearch struct {
	Fields []string
	Term   string
}

// Pattern is Term as a regular expression with metacharacters escaped.
func (t TextSearch) Pattern() string { return regexp.QuoteMeta(t.Term) }

func (t TextSearch) element() bson.E {
	alts := make(bson.A, len(t.Fields))
	for i, f := range t.Fields {
		alts[i] = bson.D{{Key: f, Value: bson.D{
			{Key: "$regex", Value: t.Pattern()},
			{Key: "$options", Value: "i"},
		}}}
	}
	return bson.E{Key: "$or", Value: alts}
}

// Query is a conjunction of predicates. The zero Query matches everything.
type Query struct {
	Predicates []Predicate
}

// And returns a copy of q with more predicates.
func (q Query) And(p ...Predicate) Query {
	out := make([]Predicate, 0, len(q.Predicates)+len(p))
	out = append(out, q.Predicates...)
	out = append(out, p...)
	return Query{Predicates: out}
}

// Match renders the query as a store-native match document.
func (q Query) Match() bson.D {
	doc := make(bson.D, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		doc = append(doc, p.element())
	}
	return doc
}
