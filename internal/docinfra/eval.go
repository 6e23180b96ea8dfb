package docinfra

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-catalog-cache/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Matches evaluates q against one document with the semantics of the
// equivalent MongoDB match stage: a predicate on an array field holds when any
// element satisfies it, and a missing field satisfies only NotTrue.
func Matches(q query.Query, doc bson.Raw) (bool, error) {
	for _, p := range q.Predicates {
		ok, err := matchPredicate(p, doc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchPredicate(p query.Predicate, doc bson.Raw) (bool, error) {
	switch p := p.(type) {
	case query.Range:
		return anyValue(doc, p.Field, func(v bson.RawValue) bool {
			n, ok := number(v)
			if !ok {
				return false
			}
			return (p.Min == nil || n >= *p.Min) && (p.Max == nil || n <= *p.Max)
		}), nil

	case query.Equals:
		target, err := rawValue(p.Value)
		if err != nil {
			return false, err
		}
		return anyValue(doc, p.Field, func(v bson.RawValue) bool { return equal(v, target) }), nil

	case query.In:
		targets := make([]bson.RawValue, 0, len(p.Values))
		for _, val := range p.Values {
			t, err := rawValue(val)
			if err != nil {
				return false, err
			}
			targets = append(targets, t)
		}
		return anyValue(doc, p.Field, func(v bson.RawValue) bool {
			for _, t := range targets {
				if equal(v, t) {
					return true
				}
			}
			return false
		}), nil

	case query.NotTrue:
		return !anyValue(doc, p.Field, func(v bson.RawValue) bool {
			b, ok := v.BooleanOK()
			return ok && b
		}), nil

	case query.TextSearch:
		re, err := regexp.Compile("(?i)" + p.Pattern())
		if err != nil {
			return false, err
		}
		for _, field := range p.Fields {
			hit := anyValue(doc, field, func(v bson.RawValue) bool {
				s, ok := v.StringValueOK()
				return ok && re.MatchString(s)
			})
			if hit {
				return true, nil
			}
		}
		return false, nil
	}

	return false, fmt.Errorf("docinfra: unsupported predicate %T", p)
}

// values resolves a dotted path. An array at the leaf yields its elements.
func values(doc bson.Raw, path string) []bson.RawValue {
	v, err := doc.LookupErr(strings.Split(path, ".")...)
	if err != nil {
		return nil
	}
	if arr, ok := v.ArrayOK(); ok {
		elems, err := arr.Values()
		if err != nil {
			return nil
		}
		return elems
	}
	return []bson.RawValue{v}
}

func anyValue(doc bson.Raw, path string, fn func(bson.RawValue) bool) bool {
	for _, v := range values(doc, path) {
		if fn(v) {
			return true
		}
	}
	return false
}

func rawValue(v any) (bson.RawValue, error) {
	t, data, err := bson.MarshalValue(v)
	if err != nil {
		return bson.RawValue{}, fmt.Errorf("docinfra: predicate value %v: %w", v, err)
	}
	return bson.RawValue{Type: t, Value: data}, nil
}

func number(v bson.RawValue) (float64, bool) {
	if f, ok := v.DoubleOK(); ok {
		return f, true
	}
	if i, ok := v.Int32OK(); ok {
		return float64(i), true
	}
	if i, ok := v.Int64OK(); ok {
		return float64(i), true
	}
	return 0, false
}

// equal compares numbers by value across numeric types and everything else
// by type and bytes.
func equal(a, b bson.RawValue) bool {
	if na, ok := number(a); ok {
		nb, ok := number(b)
		return ok && na == nb
	}
	return a.Type == b.Type && bytes.Equal(a.Value, b.Value)
}

// typeRank follows the MongoDB cross-type sort order.
func typeRank(t bsontype.Type) int {
	switch t {
	case bsontype.MinKey:
		return 0
	case 0, bsontype.Null, bsontype.Undefined:
		return 1
	case bsontype.Double, bsontype.Int32, bsontype.Int64, bsontype.Decimal128:
		return 2
	case bsontype.String, bsontype.Symbol:
		return 3
	case bsontype.EmbeddedDocument:
		return 4
	case bsontype.Array:
		return 5
	case bsontype.Binary:
		return 6
	case bsontype.ObjectID:
		return 7
	case bsontype.Boolean:
		return 8
	case bsontype.DateTime:
		return 9
	case bsontype.Timestamp:
		return 10
	case bsontype.Regex:
		return 11
	case bsontype.MaxKey:
		return 13
	}
	return 12
}

// compare orders two values the way a MongoDB sort stage does. A missing
// value (zero RawValue) sorts as null.
func compare(a, b bson.RawValue) int {
	ra, rb := typeRank(a.Type), typeRank(b.Type)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 1:
		return 0
	case 2:
		na, _ := number(a)
		nb, _ := number(b)
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case 3:
		return strings.Compare(a.StringValue(), b.StringValue())
	case 8:
		ba, bb := a.Boolean(), b.Boolean()
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case 9:
		da, db := a.DateTime(), b.DateTime()
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	}
	// ObjectIDs and the remaining types order by their encoded bytes.
	return bytes.Compare(a.Value, b.Value)
}

// sortKeyValue is the value a document sorts by: the whole value at path, or
// for arrays the smallest element ascending and the largest descending.
func sortKeyValue(doc bson.Raw, path string, dir int) bson.RawValue {
	v, err := doc.LookupErr(strings.Split(path, ".")...)
	if err != nil {
		return bson.RawValue{}
	}
	arr, ok := v.ArrayOK()
	if !ok {
		return v
	}
	elems, err := arr.Values()
	if err != nil || len(elems) == 0 {
		return bson.RawValue{}
	}
	best := elems[0]
	for _, e := range elems[1:] {
		c := compare(e, best)
		if (dir >= 0 && c < 0) || (dir < 0 && c > 0) {
			best = e
		}
	}
	return best
}
