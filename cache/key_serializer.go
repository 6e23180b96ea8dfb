package cache

import (
	"encoding"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ListSeparator joins the elements of a list value inside a single placeholder.
// Elements are escaped before joining, so the separator never appears inside one.
const ListSeparator = ","

type zeroer interface {
	IsZero() bool
}

type hexer interface {
	Hex() string
}

var (
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	zeroerType        = reflect.TypeOf((*zeroer)(nil)).Elem()
	hexerType         = reflect.TypeOf((*hexer)(nil)).Elem()
	timeType          = reflect.TypeOf(time.Time{})
)

// Stringify renders a parameter value as the canonical text used inside cache keys.
//
// nil, nil pointers, empty strings and empty lists all render as "". Floats use
// the shortest representation that round trips. Values implementing IsZero report
// "" when zero, so an unset object id and a missing one share a key. Map entries
// are sorted by key. Functions and channels are rejected because their identity
// is not stable across processes.
func Stringify(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	return stringifyValue(reflect.ValueOf(v))
}

func stringifyValue(rv reflect.Value) (string, error) {
	if !rv.IsValid() {
		return "", nil
	}

	rt := rv.Type()

	if rt.Kind() == reflect.Ptr || rt.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", nil
		}
		return stringifyValue(rv.Elem())
	}

	if rt.Implements(zeroerType) && rv.Interface().(zeroer).IsZero() {
		return "", nil
	}

	if rt == timeType {
		return rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano), nil
	}

	if rt.Implements(hexerType) {
		return rv.Interface().(hexer).Hex(), nil
	}

	if rt.Implements(textMarshalerType) {
		text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", fmt.Errorf("marshal %s key text: %w", rt, err)
		}
		return string(text), nil
	}

	switch rt.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(positiveZero(rv.Float()), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(positiveZero(rv.Float()), 'g', -1, 64), nil
	case reflect.Slice, reflect.Array:
		return stringifyList(rv)
	case reflect.Map:
		return stringifyMap(rv)
	case reflect.Struct:
		return stringifyStruct(rv, rt)
	}

	return "", fmt.Errorf("unsupported key value of kind %s", rt.Kind())
}

// stringifyList keeps element order. Callers that treat a list as a set
// canonicalize it before binding.
func stringifyList(rv reflect.Value) (string, error) {
	length := rv.Len()
	if length == 0 {
		return "", nil
	}

	parts := make([]string, length)
	for i := 0; i < length; i++ {
		s, err := stringifyValue(rv.Index(i))
		if err != nil {
			return "", err
		}
		parts[i] = url.QueryEscape(s)
	}

	return strings.Join(parts, ListSeparator), nil
}

func stringifyMap(rv reflect.Value) (string, error) {
	if rv.Len() == 0 {
		return "", nil
	}

	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := stringifyValue(iter.Key())
		if err != nil {
			return "", err
		}
		v, err := stringifyValue(iter.Value())
		if err != nil {
			return "", err
		}
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	sort.Strings(pairs)

	return strings.Join(pairs, ListSeparator), nil
}

func stringifyStruct(rv reflect.Value, rt reflect.Type) (string, error) {
	parts := make([]string, 0, rv.NumField())

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		name := fieldKeyName(field)
		if !field.IsExported() || name == "-" {
			continue
		}

		s, err := stringifyValue(rv.Field(i))
		if err != nil {
			return "", err
		}
		parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(s))
	}

	return strings.Join(parts, ListSeparator), nil
}

// positiveZero folds -0 into 0 so both render the same key.
func positiveZero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}
