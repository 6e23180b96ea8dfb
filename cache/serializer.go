package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Serialize converts a value (a record, a list of records, a count) into a
// plain representation built only from maps, lists, strings, numbers, bools and
// nil. Object ids and timestamps become strings through their JSON encoding.
// Serialize is idempotent: serializing its own output returns an equal value.
func Serialize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Type: typeName(v), Err: err}
	}

	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, &SerializationError{Type: typeName(v), Err: err}
	}
	return plain, nil
}

// Deserialize rebuilds a T from its plain representation. Unknown fields, type
// mismatches, a null payload for a struct and records failing their own
// Validate method are all reported as a DeserializationError together with the
// zero value of T.
func Deserialize[T any](plain any) (T, error) {
	var zero T
	name := reflect.TypeOf((*T)(nil)).Elem().String()

	if plain == nil && nonNullable(reflect.TypeOf((*T)(nil)).Elem()) {
		return zero, &DeserializationError{Type: name, Err: errors.New("null payload")}
	}

	data, err := json.Marshal(plain)
	if err != nil {
		return zero, &DeserializationError{Type: name, Err: err}
	}

	var out T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return zero, &DeserializationError{Type: name, Err: err}
	}

	if err := validateDecoded(out); err != nil {
		return zero, &DeserializationError{Type: name, Err: err}
	}
	return out, nil
}

func validateDecoded(v any) error {
	if val, ok := v.(validation.Validatable); ok {
		return val.Validate()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if val, ok := elem.(validation.Validatable); ok {
			if err := val.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

func nonNullable(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Struct, reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
