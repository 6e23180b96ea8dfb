package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// BindArgs extracts the named key arguments of a read's parameters.
//
// A KeyArgser is asked directly. A struct (or pointer to one) contributes its
// exported fields, named by the `key` tag, then the `json` tag name, then the
// snake_case of the field name. A tag of "-" skips the field. Maps with string
// keys are copied.
func BindArgs(params any) (map[string]any, error) {
	if ka, ok := params.(KeyArgser); ok {
		return ka.KeyArgs(), nil
	}
	if params == nil {
		return map[string]any{}, nil
	}

	rv := reflect.ValueOf(params)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			rv = reflect.New(rv.Type().Elem()).Elem()
			continue
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		rt := rv.Type()
		args := make(map[string]any, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := fieldKeyName(field)
			if name == "-" {
				continue
			}
			args[name] = rv.Field(i).Interface()
		}
		return args, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cache: map parameters need string keys, got %s", rv.Type())
		}
		args := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			args[iter.Key().String()] = iter.Value().Interface()
		}
		return args, nil
	}

	return nil, fmt.Errorf("cache: cannot bind key arguments from %s", rv.Type())
}

// paramNames returns the argument names bound by the zero value of P.
func paramNames[P any]() ([]string, error) {
	var zero P
	var params any = zero

	rt := reflect.TypeOf((*P)(nil)).Elem()
	if rt.Kind() == reflect.Ptr {
		params = reflect.New(rt.Elem()).Interface()
	}

	args, err := BindArgs(params)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// renderArgs stringifies every bound argument.
func renderArgs(args map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for name, v := range args {
		s, err := Stringify(v)
		if err != nil {
			return nil, fmt.Errorf("cache: key argument %q: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

func fieldKeyName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("key"); ok && tag != "" {
		return tag
	}
	if tag, ok := field.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" {
			return name
		}
	}
	return toSnake(field.Name)
}
