package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrValidation is matched by every ValidationError through errors.Is.
var ErrValidation = errors.New("query: validation failed")

// ValidationError reports malformed caller input. Field names the first
// offending parameter in sorted order; Fields holds every failure keyed by
// parameter name (list items as "color_ids.1").
type ValidationError struct {
	Field   string
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	if len(e.Fields) <= 1 {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError converts ozzo-validation output into a ValidationError.
func NewValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ValidationError{Message: err.Error()}
	}

	fields := map[string]string{}
	flatten("", errs, fields)
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &ValidationError{Field: keys[0], Message: fields[keys[0]], Fields: fields}
}

func flatten(prefix string, errs validation.Errors, out map[string]string) {
	for name, err := range errs {
		if err == nil {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(key, nested, out)
			continue
		}
		out[key] = err.Error()
	}
}

// mergeErrors folds several ozzo results into one validation.Errors map.
// Anything that is not a validation.Errors (a rule misconfiguration) wins.
func mergeErrors(errs ...error) error {
	merged := validation.Errors{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve validation.Errors
		if !errors.As(err, &ve) {
			return err
		}
		for k, v := range ve {
			merged[k] = v
		}
	}
	return merged.Filter()
}
