package cache

import (
	"errors"
	"fmt"
)

// ErrKeyTemplate is matched by every KeyTemplateError through errors.Is.
var ErrKeyTemplate = errors.New("cache: key template error")

// KeyTemplateError reports a template that cannot be rendered with the bound
// parameters. It is a programming error and is surfaced when a read is wrapped.
type KeyTemplateError struct {
	Template    string
	Placeholder string
	Reason      string
}

func (e *KeyTemplateError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("cache: key template %q: placeholder {%s}: %s", e.Template, e.Placeholder, e.Reason)
	}
	return fmt.Sprintf("cache: key template %q: %s", e.Template, e.Reason)
}

func (e *KeyTemplateError) Is(target error) bool {
	return target == ErrKeyTemplate
}

// SerializationError reports a value that could not be turned into a cache-safe
// representation.
type SerializationError struct {
	Type string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cache: serialize %s: %v", e.Type, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError reports a cached entry that could not be turned back into
// the requested type. No partially populated value is ever returned with it.
type DeserializationError struct {
	Type string
	Err  error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("cache: deserialize %s: %v", e.Type, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// UnavailableError wraps a failure talking to the cache store.
type UnavailableError struct {
	Op  string
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache: %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// InvalidateError collects the tags whose generation could not be bumped.
type InvalidateError struct {
	Tags []string
	Errs []error
}

func (e *InvalidateError) Error() string {
	return fmt.Sprintf("cache: invalidate %v: %v", e.Tags, errors.Join(e.Errs...))
}

func (e *InvalidateError) Unwrap() []error { return e.Errs }
