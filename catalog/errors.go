package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError through errors.Is.
var ErrNotFound = errors.New("catalog: record not found")

// NotFoundError reports an id lookup that matched no live record. Filtered
// reads that match nothing return an empty list instead.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: %s %q not found", e.Collection, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// QueryExecutionError reports a document store failure. It is not retried by
// the repository.
type QueryExecutionError struct {
	Collection string
	Op         string
	Err        error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("catalog: %s on %s failed: %v", e.Op, e.Collection, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// InvalidDocumentError reports a stored document that could not be converted
// into its typed record.
type InvalidDocumentError struct {
	Collection string
	ID         string
	Err        error
}

func (e *InvalidDocumentError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("catalog: invalid %s document: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("catalog: invalid %s document %s: %v", e.Collection, e.ID, e.Err)
}

func (e *InvalidDocumentError) Unwrap() error { return e.Err }
