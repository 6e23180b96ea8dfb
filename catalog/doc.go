// Package catalog defines the typed catalog records and a generic repository
// that runs structured queries from package query against a document
// collection.
//
// Records embed Base for their id, soft delete flag and timestamps. Stored
// documents are converted into their record type and validated on every read;
// a document that fails either step is an InvalidDocumentError rather than a
// partially populated record.
//
// Repository.Query returns one page and its length. Totals come only from
// Count, which is a separate store call.
package catalog
