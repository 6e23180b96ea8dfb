// Package query turns loosely typed catalog filter parameters into validated,
// structured queries.
//
// A Request bundles a FilterSpec, a Pagination and a Sort. ParseRequest reads
// one from HTTP query parameters, and Validate reports every bad parameter in
// a single ValidationError. Build converts a FilterSpec into a Query: a flat
// conjunction of Range, Equals, In, NotTrue and TextSearch predicates that
// both the MongoDB executor (through Match and Pipeline) and the in-memory
// executor evaluate with the same semantics.
package query
