// Package metadata provides the typed scalar metadata model for vecmem.
//
// Metadata is stored and returned verbatim; it is never interpreted by
// search. The typed model (map[string]Value) keeps the persisted encoding
// compact and deterministic.
package metadata
