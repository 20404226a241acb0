// Package model defines the shared data types of vecmem.
//
// It is intentionally dependency-light so that every layer (codec, log,
// collection, registry, CLI) can exchange records without import cycles.
package model
