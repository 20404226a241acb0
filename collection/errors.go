package collection

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a request the store rejected before touching
	// state: empty ids, mismatched batch lengths, zero vectors under the
	// cosine metric, negative result counts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates a vector whose width differs from the
	// collection's pinned dimension. Use errors.As with
	// *DimensionMismatchError for the expected and actual widths.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrReadOnly indicates a mutation attempted on a store opened read-only.
	ErrReadOnly = errors.New("collection is read-only")

	// ErrClosed indicates an operation on a closed store.
	ErrClosed = errors.New("collection is closed")
)

// DimensionMismatchError reports a vector width conflict. The first record
// written to a collection pins its dimension for the collection's lifetime.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: collection expects %d, got %d", e.Expected, e.Actual)
}

// Unwrap makes the error match ErrDimensionMismatch under errors.Is.
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}
