package vecmem

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecmem/codec"
	"github.com/hupe1980/vecmem/collection"
	"github.com/hupe1980/vecmem/internal/flock"
)

// Sentinel errors returned by registry and collection operations. Check them
// with errors.Is; use errors.As with collection.DimensionMismatchError for
// the dimension details.
var (
	// ErrInvalidInput indicates a request rejected by validation before any
	// state was touched.
	ErrInvalidInput = collection.ErrInvalidInput

	// ErrDimensionMismatch indicates a vector whose width differs from the
	// collection's pinned dimension.
	ErrDimensionMismatch = collection.ErrDimensionMismatch

	// ErrCorruptRecord indicates on-disk data that fails checksum or decode
	// validation.
	ErrCorruptRecord = codec.ErrCorruptRecord

	// ErrLockTimeout indicates the cross-process collection lock could not
	// be acquired within the configured timeout.
	ErrLockTimeout = flock.ErrTimeout

	// ErrStorageUnavailable indicates the backing filesystem failed in a way
	// that is not data corruption: the directory cannot be created, a file
	// cannot be opened or synced.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrClosed indicates an operation on a closed registry or collection.
	ErrClosed = collection.ErrClosed
)

// wrapStorage classifies an error from the storage layer. Domain errors pass
// through untouched; anything else is an I/O failure and gets tagged with
// ErrStorageUnavailable so callers have one sentinel for the whole class.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrDimensionMismatch),
		errors.Is(err, ErrCorruptRecord),
		errors.Is(err, ErrLockTimeout),
		errors.Is(err, ErrClosed),
		errors.Is(err, collection.ErrReadOnly):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}
