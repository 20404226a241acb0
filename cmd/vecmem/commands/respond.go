package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/vecmem"
	"github.com/hupe1980/vecmem/transcript"
)

// statusOK is the success payload for mutations.
var statusOK = map[string]string{"status": "ok"}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// emit writes exactly one JSON result to the payload channel.
func emit(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

// errorCode maps an error to the stable code callers branch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, vecmem.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, vecmem.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, vecmem.ErrCorruptRecord):
		return "corrupt_record"
	case errors.Is(err, vecmem.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, vecmem.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, transcript.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// respond emits either the success payload or the structured error for err,
// then passes err through so the process exits non-zero on failure.
func respond(out io.Writer, payload any, err error) error {
	if err != nil {
		_ = emit(out, errorResponse{Error: err.Error(), Code: errorCode(err)})
		return err
	}
	return emit(out, payload)
}
