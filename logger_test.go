package vecmem

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureLogger returns a debug-level logger writing text records into buf.
func captureLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestLogger(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultHandler", func(t *testing.T) {
		logger := NewLogger(nil)
		assert.NotNil(t, logger.Logger)
	})

	t.Run("LogAdd", func(t *testing.T) {
		var buf bytes.Buffer
		logger := captureLogger(&buf)

		logger.LogAdd(ctx, "notes", 3, nil)
		assert.Contains(t, buf.String(), "add completed")
		assert.Contains(t, buf.String(), "collection=notes")
		assert.Contains(t, buf.String(), "count=3")

		buf.Reset()
		logger.LogAdd(ctx, "notes", 3, errors.New("disk full"))
		assert.Contains(t, buf.String(), "add failed")
		assert.Contains(t, buf.String(), "disk full")
	})

	t.Run("LogSearch", func(t *testing.T) {
		var buf bytes.Buffer
		logger := captureLogger(&buf)

		logger.LogSearch(ctx, "notes", 5, 2, nil)
		assert.Contains(t, buf.String(), "search completed")
		assert.Contains(t, buf.String(), "k=5")
		assert.Contains(t, buf.String(), "results=2")

		buf.Reset()
		logger.LogSearch(ctx, "notes", 5, 0, errors.New("bad query"))
		assert.Contains(t, buf.String(), "search failed")
		assert.Contains(t, buf.String(), "bad query")
	})

	t.Run("LogDelete", func(t *testing.T) {
		var buf bytes.Buffer
		logger := captureLogger(&buf)

		logger.LogDelete(ctx, "notes", "n1", nil)
		assert.Contains(t, buf.String(), "delete completed")
		assert.Contains(t, buf.String(), "id=n1")

		buf.Reset()
		logger.LogDelete(ctx, "notes", "n1", errors.New("locked"))
		assert.Contains(t, buf.String(), "delete failed")
	})

	t.Run("LogSnapshot", func(t *testing.T) {
		var buf bytes.Buffer
		logger := captureLogger(&buf)

		logger.LogSnapshot(ctx, "notes", "notes.snap", nil)
		assert.Contains(t, buf.String(), "snapshot saved")
		assert.Contains(t, buf.String(), "filename=notes.snap")

		buf.Reset()
		logger.LogSnapshot(ctx, "notes", "notes.snap", errors.New("no space"))
		assert.Contains(t, buf.String(), "snapshot failed")
	})

	t.Run("Noop", func(t *testing.T) {
		logger := NoopLogger()
		logger.LogAdd(ctx, "notes", 1, nil)
		logger.LogSearch(ctx, "notes", 1, 0, nil)
	})
}
