package collection

import (
	"log/slog"
	"time"

	"github.com/hupe1980/vecmem/distance"
	"github.com/hupe1980/vecmem/wal"
)

// Options configures a collection store.
type Options struct {
	// Metric is the distance metric for a newly created collection. An
	// existing collection keeps the metric it was created with and this
	// value is ignored.
	Metric distance.Metric

	// Durability controls whether every log append is fsync'd before it is
	// acknowledged.
	Durability wal.DurabilityMode

	// Compress enables zstd compression of log frames for a newly created
	// collection.
	Compress bool

	// CompressionLevel is the zstd level used when Compress is set.
	CompressionLevel int

	// ReadOnly opens the collection with a shared lock and rejects
	// mutations. Multiple read-only stores may be open at once, also across
	// processes.
	ReadOnly bool

	// LockTimeout bounds how long Open waits for the collection lock. Zero
	// means wait indefinitely.
	LockTimeout time.Duration

	// Logger receives diagnostics. Defaults to a discard logger.
	Logger *slog.Logger
}

// DefaultOptions are the options used when none are overridden.
var DefaultOptions = Options{
	Metric:           distance.MetricCosine,
	Durability:       wal.DurabilitySync,
	CompressionLevel: wal.DefaultOptions.CompressionLevel,
}
