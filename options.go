package vecmem

import (
	"log/slog"
	"time"

	"github.com/hupe1980/vecmem/distance"
	"github.com/hupe1980/vecmem/wal"
)

type options struct {
	metric           distance.Metric
	durability       wal.DurabilityMode
	compress         bool
	compressionLevel int
	readOnly         bool
	lockTimeout      time.Duration
	logger           *Logger
}

// Option configures registry behavior.
type Option func(*options)

// WithMetric sets the distance metric for collections created through this
// registry. Existing collections keep the metric they were created with.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithDurability controls whether every log append is fsync'd before the
// operation returns. The default, wal.DurabilitySync, survives power loss at
// the cost of one fsync per mutation.
func WithDurability(mode wal.DurabilityMode) Option {
	return func(o *options) {
		o.durability = mode
	}
}

// WithCompression enables zstd compression of log frames for newly created
// collections. level follows zstd conventions; 0 picks the default.
func WithCompression(level int) Option {
	return func(o *options) {
		o.compress = true
		if level > 0 {
			o.compressionLevel = level
		}
	}
}

// WithReadOnly opens collections with a shared lock and rejects mutations.
// Any number of read-only registries can have a collection open at once,
// also across processes.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithLockTimeout bounds how long opening a collection waits for its
// cross-process lock. Zero, the default, waits indefinitely.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metric:           distance.MetricCosine,
		durability:       wal.DurabilitySync,
		compressionLevel: wal.DefaultOptions.CompressionLevel,
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
