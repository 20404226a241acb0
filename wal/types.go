package wal

import "github.com/hupe1980/vecmem/model"

// DurabilityMode defines the fsync behavior for log writes.
type DurabilityMode int

const (
	// DurabilitySync fsyncs after every committed frame.
	// Slowest but strongest durability guarantee. This is the default:
	// a mutation is only reported successful once it is on stable storage.
	DurabilitySync DurabilityMode = iota

	// DurabilityAsync relies on the OS page cache.
	// Fastest writes but committed frames may be lost on power failure.
	// Use for bulk loads that can be replayed from their source.
	DurabilityAsync
)

// FrameType identifies the type of a log frame.
type FrameType uint8

const (
	// FrameUpsert carries a batch of upserted records. The whole batch
	// shares one checksum, so it lands atomically from the perspective
	// of replay.
	FrameUpsert FrameType = 1
	// FrameTombstone marks a record id as deleted.
	FrameTombstone FrameType = 2
)

// Entry is a single replayed log frame.
type Entry struct {
	Type FrameType
	Seq  uint64
	// Records holds the upserted batch for FrameUpsert.
	Records []model.Record
	// ID holds the deleted id for FrameTombstone.
	ID string
}

// Options contains configuration for the log.
type Options struct {
	// Compress enables zstd compression of frame payloads.
	// Frames are compressed individually so the torn-tail truncation
	// discipline keeps working on byte offsets.
	Compress bool

	// CompressionLevel sets the zstd compression level (1-11, speed to size).
	// The default (3) is a good balance for embedding payloads.
	CompressionLevel int

	// Durability controls fsync behavior. Default DurabilitySync.
	Durability DurabilityMode
}

// DefaultOptions are the log options used when none are overridden.
var DefaultOptions = Options{
	Compress:         false,
	CompressionLevel: 3,
	Durability:       DurabilitySync,
}
