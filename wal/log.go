// Package wal provides the durable append log backing each collection.
//
// Every mutation is framed with a CRC32 checksum and, in the default
// durability mode, fsync'd before it is acknowledged. A batch upsert is one
// frame, so a crash mid-append leaves a short tail that replay truncates;
// it can never surface half a batch.
package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/vecmem/codec"
	"github.com/hupe1980/vecmem/distance"
	"github.com/hupe1980/vecmem/model"
)

// frame prefix: CRC32 (4) + Type (1) + Seq (8) + PayloadLen (4)
const framePrefixLen = 17

// maxFrameLen bounds a single frame payload. A frame larger than this is
// treated as corruption rather than an allocation request.
const maxFrameLen = 256 * 1024 * 1024

// Log manages one collection's append log file.
type Log struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	opts   Options
	metric distance.Metric
	seq    uint64
	end    int64 // offset one past the last valid frame

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the log at path.
//
// For a new file the given metric is persisted in the header; for an
// existing file the stored header wins and the passed metric is ignored.
// Replay must be called before the first Append on an existing log.
func Open(path string, metric distance.Metric, optFns ...func(o *Options)) (*Log, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}

	l := &Log{
		file:   f,
		path:   path,
		opts:   opts,
		metric: metric,
		end:    logHeaderLen,
	}

	if st.Size() == 0 {
		if err := writeHeader(f, headerInfo{
			Compressed:       opts.Compress,
			CompressionLevel: opts.CompressionLevel,
			Metric:           metric,
		}); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sync log header: %w", err)
		}
	} else {
		info, err := readHeader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		l.opts.Compress = info.Compressed
		l.opts.CompressionLevel = info.CompressionLevel
		l.metric = info.Metric
		l.end = st.Size()
	}

	if l.opts.Compress {
		level := zstd.EncoderLevelFromZstd(l.opts.CompressionLevel)
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create compressor: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			_ = enc.Close()
			_ = f.Close()
			return nil, fmt.Errorf("create decompressor: %w", err)
		}
		l.enc = enc
		l.dec = dec
	}

	return l, nil
}

// Metric returns the distance metric persisted in the log header.
func (l *Log) Metric() distance.Metric {
	return l.metric
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Size returns the current size of the log in bytes.
func (l *Log) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.end
}

// AppendUpserts appends one batch of records as a single frame and makes it
// durable according to the configured durability mode.
func (l *Log) AppendUpserts(records []model.Record) error {
	payload := binary.AppendUvarint(nil, uint64(len(records)))
	var err error
	for _, rec := range records {
		payload, err = codec.EncodeRecord(payload, rec)
		if err != nil {
			return err
		}
	}
	return l.appendFrame(FrameUpsert, payload)
}

// AppendTombstone appends a deletion marker for id.
func (l *Log) AppendTombstone(id string) error {
	payload := binary.AppendUvarint(nil, uint64(len(id)))
	payload = append(payload, id...)
	return l.appendFrame(FrameTombstone, payload)
}

func (l *Log) appendFrame(typ FrameType, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return os.ErrClosed
	}

	if l.enc != nil {
		payload = l.enc.EncodeAll(payload, nil)
	}

	l.seq++
	frame := make([]byte, framePrefixLen, framePrefixLen+len(payload))
	frame[4] = byte(typ)
	binary.LittleEndian.PutUint64(frame[5:13], l.seq)
	binary.LittleEndian.PutUint32(frame[13:17], uint32(len(payload)))
	frame = append(frame, payload...)
	binary.LittleEndian.PutUint32(frame[0:4], crc32.ChecksumIEEE(frame[4:]))

	// One write syscall per frame keeps a crash-interrupted append confined
	// to the file tail.
	if _, err := l.file.WriteAt(frame, l.end); err != nil {
		return fmt.Errorf("append log frame: %w", err)
	}
	if l.opts.Durability == DurabilitySync {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("sync log: %w", err)
		}
	}
	l.end += int64(len(frame))
	return nil
}

// Replay applies every valid frame in order to fn and returns the number of
// torn tail bytes truncated, if any.
//
// An incomplete frame at the physical end of the file is an interrupted
// append: it is cut off and replay succeeds. A checksum or decode failure
// with intact data behind it is corruption and fails with
// codec.ErrCorruptRecord; silently dropping committed data would be worse
// than failing loudly.
func (l *Log) Replay(fn func(e Entry) error) (truncated int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, os.ErrClosed
	}

	st, err := l.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat log file: %w", err)
	}
	size := st.Size()

	offset := logHeaderLen
	var maxSeq uint64

	for offset < size {
		entry, frameLen, ferr := l.readFrameAt(offset, size)
		if ferr != nil {
			if ferr == errTornTail {
				truncated = size - offset
				if terr := l.file.Truncate(offset); terr != nil {
					return 0, fmt.Errorf("truncate torn log tail: %w", terr)
				}
				size = offset
				break
			}
			return 0, ferr
		}
		if err := fn(entry); err != nil {
			return 0, err
		}
		if entry.Seq > maxSeq {
			maxSeq = entry.Seq
		}
		offset += frameLen
	}

	l.seq = maxSeq
	l.end = offset
	return truncated, nil
}

// errTornTail is an internal marker: the frame at the current offset runs
// past the physical end of the file.
var errTornTail = fmt.Errorf("torn log tail")

func (l *Log) readFrameAt(offset, size int64) (Entry, int64, error) {
	if size-offset < framePrefixLen {
		return Entry{}, 0, errTornTail
	}

	prefix := make([]byte, framePrefixLen)
	if _, err := l.file.ReadAt(prefix, offset); err != nil {
		return Entry{}, 0, fmt.Errorf("read log frame: %w", err)
	}

	checksum := binary.LittleEndian.Uint32(prefix[0:4])
	typ := FrameType(prefix[4])
	seq := binary.LittleEndian.Uint64(prefix[5:13])
	payloadLen := int64(binary.LittleEndian.Uint32(prefix[13:17]))

	if payloadLen > maxFrameLen {
		return Entry{}, 0, fmt.Errorf("%w: frame length %d exceeds limit", codec.ErrCorruptRecord, payloadLen)
	}
	if size-offset-framePrefixLen < payloadLen {
		return Entry{}, 0, errTornTail
	}

	payload := make([]byte, payloadLen)
	if _, err := l.file.ReadAt(payload, offset+framePrefixLen); err != nil {
		return Entry{}, 0, fmt.Errorf("read log frame payload: %w", err)
	}

	crc := crc32.NewIEEE()
	crc.Write(prefix[4:])
	crc.Write(payload)
	if crc.Sum32() != checksum {
		return Entry{}, 0, fmt.Errorf("%w: frame checksum mismatch at offset %d", codec.ErrCorruptRecord, offset)
	}

	if l.dec != nil {
		decoded, err := l.dec.DecodeAll(payload, nil)
		if err != nil {
			return Entry{}, 0, fmt.Errorf("%w: %v", codec.ErrCorruptRecord, err)
		}
		payload = decoded
	}

	entry := Entry{Type: typ, Seq: seq}
	switch typ {
	case FrameUpsert:
		count, n := binary.Uvarint(payload)
		if n <= 0 {
			return Entry{}, 0, fmt.Errorf("%w: invalid batch count", codec.ErrCorruptRecord)
		}
		rest := payload[n:]
		entry.Records = make([]model.Record, 0, count)
		for i := uint64(0); i < count; i++ {
			var rec model.Record
			var err error
			rec, rest, err = codec.DecodeRecord(rest)
			if err != nil {
				return Entry{}, 0, err
			}
			entry.Records = append(entry.Records, rec)
		}
		if len(rest) != 0 {
			return Entry{}, 0, fmt.Errorf("%w: %d trailing bytes in batch frame", codec.ErrCorruptRecord, len(rest))
		}
	case FrameTombstone:
		idLen, n := binary.Uvarint(payload)
		if n <= 0 || uint64(len(payload[n:])) != idLen {
			return Entry{}, 0, fmt.Errorf("%w: invalid tombstone id", codec.ErrCorruptRecord)
		}
		entry.ID = string(payload[n : n+int(idLen)])
	default:
		return Entry{}, 0, fmt.Errorf("%w: unknown frame type %d", codec.ErrCorruptRecord, typ)
	}

	return entry, framePrefixLen + payloadLen, nil
}

// Rewrite atomically replaces the log's contents with a single batch of
// records, dropping tombstones and overwritten upserts. Used by compaction.
//
// The replacement is written to a temporary file, synced, and renamed over
// the old log, so a crash at any point leaves either the old or the new log
// intact.
func (l *Log) Rewrite(records []model.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return os.ErrClosed
	}

	// A stale temp file from an interrupted compaction must not be
	// appended to.
	tmpPath := l.path + ".compact"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale compaction file: %w", err)
	}
	tmp, err := Open(tmpPath, l.metric, func(o *Options) { *o = l.opts })
	if err != nil {
		return err
	}
	if len(records) > 0 {
		if err := tmp.AppendUpserts(records); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return err
		}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("swap compacted log: %w", err)
	}

	// Swap the live handle over to the compacted file.
	_ = l.file.Close()
	f, err := os.OpenFile(l.path, os.O_RDWR, 0o600)
	if err != nil {
		l.file = nil
		return fmt.Errorf("reopen compacted log: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		l.file = nil
		return fmt.Errorf("stat compacted log: %w", err)
	}
	l.file = f
	l.end = st.Size()
	if len(records) > 0 {
		l.seq = 1
	} else {
		l.seq = 0
	}
	return nil
}

// Sync forces buffered writes to stable storage regardless of durability mode.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return os.ErrClosed
	}
	return l.file.Sync()
}

// Close flushes and closes the log file. Close is idempotent.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Sync()
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil

	if l.enc != nil {
		_ = l.enc.Close()
		l.enc = nil
	}
	if l.dec != nil {
		l.dec.Close()
		l.dec = nil
	}
	return err
}
