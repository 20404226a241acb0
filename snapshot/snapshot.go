// Package snapshot implements a portable single-file export format for
// collections.
//
// A snapshot is a self-describing header followed by the collection's
// records in their durable binary encoding, with the body optionally
// compressed as a whole. Unlike the append log it contains no tombstones or
// superseded versions, which makes it the right shape for backups and for
// shipping a collection to object storage.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/vecmem/codec"
	"github.com/hupe1980/vecmem/distance"
	"github.com/hupe1980/vecmem/model"
)

// Compression selects the body compression of a snapshot.
type Compression uint8

const (
	// CompressionNone stores the body uncompressed.
	CompressionNone Compression = iota
	// CompressionZstd compresses the body with zstd. Best ratio.
	CompressionZstd
	// CompressionLZ4 compresses the body with lz4 block compression. Fastest.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression returns the Compression named by s.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unsupported snapshot compression: %q", s)
	}
}

// Info describes a snapshot's contents.
type Info struct {
	Metric      distance.Metric
	Dimension   int
	Count       int
	Compression Compression
}

var (
	// ErrInvalidSnapshot indicates data that is not a snapshot or was
	// written by an incompatible version.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

var snapshotMagic = [4]byte{'V', 'M', 'S', 'N'}

const (
	snapshotVersion = uint16(1)

	// magic (4) + version (2) + compression (1) + metric (1) +
	// dimension (4) + count (8) + uncompressed body length (8)
	headerLen = 28
)

// Write serializes records to w. info.Count is taken from len(records);
// info.Dimension and info.Metric are recorded as given.
func Write(w io.Writer, info Info, records []model.Record) error {
	var body []byte
	var err error
	for _, rec := range records {
		body, err = codec.EncodeRecord(body, rec)
		if err != nil {
			return err
		}
	}

	encoded, err := compress(info.Compression, body)
	if err != nil {
		return err
	}

	header := make([]byte, headerLen)
	copy(header[0:4], snapshotMagic[:])
	binary.LittleEndian.PutUint16(header[4:6], snapshotVersion)
	header[6] = byte(info.Compression)
	header[7] = byte(info.Metric)
	binary.LittleEndian.PutUint32(header[8:12], uint32(info.Dimension))
	binary.LittleEndian.PutUint64(header[12:20], uint64(len(records)))
	binary.LittleEndian.PutUint64(header[20:28], uint64(len(body)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("write snapshot body: %w", err)
	}
	return nil
}

// Read parses a snapshot from r.
func Read(r io.Reader) (Info, []model.Record, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Info{}, nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if [4]byte(header[0:4]) != snapshotMagic {
		return Info{}, nil, fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, header[0:4])
	}
	if v := binary.LittleEndian.Uint16(header[4:6]); v != snapshotVersion {
		return Info{}, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, v)
	}

	info := Info{
		Compression: Compression(header[6]),
		Metric:      distance.Metric(header[7]),
		Dimension:   int(binary.LittleEndian.Uint32(header[8:12])),
		Count:       int(binary.LittleEndian.Uint64(header[12:20])),
	}
	bodyLen := binary.LittleEndian.Uint64(header[20:28])

	encoded, err := io.ReadAll(r)
	if err != nil {
		return Info{}, nil, fmt.Errorf("read snapshot body: %w", err)
	}

	body, err := decompress(info.Compression, encoded, int(bodyLen))
	if err != nil {
		return Info{}, nil, err
	}

	// The header carries no checksum, so its count must be validated
	// against the body before it sizes an allocation. The smallest record
	// is 6 bytes: one-byte id length, empty id, four-byte dimension,
	// one-byte metadata length.
	const minRecordLen = 6
	if info.Count < 0 || info.Count > len(body)/minRecordLen {
		return Info{}, nil, fmt.Errorf("%w: record count %d exceeds body capacity", codec.ErrCorruptRecord, info.Count)
	}

	records := make([]model.Record, 0, info.Count)
	rest := body
	for i := 0; i < info.Count; i++ {
		var rec model.Record
		rec, rest, err = codec.DecodeRecord(rest)
		if err != nil {
			return Info{}, nil, err
		}
		records = append(records, rec)
	}
	if len(rest) != 0 {
		return Info{}, nil, fmt.Errorf("%w: %d trailing bytes", codec.ErrCorruptRecord, len(rest))
	}

	return info, records, nil
}

// WriteFile writes a snapshot to path atomically: the data goes to a
// temporary file that is synced and renamed into place so a crash never
// leaves a half-written snapshot behind.
func WriteFile(path string, info Info, records []model.Record) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}

	if err := Write(f, info, records); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot file: %w", err)
	}
	return nil
}

// ReadFile reads a snapshot from path.
func ReadFile(path string) (Info, []model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func compress(c Compression, body []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("create compressor: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(body, nil), nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(body)))
		n, err := lz4.CompressBlock(body, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			// Incompressible data. Store raw with a length marker the
			// decompressor recognizes.
			return append([]byte{0}, body...), nil
		}
		return append([]byte{1}, buf[:n]...), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot compression: %v", c)
	}
}

func decompress(c Compression, encoded []byte, bodyLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(encoded) != bodyLen {
			return nil, fmt.Errorf("%w: body length mismatch", codec.ErrCorruptRecord)
		}
		return encoded, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create decompressor: %w", err)
		}
		defer dec.Close()
		body, err := dec.DecodeAll(encoded, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", codec.ErrCorruptRecord, err)
		}
		if len(body) != bodyLen {
			return nil, fmt.Errorf("%w: body length mismatch", codec.ErrCorruptRecord)
		}
		return body, nil
	case CompressionLZ4:
		if len(encoded) == 0 {
			if bodyLen != 0 {
				return nil, fmt.Errorf("%w: body length mismatch", codec.ErrCorruptRecord)
			}
			return nil, nil
		}
		marker, block := encoded[0], encoded[1:]
		if marker == 0 {
			if len(block) != bodyLen {
				return nil, fmt.Errorf("%w: body length mismatch", codec.ErrCorruptRecord)
			}
			return block, nil
		}
		body := make([]byte, bodyLen)
		n, err := lz4.UncompressBlock(block, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", codec.ErrCorruptRecord, err)
		}
		if n != bodyLen {
			return nil, fmt.Errorf("%w: body length mismatch", codec.ErrCorruptRecord)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("%w: unsupported compression %d", ErrInvalidSnapshot, uint8(c))
	}
}
