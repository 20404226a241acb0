package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/vecmem/distance"
)

var (
	logMagic         = [4]byte{'V', 'M', 'L', '0'}
	logHeaderVersion = uint16(1)
	logHeaderLen     = int64(16)
)

var (
	// ErrInvalidHeader indicates the log file does not start with a valid header.
	ErrInvalidHeader = errors.New("invalid log header")
	// ErrIncompatibleVersion indicates a log written by an incompatible version.
	ErrIncompatibleVersion = errors.New("incompatible log version")
)

// headerInfo is the self-describing state persisted at the front of a log.
// The metric lives here so a reopened collection can never silently change
// how its stored embeddings are compared.
type headerInfo struct {
	Compressed       bool
	CompressionLevel int
	Metric           distance.Metric
}

func writeHeader(w io.Writer, info headerInfo) error {
	var flags uint16
	if info.Compressed {
		flags |= 1
	}

	buf := make([]byte, logHeaderLen)
	copy(buf[0:4], logMagic[:])
	binary.LittleEndian.PutUint16(buf[4:6], logHeaderVersion)
	binary.LittleEndian.PutUint16(buf[6:8], flags)
	buf[8] = uint8(info.CompressionLevel)
	buf[9] = uint8(info.Metric)
	// buf[10:16] reserved

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write log header: %w", err)
	}
	return nil
}

func readHeader(f *os.File) (headerInfo, error) {
	buf := make([]byte, logHeaderLen)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return headerInfo{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if [4]byte(buf[0:4]) != logMagic {
		return headerInfo{}, fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, buf[0:4])
	}
	version := binary.LittleEndian.Uint16(buf[4:6])
	if version != logHeaderVersion {
		return headerInfo{}, fmt.Errorf("%w: version %d (expected %d)", ErrIncompatibleVersion, version, logHeaderVersion)
	}
	flags := binary.LittleEndian.Uint16(buf[6:8])

	return headerInfo{
		Compressed:       flags&1 != 0,
		CompressionLevel: int(buf[8]),
		Metric:           distance.Metric(buf[9]),
	}, nil
}
