// Package codec centralizes the durable byte layout of a record.
//
// vecmem intentionally treats this layout as a breaking-change boundary:
// if it changes, persisted bytes created by older versions may no longer
// decode. The encoding is deterministic: the same record always encodes
// to the same bytes, which log replay and compaction depend on.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/vecmem/metadata"
	"github.com/hupe1980/vecmem/model"
)

// ErrCorruptRecord indicates that persisted record bytes are inconsistent
// with their own length fields and cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt record")

const maxIDLen = 1 << 20 // sanity bound on decoded id length

// EncodeRecord appends the fixed-layout encoding of rec to dst.
//
// Layout: [IDLen uvarint][ID][Dim uint32][Embedding Dim*4][MetaLen uvarint][Meta].
func EncodeRecord(dst []byte, rec model.Record) ([]byte, error) {
	dst = binary.AppendUvarint(dst, uint64(len(rec.ID)))
	dst = append(dst, rec.ID...)

	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(rec.Embedding)))
	for _, v := range rec.Embedding {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}

	var metaBytes []byte
	if rec.Metadata != nil {
		b, err := rec.Metadata.MarshalBinary()
		if err != nil {
			return nil, err
		}
		metaBytes = b
	}
	dst = binary.AppendUvarint(dst, uint64(len(metaBytes)))
	dst = append(dst, metaBytes...)

	return dst, nil
}

// DecodeRecord decodes one record from the front of data and returns the
// remaining bytes. It fails with ErrCorruptRecord if any length field is
// inconsistent with the remaining buffer size.
func DecodeRecord(data []byte) (model.Record, []byte, error) {
	var rec model.Record

	idLen, n := binary.Uvarint(data)
	if n <= 0 || idLen > maxIDLen {
		return rec, nil, fmt.Errorf("%w: invalid id length", ErrCorruptRecord)
	}
	data = data[n:]
	if uint64(len(data)) < idLen {
		return rec, nil, fmt.Errorf("%w: short buffer for id", ErrCorruptRecord)
	}
	rec.ID = string(data[:idLen])
	data = data[idLen:]

	if len(data) < 4 {
		return rec, nil, fmt.Errorf("%w: short buffer for dimension", ErrCorruptRecord)
	}
	dim := binary.LittleEndian.Uint32(data)
	data = data[4:]
	if uint64(len(data)) < uint64(dim)*4 {
		return rec, nil, fmt.Errorf("%w: short buffer for embedding", ErrCorruptRecord)
	}
	rec.Embedding = make([]float32, dim)
	for i := range rec.Embedding {
		rec.Embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(data))
		data = data[4:]
	}

	metaLen, n := binary.Uvarint(data)
	if n <= 0 {
		return rec, nil, fmt.Errorf("%w: invalid metadata length", ErrCorruptRecord)
	}
	data = data[n:]
	if uint64(len(data)) < metaLen {
		return rec, nil, fmt.Errorf("%w: short buffer for metadata", ErrCorruptRecord)
	}
	if metaLen > 0 {
		var doc metadata.Document
		if err := doc.UnmarshalBinary(data[:metaLen]); err != nil {
			return rec, nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		rec.Metadata = doc
	}
	data = data[metaLen:]

	return rec, data, nil
}
