package metadata

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"
)

// MarshalBinary implements encoding.BinaryMarshaler.
//
// It uses a compact binary format optimized for vecmem metadata. Keys are
// written in sorted order so the same document always encodes identically;
// log replay depends on that determinism.
func (d Document) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 4+len(d)*16)

	buf = binary.AppendUvarint(buf, uint64(len(d)))

	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		buf = binary.AppendUvarint(buf, uint64(len(k)))
		buf = append(buf, k...)

		var err error
		buf, err = appendValue(buf, d[k])
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (d *Document) UnmarshalBinary(data []byte) error {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return errors.New("invalid metadata length")
	}
	data = data[n:]

	// The smallest entry is 2 bytes (one-byte key length, empty key, kind
	// byte); a larger count cannot be honest and must not size the map.
	if count > uint64(len(data))/2 {
		return errors.New("metadata count exceeds buffer")
	}

	if *d == nil {
		*d = make(Document, count)
	}

	for i := uint64(0); i < count; i++ {
		kLen, n := binary.Uvarint(data)
		if n <= 0 {
			return errors.New("invalid key length")
		}
		data = data[n:]
		if uint64(len(data)) < kLen {
			return errors.New("short buffer for key")
		}
		key := string(data[:kLen])
		data = data[kLen:]

		val, remaining, err := parseValue(data)
		if err != nil {
			return err
		}
		(*d)[key] = val
		data = remaining
	}
	return nil
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindNull:
		// Kind byte only.
	case KindInt:
		buf = binary.AppendVarint(buf, v.I64)
	case KindFloat:
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.F64))
	case KindString:
		buf = binary.AppendUvarint(buf, uint64(len(v.S)))
		buf = append(buf, v.S...)
	case KindBool:
		if v.B {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	default:
		return nil, errors.New("cannot encode invalid metadata value")
	}
	return buf, nil
}

func parseValue(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return Value{}, nil, errors.New("short buffer for value kind")
	}
	kind := Kind(data[0])
	data = data[1:]

	switch kind {
	case KindNull:
		return Null(), data, nil
	case KindInt:
		i, n := binary.Varint(data)
		if n <= 0 {
			return Value{}, nil, errors.New("invalid int value")
		}
		return Int(i), data[n:], nil
	case KindFloat:
		if len(data) < 8 {
			return Value{}, nil, errors.New("short buffer for float value")
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(data))
		return Float(f), data[8:], nil
	case KindString:
		sLen, n := binary.Uvarint(data)
		if n <= 0 {
			return Value{}, nil, errors.New("invalid string length")
		}
		data = data[n:]
		if uint64(len(data)) < sLen {
			return Value{}, nil, errors.New("short buffer for string value")
		}
		return String(string(data[:sLen])), data[sLen:], nil
	case KindBool:
		if len(data) < 1 {
			return Value{}, nil, errors.New("short buffer for bool value")
		}
		return Bool(data[0] != 0), data[1:], nil
	default:
		return Value{}, nil, errors.New("unknown metadata value kind")
	}
}
