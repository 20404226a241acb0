package metadata

import "fmt"

// FromAny converts a Go value into a typed Value.
//
// This exists as an adapter layer for JSON payloads and other untyped input.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		// encoding/json decodes every number into float64. Preserve
		// integral values as ints so they round-trip as written.
		if x == float64(int64(x)) {
			return Int(int64(x)), nil
		}
		return Float(x), nil
	case float32:
		return FromAny(float64(x))
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		if x > uint64(1)<<62 {
			// Avoid silently truncating large values.
			return Value{}, fmt.Errorf("metadata uint64 out of range: %d", x)
		}
		return Int(int64(x)), nil
	default:
		return Value{}, fmt.Errorf("unsupported metadata value type: %T", v)
	}
}

// FromAnyMap converts a map of untyped values into a Document.
func FromAnyMap(m map[string]any) (Document, error) {
	if m == nil {
		return nil, nil
	}
	doc := make(Document, len(m))
	for k, v := range m {
		val, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", k, err)
		}
		doc[k] = val
	}
	return doc, nil
}

// ToAny converts a Value back into a plain Go value.
func (v Value) ToAny() any {
	switch v.Kind {
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindString:
		return v.S
	case KindBool:
		return v.B
	default:
		return nil
	}
}

// ToAnyMap converts a Document into a plain map for JSON output.
//
// A nil document converts to an empty map so callers always receive an
// object, matching the response shape of the command surface.
func (d Document) ToAnyMap() map[string]any {
	m := make(map[string]any, len(d))
	for k, v := range d {
		m[k] = v.ToAny()
	}
	return m
}
