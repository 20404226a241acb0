package metadata

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryRoundTrip(t *testing.T) {
	t.Run("AllKinds", func(t *testing.T) {
		doc := Document{
			"title":   String("hello"),
			"year":    Int(2024),
			"score":   Float(0.75),
			"flagged": Bool(true),
			"note":    Null(),
		}

		b, err := doc.MarshalBinary()
		require.NoError(t, err)

		var got Document
		require.NoError(t, got.UnmarshalBinary(b))
		assert.Equal(t, doc, got)
	})

	t.Run("Empty", func(t *testing.T) {
		doc := Document{}

		b, err := doc.MarshalBinary()
		require.NoError(t, err)

		var got Document
		require.NoError(t, got.UnmarshalBinary(b))
		assert.Empty(t, got)
	})

	t.Run("Deterministic", func(t *testing.T) {
		doc := Document{
			"b": Int(2),
			"a": Int(1),
			"c": String("x"),
		}

		first, err := doc.MarshalBinary()
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			again, err := doc.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("ShortBuffer", func(t *testing.T) {
		doc := Document{"key": String("value")}
		b, err := doc.MarshalBinary()
		require.NoError(t, err)

		var got Document
		assert.Error(t, got.UnmarshalBinary(b[:len(b)-3]))
	})
}

func TestFromAny(t *testing.T) {
	t.Run("JSONNumbers", func(t *testing.T) {
		// encoding/json hands us float64 for every number.
		v, err := FromAny(float64(42))
		require.NoError(t, err)
		assert.Equal(t, Int(42), v)

		v, err = FromAny(1.5)
		require.NoError(t, err)
		assert.Equal(t, Float(1.5), v)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := FromAny([]any{"nested"})
		assert.Error(t, err)
	})

	t.Run("MapRoundTrip", func(t *testing.T) {
		in := map[string]any{"source": "yt", "length": float64(120), "hd": true}
		doc, err := FromAnyMap(in)
		require.NoError(t, err)

		out := doc.ToAnyMap()
		assert.Equal(t, "yt", out["source"])
		assert.Equal(t, int64(120), out["length"])
		assert.Equal(t, true, out["hd"])
	})
}

func TestValueKey(t *testing.T) {
	assert.Equal(t, "i:7", Int(7).Key())
	assert.Equal(t, "s:abc", String("abc").Key())
	assert.Equal(t, "b:1", Bool(true).Key())
	assert.Equal(t, "null", Null().Key())
	assert.NotEqual(t, Float(1.0).Key(), Int(1).Key())
}

func TestUnmarshalBinaryImplausibleCount(t *testing.T) {
	// A count the buffer cannot hold must be rejected before it sizes the
	// map allocation.
	data := binary.AppendUvarint(nil, 1<<62)

	var doc Document
	assert.Error(t, doc.UnmarshalBinary(data))
}
