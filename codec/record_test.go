package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecmem/metadata"
	"github.com/hupe1980/vecmem/model"
)

func TestRecordRoundTrip(t *testing.T) {
	t.Run("Full", func(t *testing.T) {
		rec := model.Record{
			ID:        "note-1",
			Embedding: []float32{0.1, -2.5, 3.75},
			Metadata:  metadata.Document{"source": metadata.String("yt"), "rank": metadata.Int(3)},
		}

		b, err := EncodeRecord(nil, rec)
		require.NoError(t, err)

		got, rest, err := DecodeRecord(b)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, rec, got)
	})

	t.Run("NilMetadata", func(t *testing.T) {
		rec := model.Record{ID: "a", Embedding: []float32{1, 0, 0}}

		b, err := EncodeRecord(nil, rec)
		require.NoError(t, err)

		got, _, err := DecodeRecord(b)
		require.NoError(t, err)
		assert.Nil(t, got.Metadata)
		assert.Equal(t, rec.Embedding, got.Embedding)
	})

	t.Run("Sequence", func(t *testing.T) {
		var buf []byte
		var err error
		for _, id := range []string{"a", "b", "c"} {
			buf, err = EncodeRecord(buf, model.Record{ID: id, Embedding: []float32{1}})
			require.NoError(t, err)
		}

		rest := buf
		for _, want := range []string{"a", "b", "c"} {
			var rec model.Record
			rec, rest, err = DecodeRecord(rest)
			require.NoError(t, err)
			assert.Equal(t, want, rec.ID)
		}
		assert.Empty(t, rest)
	})
}

func TestRecordDeterminism(t *testing.T) {
	rec := model.Record{
		ID:        "x",
		Embedding: []float32{1, 2},
		Metadata: metadata.Document{
			"b": metadata.Int(2),
			"a": metadata.Int(1),
			"c": metadata.Bool(false),
		},
	}

	first, err := EncodeRecord(nil, rec)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := EncodeRecord(nil, rec)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	rec := model.Record{ID: "abc", Embedding: []float32{1, 2, 3}}
	b, err := EncodeRecord(nil, rec)
	require.NoError(t, err)

	t.Run("Truncated", func(t *testing.T) {
		for cut := 1; cut < len(b); cut++ {
			_, _, err := DecodeRecord(b[:cut])
			assert.ErrorIs(t, err, ErrCorruptRecord, "cut at %d", cut)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		_, _, err := DecodeRecord(nil)
		assert.ErrorIs(t, err, ErrCorruptRecord)
	})

	t.Run("InflatedDimension", func(t *testing.T) {
		bad := append([]byte(nil), b...)
		// Dimension field sits right after the uvarint id length + id bytes.
		bad[1+3] = 0xff
		bad[1+3+1] = 0xff
		_, _, err := DecodeRecord(bad)
		assert.ErrorIs(t, err, ErrCorruptRecord)
	})
}
