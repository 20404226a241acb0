package snapshot

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecmem/codec"
	"github.com/hupe1980/vecmem/distance"
	"github.com/hupe1980/vecmem/metadata"
	"github.com/hupe1980/vecmem/model"
)

func testSnapshot() (Info, []model.Record) {
	records := []model.Record{
		{ID: "a", Embedding: []float32{1, 0, 0}, Metadata: metadata.Document{"n": metadata.Int(1)}},
		{ID: "b", Embedding: []float32{0, 1, 0}},
		{ID: "c", Embedding: []float32{0, 0, 1}, Metadata: metadata.Document{"tag": metadata.String("x")}},
	}
	info := Info{Metric: distance.MetricCosine, Dimension: 3}
	return info, records
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(compression.String(), func(t *testing.T) {
			info, records := testSnapshot()
			info.Compression = compression

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, info, records))

			got, gotRecords, err := Read(&buf)
			require.NoError(t, err)
			assert.Equal(t, compression, got.Compression)
			assert.Equal(t, distance.MetricCosine, got.Metric)
			assert.Equal(t, 3, got.Dimension)
			assert.Equal(t, len(records), got.Count)
			assert.Equal(t, records, gotRecords)
		})
	}
}

func TestSnapshotEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Info{Compression: CompressionLZ4}, nil))

	info, records, err := Read(&buf)
	require.NoError(t, err)
	assert.Zero(t, info.Count)
	assert.Empty(t, records)
}

func TestSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.snap")
	info, records := testSnapshot()
	info.Compression = CompressionZstd

	require.NoError(t, WriteFile(path, info, records))

	// No temp file left behind.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, gotRecords, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(records), got.Count)
	assert.Equal(t, records, gotRecords)
}

func TestSnapshotInvalid(t *testing.T) {
	t.Run("NotASnapshot", func(t *testing.T) {
		_, _, err := Read(bytes.NewReader([]byte("definitely not a snapshot")))
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
	})

	t.Run("ImplausibleCount", func(t *testing.T) {
		info, records := testSnapshot()
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, info, records))

		// Forge a count the body cannot possibly hold. The reader must
		// reject it before sizing any allocation by it.
		data := buf.Bytes()
		binary.LittleEndian.PutUint64(data[12:20], 1<<62)

		_, _, err := Read(bytes.NewReader(data))
		assert.ErrorIs(t, err, codec.ErrCorruptRecord)
	})

	t.Run("TruncatedBody", func(t *testing.T) {
		info, records := testSnapshot()
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, info, records))

		data := buf.Bytes()[:buf.Len()-4]
		_, _, err := Read(bytes.NewReader(data))
		assert.ErrorIs(t, err, codec.ErrCorruptRecord)
	})
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)

	c, err = ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	c, err = ParseCompression("lz4")
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, c)

	_, err = ParseCompression("gzip")
	assert.Error(t, err)
}
