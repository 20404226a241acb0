package wal

import (
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

func testRecords() []model.Record {
	return []model.Record{
		{ID: "a", Embedding: []float32{1, 0, 0}, Metadata: metadata.Document{"n": metadata.Int(1)}},
		{ID: "b", Embedding: []float32{0, 1, 0}},
	}
}

func replayAll(t *testing.T, l *Log) []Entry {
	t.Helper()
	var entries []Entry
	_, err := l.Replay(func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	return entries
}

func TestLog(t *testing.T) {
	t.Run("AppendReplay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.log")

		l, err := Open(path, distance.MetricCosine)
		require.NoError(t, err)

		require.NoError(t, l.AppendUpserts(testRecords()))
		require.NoError(t, l.AppendTombstone("a"))
		require.NoError(t, l.Close())

		l2, err := Open(path, distance.MetricCosine)
		require.NoError(t, err)
		defer l2.Close()

		entries := replayAll(t, l2)
		require.Len(t, entries, 2)
		assert.Equal(t, FrameUpsert, entries[0].Type)
		assert.Equal(t, testRecords(), entries[0].Records)
		assert.Equal(t, FrameTombstone, entries[1].Type)
		assert.Equal(t, "a", entries[1].ID)
	})

	t.Run("MetricPersisted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.log")

		l, err := Open(path, distance.MetricSquaredL2)
		require.NoError(t, err)
		require.NoError(t, l.Close())

		// The stored metric wins over whatever the caller passes on reopen.
		l2, err := Open(path, distance.MetricCosine)
		require.NoError(t, err)
		defer l2.Close()
		assert.Equal(t, distance.MetricSquaredL2, l2.Metric())
	})

	t.Run("Compressed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.log")

		l, err := Open(path, distance.MetricCosine, func(o *Options) { o.Compress = true })
		require.NoError(t, err)
		require.NoError(t, l.AppendUpserts(testRecords()))
		require.NoError(t, l.Close())

		l2, err := Open(path, distance.MetricCosine)
		require.NoError(t, err)
		defer l2.Close()

		entries := replayAll(t, l2)
		require.Len(t, entries, 1)
		assert.Equal(t, testRecords(), entries[0].Records)
	})

	t.Run("EmptyLog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.log")

		l, err := Open(path, distance.MetricCosine)
		require.NoError(t, err)
		defer l.Close()

		assert.Empty(t, replayAll(t, l))
	})

	t.Run("AppendAfterReplay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.log")

		l, err := Open(path, distance.MetricCosine)
		require.NoError(t, err)
		require.NoError(t, l.AppendUpserts(testRecords()))
		require.NoError(t, l.Close())

		l2, err := Open(path, distance.MetricCosine)
		require.NoError(t, err)
		replayAll(t, l2)
		require.NoError(t, l2.AppendTombstone("b"))
		require.NoError(t, l2.Close())

		l3, err := Open(path, distance.MetricCosine)
		require.NoError(t, err)
		defer l3.Close()
		entries := replayAll(t, l3)
		require.Len(t, entries, 2)
		assert.Equal(t, "b", entries[1].ID)
		// Sequence numbers keep increasing across reopen.
		assert.Greater(t, entries[1].Seq, entries[0].Seq)
	})
}

func TestLogTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.log")

	l, err := Open(path, distance.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, l.AppendUpserts(testRecords()))
	committed := l.Size()
	require.NoError(t, l.AppendUpserts([]model.Record{{ID: "c", Embedding: []float32{0, 0, 1}}}))
	require.NoError(t, l.Close())

	// Chop the second frame in half, as a crash mid-append would.
	st, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, committed+(st.Size()-committed)/2))

	l2, err := Open(path, distance.MetricCosine)
	require.NoError(t, err)
	defer l2.Close()

	var entries []Entry
	truncated, err := l2.Replay(func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	assert.Positive(t, truncated)
	require.Len(t, entries, 1)
	assert.Equal(t, testRecords(), entries[0].Records)

	// The torn bytes are gone; the log accepts appends again.
	require.NoError(t, l2.AppendTombstone("a"))
	st, err = os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), committed)
}

func TestLogCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.log")

	l, err := Open(path, distance.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, l.AppendUpserts(testRecords()))
	require.NoError(t, l.AppendTombstone("a"))
	require.NoError(t, l.Close())

	// Flip a payload byte in the first frame. Intact data follows, so this
	// is corruption, not a torn tail.
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xff}, logHeaderLen+framePrefixLen+2)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	l2, err := Open(path, distance.MetricCosine)
	require.NoError(t, err)
	defer l2.Close()

	_, err = l2.Replay(func(e Entry) error { return nil })
	assert.ErrorIs(t, err, codec.ErrCorruptRecord)
}

func TestLogRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.log")

	l, err := Open(path, distance.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, l.AppendUpserts(testRecords()))
	require.NoError(t, l.AppendTombstone("a"))
	sizeBefore := l.Size()

	live := []model.Record{{ID: "b", Embedding: []float32{0, 1, 0}}}
	require.NoError(t, l.Rewrite(live))
	assert.Less(t, l.Size(), sizeBefore)
	require.NoError(t, l.Close())

	l2, err := Open(path, distance.MetricCosine)
	require.NoError(t, err)
	defer l2.Close()

	entries := replayAll(t, l2)
	require.Len(t, entries, 1)
	assert.Equal(t, live, entries[0].Records)
}

func TestLogInvalidHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.log")
	require.NoError(t, os.WriteFile(path, []byte("not a vecmem log at all"), 0o600))

	_, err := Open(path, distance.MetricCosine)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}
