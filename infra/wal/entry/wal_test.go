package entry

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir, SegmentSize: 256})
	require.NoError(t, err)

	const n = 50
	for i := 1; i <= n; i++ {
		require.NoError(t, w.Append(NewRecord(RecordSubmit, uint64(i), []byte(fmt.Sprintf("cmd-%d", i)))))
	}
	require.NoError(t, w.Close())

	files, err := segments(dir)
	require.NoError(t, err)
	assert.Greater(t, len(files), 1, "small segment size should force rotation")

	var got []string
	last, err := Replay(dir, func(r *Record) error {
		assert.Equal(t, RecordSubmit, r.Type)
		got = append(got, string(r.Data))
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, n, last)
	require.Len(t, got, n)
	assert.Equal(t, "cmd-1", got[0])
	assert.Equal(t, "cmd-50", got[n-1])
}

func TestReopenContinuesSequence(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 1, []byte("a"))))
	require.NoError(t, w.Append(NewRecord(RecordCancel, 2, []byte("b"))))
	require.NoError(t, w.Close())

	w, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	assert.EqualValues(t, 2, w.LastSeq())

	err = w.Append(NewRecord(RecordSubmit, 2, nil))
	require.ErrorIs(t, err, ErrNonMonotonic)

	require.NoError(t, w.Append(NewRecord(RecordEnd, 3, nil)))
	require.NoError(t, w.Close())

	var types []RecordType
	last, err := Replay(dir, func(r *Record) error {
		types = append(types, r.Type)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, last)
	assert.Equal(t, []RecordType{RecordSubmit, RecordCancel, RecordEnd}, types)
}

func TestReplayDetectsCorruption(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 1, []byte("payload"))))
	require.NoError(t, w.Close())

	path := segmentPath(dir, 0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[headerSize] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Replay(dir, func(*Record) error { return nil })
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestReplayDetectsTornTail(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 1, []byte("whole"))))
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 2, []byte("torn"))))
	require.NoError(t, w.Close())

	path := segmentPath(dir, 0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-3], 0o644))

	n := 0
	_, err = Replay(dir, func(*Record) error { n++; return nil })
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.Equal(t, 1, n)
}

func TestReplayEmptyDir(t *testing.T) {
	last, err := Replay(t.TempDir(), func(*Record) error {
		t.Fatal("no records expected")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, last)
}
