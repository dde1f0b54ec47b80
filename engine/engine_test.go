package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func smallOptions() Options {
	o := DefaultOptions()
	o.MemTableSize = 256
	o.BlockSize = 128
	o.Level0CompactionThreshold = 2
	o.BlockCacheSize = 1 << 16
	return o
}

func TestPutGetDelete(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, smallOptions())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("a"), []byte("1")))
	v, ok, err := e.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(v))

	require.NoError(t, e.Delete([]byte("a")))
	_, ok, err = e.Get([]byte("a"))
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = e.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriteBatchAtomicity(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, smallOptions())
	require.NoError(t, err)
	defer e.Close()

	b := NewBatch()
	b.Put([]byte("x"), []byte("1"))
	b.Put([]byte("y"), []byte("2"))
	b.Delete([]byte("x"))
	require.NoError(t, e.Write(b))

	_, ok, err := e.Get([]byte("x"))
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := e.Get([]byte("y"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", string(v))
}

func TestSnapshotIsolation(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, smallOptions())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("k"), []byte("v1")))
	snap := e.NewSnapshot()
	defer snap.Close()

	require.NoError(t, e.Put([]byte("k"), []byte("v2")))

	v, ok, err := snap.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", string(v))

	v, ok, err = e.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", string(v))
}

func TestFlushAndRecoverAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	opts := smallOptions()

	e, err := Open(dir, opts)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		key := []byte{byte('a' + i%26), byte(i)}
		require.NoError(t, e.Put(key, []byte("value")))
	}
	require.NoError(t, e.Put([]byte("zz"), []byte("final")))
	require.NoError(t, e.Close())

	e2, err := Open(dir, opts)
	require.NoError(t, err)
	defer e2.Close()

	v, ok, err := e2.Get([]byte("zz"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "final", string(v))

	v, ok, err = e2.Get([]byte{'a', 0})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value", string(v))
}

func TestScanOrderedAndDeduplicated(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, smallOptions())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("b"), []byte("1")))
	require.NoError(t, e.Put([]byte("a"), []byte("1")))
	require.NoError(t, e.Put([]byte("c"), []byte("1")))
	require.NoError(t, e.Put([]byte("a"), []byte("2"))) // overwrite
	require.NoError(t, e.Delete([]byte("b")))

	cur, err := e.Iter()
	require.NoError(t, err)

	var keys []string
	var values []string
	for cur.Valid() {
		keys = append(keys, string(cur.Key()))
		values = append(values, string(cur.Value()))
		cur.Next()
	}
	require.Equal(t, []string{"a", "c"}, keys)
	require.Equal(t, []string{"2", "1"}, values)
}

func TestSecondOpenFailsWhileLocked(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, smallOptions())
	require.NoError(t, err)
	defer e.Close()

	_, err = Open(dir, smallOptions())
	require.Error(t, err)
}

func TestFlushTriggersCompactionAcrossManyWrites(t *testing.T) {
	dir := t.TempDir()
	opts := smallOptions()
	e, err := Open(dir, opts)
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 500; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		require.NoError(t, e.Put(key, []byte("0123456789")))
	}

	for i := 0; i < 500; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		v, ok, err := e.Get(key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "0123456789", string(v))
	}
}
