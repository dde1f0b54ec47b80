package sstable

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/base"
)

func buildTestTable(t *testing.T, opts WriterOptions, n int) (*os.File, []base.InternalKey) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "strata-sst-*.sst")
	require.NoError(t, err)

	w := NewWriter(f, opts)
	var keys []base.InternalKey
	for i := 0; i < n; i++ {
		key := base.MakeInternalKey([]byte(fmt.Sprintf("key-%04d", i)), uint64(i+1), base.InternalKeyKindSet)
		require.NoError(t, w.Add(key, []byte(fmt.Sprintf("value-%d", i))))
		keys = append(keys, key)
	}
	size, err := w.Finish()
	require.NoError(t, err)
	require.Greater(t, size, int64(0))

	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	return f, keys
}

func defaultWriterOptions() WriterOptions {
	return WriterOptions{
		Comparer:     base.DefaultComparer,
		BlockSize:    256,
		Compression:  NoCompression,
		UseFilter:    true,
		FilterFPRate: 0.01,
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	opts := defaultWriterOptions()
	f, keys := buildTestTable(t, opts, 200)
	defer f.Close()

	r, err := OpenReader(f, 1, ReaderOptions{Comparer: opts.Comparer}, nil)
	require.NoError(t, err)
	defer r.Close()

	for _, k := range keys {
		search := base.MakeSearchKeyAt(k.UserKey, k.SeqNum())
		value, tombstone, found, err := r.Get(search)
		require.NoError(t, err)
		require.True(t, found)
		require.False(t, tombstone)
		require.Equal(t, fmt.Sprintf("value-%d", k.SeqNum()-1), string(value))
	}

	missing := base.MakeSearchKey([]byte("zzz-not-present"))
	_, _, found, err := r.Get(missing)
	require.NoError(t, err)
	require.False(t, found)
}

func TestWriterReaderIteratesInOrder(t *testing.T) {
	opts := defaultWriterOptions()
	f, keys := buildTestTable(t, opts, 150)
	defer f.Close()

	r, err := OpenReader(f, 2, ReaderOptions{Comparer: opts.Comparer}, nil)
	require.NoError(t, err)
	defer r.Close()

	it, err := r.NewIterator()
	require.NoError(t, err)

	i := 0
	for valid := it.First(); valid; valid = it.Next() {
		require.Less(t, i, len(keys))
		require.Equal(t, string(keys[i].UserKey), string(it.Key().UserKey))
		i++
	}
	require.NoError(t, it.Error())
	require.Equal(t, len(keys), i)
}

func TestWriterReaderSeekGE(t *testing.T) {
	opts := defaultWriterOptions()
	f, keys := buildTestTable(t, opts, 100)
	defer f.Close()

	r, err := OpenReader(f, 3, ReaderOptions{Comparer: opts.Comparer}, nil)
	require.NoError(t, err)
	defer r.Close()

	it, err := r.NewIterator()
	require.NoError(t, err)

	mid := keys[50]
	require.True(t, it.SeekGE(base.MakeSearchKeyAt(mid.UserKey, mid.SeqNum())))
	require.Equal(t, string(mid.UserKey), string(it.Key().UserKey))
}

func TestWriterRejectsOutOfOrderKeys(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "strata-sst-*.sst")
	require.NoError(t, err)
	defer f.Close()

	w := NewWriter(f, defaultWriterOptions())
	require.NoError(t, w.Add(base.MakeInternalKey([]byte("b"), 2, base.InternalKeyKindSet), []byte("v")))
	err = w.Add(base.MakeInternalKey([]byte("a"), 1, base.InternalKeyKindSet), []byte("v"))
	require.Error(t, err)
	require.Equal(t, base.KindInvalidArgument, base.Kind(err))
}

func TestWriterAbandonLeavesNoFooter(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "strata-sst-*.sst")
	require.NoError(t, err)
	defer f.Close()

	w := NewWriter(f, defaultWriterOptions())
	require.NoError(t, w.Add(base.MakeInternalKey([]byte("a"), 1, base.InternalKeyKindSet), []byte("v")))
	w.Abandon()

	info, err := f.Stat()
	require.NoError(t, err)
	require.Less(t, info.Size(), int64(footerLen))
}

func TestTombstoneIsReportedOnRead(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "strata-sst-*.sst")
	require.NoError(t, err)
	defer f.Close()

	opts := defaultWriterOptions()
	w := NewWriter(f, opts)
	key := base.MakeInternalKey([]byte("deleted-key"), 5, base.InternalKeyKindDelete)
	require.NoError(t, w.Add(key, nil))
	_, err = w.Finish()
	require.NoError(t, err)
	_, err = f.Seek(0, 0)
	require.NoError(t, err)

	r, err := OpenReader(f, 4, ReaderOptions{Comparer: opts.Comparer}, nil)
	require.NoError(t, err)
	defer r.Close()

	_, tombstone, found, err := r.Get(base.MakeSearchKeyAt(key.UserKey, 5))
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, tombstone)
}

func TestCompressedBlocksRoundTrip(t *testing.T) {
	for _, c := range []Compression{NoCompression, SnappyCompression, LZ4Compression} {
		c := c
		t.Run(fmt.Sprintf("compression=%d", c), func(t *testing.T) {
			opts := defaultWriterOptions()
			opts.Compression = c
			f, keys := buildTestTable(t, opts, 50)
			defer f.Close()

			r, err := OpenReader(f, 5, ReaderOptions{Comparer: opts.Comparer}, nil)
			require.NoError(t, err)
			defer r.Close()

			value, _, found, err := r.Get(base.MakeSearchKeyAt(keys[0].UserKey, keys[0].SeqNum()))
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "value-0", string(value))
		})
	}
}
