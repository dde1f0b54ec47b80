package compaction

import (
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/manifest"
	"github.com/strata-db/strata/sstable"
)

func writerOpts() sstable.WriterOptions {
	return sstable.WriterOptions{
		Comparer:     base.DefaultComparer,
		BlockSize:    256,
		Compression:  sstable.NoCompression,
		UseFilter:    true,
		FilterFPRate: 0.01,
	}
}

func writeTestTable(t *testing.T, dir string, fileNum uint64, entries map[string]struct {
	seq  uint64
	kind base.InternalKeyKind
	val  string
}) *manifest.FileMetadata {
	t.Helper()
	path := sstPath(dir, fileNum)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	// Simple insertion sort; test inputs are small.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}

	w := sstable.NewWriter(f, writerOpts())
	var smallest, largest base.InternalKey
	for i, k := range keys {
		e := entries[k]
		ik := base.MakeInternalKey([]byte(k), e.seq, e.kind)
		require.NoError(t, w.Add(ik, []byte(e.val)))
		if i == 0 {
			smallest = ik
		}
		largest = ik
	}
	size, err := w.Finish()
	require.NoError(t, err)

	return &manifest.FileMetadata{FileNum: fileNum, Size: uint64(size), Smallest: smallest, Largest: largest}
}

func TestJobRunMergesAndDropsDuplicates(t *testing.T) {
	dir := t.TempDir()

	type ent = struct {
		seq  uint64
		kind base.InternalKeyKind
		val  string
	}
	f1 := writeTestTable(t, dir, 1, map[string]ent{
		"a": {seq: 3, kind: base.InternalKeyKindSet, val: "new-a"},
		"c": {seq: 4, kind: base.InternalKeyKindSet, val: "c-val"},
	})
	f2 := writeTestTable(t, dir, 2, map[string]ent{
		"a": {seq: 1, kind: base.InternalKeyKindSet, val: "old-a"},
		"b": {seq: 2, kind: base.InternalKeyKindSet, val: "b-val"},
	})

	var nextFileNum uint64 = 10
	job := &Job{
		Dir:      dir,
		Task:     &Task{Inputs: []*manifest.FileMetadata{f1, f2}, Level: 0, OutputLevel: 1},
		Comparer: base.DefaultComparer,
		WriterOpts: writerOpts(),
		NextFileNum: func() uint64 {
			n := atomic.AddUint64(&nextFileNum, 1)
			return n - 1
		},
	}

	result, err := job.Run()
	require.NoError(t, err)
	require.False(t, result.Empty)
	require.NotNil(t, result.Output)

	f, err := os.Open(sstPath(dir, result.Output.FileNum))
	require.NoError(t, err)
	defer f.Close()
	r, err := sstable.OpenReader(f, result.Output.FileNum, sstable.ReaderOptions{Comparer: base.DefaultComparer}, nil)
	require.NoError(t, err)
	defer r.Close()

	value, _, found, err := r.Get(base.MakeSearchKeyAt([]byte("a"), 10))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "new-a", string(value))

	it, err := r.NewIterator()
	require.NoError(t, err)
	count := 0
	for valid := it.First(); valid; valid = it.Next() {
		count++
	}
	require.Equal(t, 3, count) // a, b, c -- the older "a" duplicate is dropped
}

func TestJobRunDropsTombstonesAtOutputLevelOne(t *testing.T) {
	dir := t.TempDir()
	type ent = struct {
		seq  uint64
		kind base.InternalKeyKind
		val  string
	}
	f1 := writeTestTable(t, dir, 1, map[string]ent{
		"deleted": {seq: 5, kind: base.InternalKeyKindDelete, val: ""},
		"kept":    {seq: 6, kind: base.InternalKeyKindSet, val: "v"},
	})

	var nextFileNum uint64 = 20
	job := &Job{
		Dir:        dir,
		Task:       &Task{Inputs: []*manifest.FileMetadata{f1}, Level: 0, OutputLevel: 1},
		Comparer:   base.DefaultComparer,
		WriterOpts: writerOpts(),
		NextFileNum: func() uint64 {
			n := atomic.AddUint64(&nextFileNum, 1)
			return n - 1
		},
	}
	result, err := job.Run()
	require.NoError(t, err)
	require.False(t, result.Empty)

	f, err := os.Open(sstPath(dir, result.Output.FileNum))
	require.NoError(t, err)
	defer f.Close()
	r, err := sstable.OpenReader(f, result.Output.FileNum, sstable.ReaderOptions{Comparer: base.DefaultComparer}, nil)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 1, countEntries(t, r))
}

func countEntries(t *testing.T, r *sstable.Reader) int {
	t.Helper()
	it, err := r.NewIterator()
	require.NoError(t, err)
	n := 0
	for valid := it.First(); valid; valid = it.Next() {
		n++
	}
	return n
}

func TestJobRunEmptyWhenAllEntriesDropped(t *testing.T) {
	dir := t.TempDir()
	type ent = struct {
		seq  uint64
		kind base.InternalKeyKind
		val  string
	}
	f1 := writeTestTable(t, dir, 1, map[string]ent{
		"only": {seq: 1, kind: base.InternalKeyKindDelete, val: ""},
	})

	var nextFileNum uint64 = 30
	job := &Job{
		Dir:        dir,
		Task:       &Task{Inputs: []*manifest.FileMetadata{f1}, Level: 1, OutputLevel: 2},
		Comparer:   base.DefaultComparer,
		WriterOpts: writerOpts(),
		NextFileNum: func() uint64 {
			n := atomic.AddUint64(&nextFileNum, 1)
			return n - 1
		},
	}
	result, err := job.Run()
	require.NoError(t, err)
	require.True(t, result.Empty)

	_, statErr := os.Stat(sstPath(dir, 30))
	require.True(t, os.IsNotExist(statErr))
}

func TestPickerPrefersL0CountTrigger(t *testing.T) {
	p := NewPicker(4)
	v := manifest.NewVersion(7)
	for i := 0; i < 4; i++ {
		v.Levels[0] = append(v.Levels[0], &manifest.FileMetadata{FileNum: uint64(i + 1)})
	}
	task := p.Pick(v)
	require.NotNil(t, task)
	require.Equal(t, 0, task.Level)
	require.Equal(t, 1, task.OutputLevel)
	require.Len(t, task.Inputs, 4)
}

func TestPickerSizeTriggerAboveL0(t *testing.T) {
	p := NewPicker(100) // disable L0 trigger
	v := manifest.NewVersion(7)
	v.Levels[1] = []*manifest.FileMetadata{
		{FileNum: 5, Size: oneMiB * 11},
	}
	task := p.Pick(v)
	require.NotNil(t, task)
	require.Equal(t, 1, task.Level)
	require.Equal(t, 2, task.OutputLevel)
}

func TestPickerReturnsNilWhenNothingDue(t *testing.T) {
	p := NewPicker(4)
	v := manifest.NewVersion(7)
	require.Nil(t, p.Pick(v))
}
