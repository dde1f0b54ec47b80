package compaction

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/cache"
	"github.com/strata-db/strata/internal/manifest"
	"github.com/strata-db/strata/sstable"
)

// Result reports what a Job produced. Empty is true when every input entry
// was either an older duplicate or a dropped tombstone, in which case the
// caller must not install any manifest edit (spec.md §4.9 step 4).
type Result struct {
	Output *manifest.FileMetadata
	Empty  bool
}

// Job executes one compaction task: merge the inputs and write a single
// replacement SST. The caller owns the atomic "log AddFile/DeleteFile, wait
// for fsync, then unlink inputs" sequencing of spec.md §4.9 step 6, since
// only it holds the VersionSet and the engine's live-reader bookkeeping.
type Job struct {
	Dir         string
	Task        *Task
	Comparer    *base.Comparer
	WriterOpts  sstable.WriterOptions
	BlockCache  *cache.Cache
	NextFileNum func() uint64
}

func sstPath(dir string, fileNum uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%06d.sst", fileNum))
}

// Run drains the merge iterator over the task's inputs into a new table,
// skipping older duplicates and, when the output level is >= 1, tombstones
// (the baseline policy decided for spec.md §9's snapshot-aware refinement
// question). An empty result means the task produced nothing to install.
func (j *Job) Run() (Result, error) {
	var readers []*sstable.Reader
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	sources := make([]base.Iterator, 0, len(j.Task.Inputs))
	for _, f := range j.Task.Inputs {
		file, err := os.Open(sstPath(j.Dir, f.FileNum))
		if err != nil {
			return Result{}, base.WrapError(base.KindIO, err, "compaction: open input %06d", f.FileNum)
		}
		r, err := sstable.OpenReader(file, f.FileNum, sstable.ReaderOptions{Comparer: j.Comparer}, j.BlockCache)
		if err != nil {
			file.Close()
			return Result{}, err
		}
		readers = append(readers, r)
		it, err := r.NewIterator()
		if err != nil {
			return Result{}, err
		}
		sources = append(sources, it)
	}

	merged := NewMergeIterator(j.Comparer.Compare, sources)

	outputFileNum := j.NextFileNum()
	outPath := sstPath(j.Dir, outputFileNum)
	outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return Result{}, base.WrapError(base.KindIO, err, "compaction: create output")
	}
	builder := sstable.NewWriter(outFile, j.WriterOpts)

	dropTombstones := j.Task.OutputLevel >= 1
	var lastUserKey []byte
	haveLastUserKey := false

	for valid := merged.First(); valid; valid = merged.Next() {
		key := merged.Key()
		if haveLastUserKey && j.Comparer.Compare(key.UserKey, lastUserKey) == 0 {
			continue
		}
		haveLastUserKey = true
		lastUserKey = append(lastUserKey[:0], key.UserKey...)

		if dropTombstones && key.Kind() == base.InternalKeyKindDelete {
			continue
		}
		if err := builder.Add(key, merged.Value()); err != nil {
			builder.Abandon()
			outFile.Close()
			os.Remove(outPath)
			return Result{}, err
		}
	}

	if builder.Empty() {
		builder.Abandon()
		outFile.Close()
		os.Remove(outPath)
		return Result{Empty: true}, nil
	}

	if _, err := builder.Finish(); err != nil {
		outFile.Close()
		os.Remove(outPath)
		return Result{}, err
	}
	if err := outFile.Sync(); err != nil {
		outFile.Close()
		return Result{}, base.WrapError(base.KindIO, err, "compaction: sync output")
	}
	info, err := outFile.Stat()
	if err != nil {
		outFile.Close()
		return Result{}, base.WrapError(base.KindIO, err, "compaction: stat output")
	}
	if err := outFile.Close(); err != nil {
		return Result{}, base.WrapError(base.KindIO, err, "compaction: close output")
	}

	return Result{Output: &manifest.FileMetadata{
		FileNum:  outputFileNum,
		Size:     uint64(info.Size()),
		Smallest: builder.SmallestKey(),
		Largest:  builder.LargestKey(),
	}}, nil
}
