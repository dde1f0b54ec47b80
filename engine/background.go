package engine

import (
	"context"
	"os"

	"github.com/strata-db/strata/compaction"
	"github.com/strata-db/strata/internal/manifest"
)

// runCompactionLoop is the background worker's body: block until woken by a
// flush and then drain every due compaction task
// before going back to sleep. It never blocks a writer, matching spec.md
// §5's "Compaction/flush background job... does not hold the write lock".
func (e *Engine) runCompactionLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.bgWake:
			for {
				ran, err := e.runCompactionOnce(ctx)
				if err != nil {
					e.opts.Logger.Errorf("compaction: %v", err)
					break
				}
				if !ran {
					break
				}
			}
		}
	}
}

// Compact synchronously drains every compaction the picker currently
// considers due, blocking until none remain. Grounded on dialtr-pebble/db.go's
// exported `Compact` method, which the teacher exposes as a manually
// triggerable operation alongside the automatic background trigger.
func (e *Engine) Compact() error {
	for {
		ran, err := e.runCompactionOnce(e.bgCtx)
		if err != nil {
			return err
		}
		if !ran {
			return nil
		}
	}
}

// runCompactionOnce asks the picker for the next due task, runs it, and
// installs the result. ran is false when no task was due.
func (e *Engine) runCompactionOnce(ctx context.Context) (ran bool, err error) {
	version := e.versions.Current()
	task := e.picker.Pick(version)
	if task == nil {
		return false, nil
	}

	if e.limiter != nil {
		var totalBytes int
		for _, f := range task.Inputs {
			totalBytes += int(f.Size)
		}
		if werr := e.limiter.waitN(ctx, totalBytes); werr != nil {
			return false, werr
		}
	}

	job := &compaction.Job{
		Dir:         e.dir,
		Task:        task,
		Comparer:    e.opts.Comparer,
		WriterOpts:  e.opts.writerOptions(),
		BlockCache:  e.blockCache,
		NextFileNum: e.versions.NextFileNum,
	}
	result, err := job.Run()
	if err != nil {
		return false, err
	}

	ve := &manifest.VersionEdit{}
	for _, f := range task.Inputs {
		ve.DeletedFiles = append(ve.DeletedFiles, manifest.DeletedFileEntry{Level: task.Level, FileNum: f.FileNum})
	}
	if !result.Empty {
		ve.NewFiles = append(ve.NewFiles, manifest.NewFileEntry{Level: task.OutputLevel, Meta: result.Output})
	}
	if err := e.versions.LogAndApply(ve, e.versions.LastSequence()); err != nil {
		return false, err
	}

	for _, f := range task.Inputs {
		e.tables.evict(f.FileNum)
		if rerr := os.Remove(sstPath(e.dir, f.FileNum)); rerr != nil && !os.IsNotExist(rerr) {
			e.opts.Logger.Warningf("compaction: removing input table %06d: %v", f.FileNum, rerr)
		}
	}
	if !result.Empty {
		e.opts.Metrics.RecordCompaction(task.OutputLevel, result.Output.Size)
	}
	return true, nil
}
