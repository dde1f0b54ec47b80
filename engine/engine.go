// Package engine implements spec.md §4.10 (Engine) and §5 (Concurrency &
// Resource Model): the orchestrator that ties the WAL, MemTable, SST
// builder/reader, block cache, manifest, and compaction packages together
// into Open/Put/Delete/Write/Get/Snapshot/Iter/Scan/Flush/Close.
//
// Grounded on dialtr-pebble/db.go's DB type, simplified from its
// multi-memtable queue plus condition-variable-driven background flush into
// a single mutex guarding one active MemTable, with flush run synchronously
// at the freeze point. spec.md §4.10 explicitly allows this: "a production
// implementation performs [flush] on a background worker; correctness does
// not require concurrency". Compaction keeps its own background worker,
// since it never needs to block a writer.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/strata-db/strata/compaction"
	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/cache"
	"github.com/strata-db/strata/internal/manifest"
	"github.com/strata-db/strata/internal/memtable"
	"github.com/strata-db/strata/sstable"
	"github.com/strata-db/strata/wal"
)

// Engine is a single open handle on a database directory. It is safe for
// concurrent use by multiple goroutines (spec.md §5: "safe to share across
// threads without external synchronization").
type Engine struct {
	dir  string
	opts Options
	lock *dirLock

	versions   *manifest.VersionSet
	blockCache *cache.Cache
	tables     *tableCache
	picker     *compaction.Picker
	limiter    *writeLimiter

	mu         sync.Mutex
	mutable    *memtable.MemTable
	lastSeq    uint64
	logFileNum uint64
	log        *wal.Log
	closed     bool

	visibleSeq atomic.Uint64

	snapMu sync.Mutex
	snaps  map[*Snapshot]struct{}

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgGroup  *errgroup.Group
	bgWake   chan struct{}
}

// Open creates or recovers the database at dir, per spec.md §4.10's
// "Recovery on open" sequence.
func Open(dir string, opts Options) (*Engine, error) {
	opts = opts.ensureDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	info, statErr := os.Stat(dir)
	switch {
	case statErr == nil:
		if !info.IsDir() {
			return nil, base.NewError(base.KindInvalidArgument, "engine: %s is not a directory", dir)
		}
		if opts.ErrorIfExists {
			return nil, base.NewError(base.KindAlreadyExists, "engine: %s already exists", dir)
		}
	case os.IsNotExist(statErr):
		if !opts.CreateIfMissing {
			return nil, base.NewError(base.KindNotFound, "engine: %s does not exist", dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, base.WrapError(base.KindIO, err, "engine: create directory")
		}
	default:
		return nil, base.WrapError(base.KindIO, statErr, "engine: stat %s", dir)
	}

	lock, err := acquireDirLock(dir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dir:        dir,
		opts:       opts,
		lock:       lock,
		blockCache: cache.New(opts.BlockCacheSize),
		picker:     compaction.NewPicker(opts.Level0CompactionThreshold),
		limiter:    newWriteLimiter(opts.CompactionThrottleBytesPerSec),
		snaps:      make(map[*Snapshot]struct{}),
		bgWake:     make(chan struct{}, 1),
	}
	e.tables = newTableCache(dir, opts.Comparer, e.blockCache)

	if err := e.recover(); err != nil {
		lock.release()
		return nil, err
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(bgCtx)
	e.bgCancel = bgCancel
	e.bgGroup = group
	e.bgCtx = gctx
	group.Go(func() error { return e.runCompactionLoop(gctx) })

	return e, nil
}

// recover implements spec.md §4.10's five recovery-on-open steps 2-5 (step 1,
// directory creation, already happened in Open).
func (e *Engine) recover() error {
	manifestPath := filepath.Join(e.dir, manifest.FileName)
	var vs *manifest.VersionSet
	var err error
	if _, statErr := os.Stat(manifestPath); statErr == nil {
		vs, err = manifest.Recover(e.dir, e.opts.Comparer, e.opts.MaxLevels)
	} else {
		vs, err = manifest.Create(e.dir, e.opts.Comparer, e.opts.MaxLevels)
	}
	if err != nil {
		return err
	}
	e.versions = vs

	segments, err := wal.ListSegments(e.dir)
	if err != nil {
		return err
	}

	var highest uint64
	haveSegment := false
	for _, n := range segments {
		if !haveSegment || n > highest {
			highest = n
			haveSegment = true
		}
	}

	e.mutable = memtable.New(e.opts.Comparer.Compare)
	e.lastSeq = vs.LastSequence()

	if haveSegment {
		entries, corrupted, err := wal.Recover(e.dir, highest)
		if err != nil {
			return err
		}
		if corrupted {
			e.opts.Logger.Warningf("wal segment %06d: recovery stopped at a corrupt or truncated record; replayed %d entries", highest, len(entries))
		}
		for _, ent := range entries {
			b, err := decodeBatch(ent.Data)
			if err != nil {
				e.opts.Logger.Warningf("wal segment %06d: skipping unparseable batch: %v", highest, err)
				continue
			}
			seq := e.lastSeq + 1
			for _, op := range b.ops {
				switch op.kind {
				case base.InternalKeyKindSet:
					e.mutable.Put(op.key, op.value, seq)
				case base.InternalKeyKindDelete:
					e.mutable.Delete(op.key, seq)
				}
				seq++
			}
			e.lastSeq += uint64(b.Count())
		}
		for _, n := range segments {
			if n != highest {
				if rerr := wal.Remove(e.dir, n); rerr != nil {
					e.opts.Logger.Warningf("wal: removing stale segment %06d: %v", n, rerr)
				}
			}
		}
	}

	if err := e.removeOrphanTables(); err != nil {
		return err
	}

	if haveSegment {
		// Reopen the recovered segment for further appends until the next
		// freeze rotates it out.
		l, err := wal.OpenForAppend(e.dir, highest)
		if err != nil {
			return err
		}
		e.log = l
		e.logFileNum = highest
	} else if e.opts.UseWAL {
		n := vs.NextFileNum()
		l, err := wal.Create(e.dir, n)
		if err != nil {
			return err
		}
		e.log = l
		e.logFileNum = n
	}

	e.visibleSeq.Store(e.lastSeq)

	if e.mutable.ApproximateSize() > 0 {
		e.mu.Lock()
		err := e.flushLocked()
		e.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// removeOrphanTables deletes *.sst files not referenced by any level of the
// recovered version: leftovers from a flush or compaction that crashed
// after writing the table but before the manifest edit installing it
// (spec.md §4.10 step 4).
func (e *Engine) removeOrphanTables() error {
	known := make(map[uint64]bool)
	for _, level := range e.versions.Current().Levels {
		for _, f := range level {
			known[f.FileNum] = true
		}
	}
	infos, err := os.ReadDir(e.dir)
	if err != nil {
		return base.WrapError(base.KindIO, err, "engine: read directory")
	}
	for _, info := range infos {
		name := info.Name()
		if !strings.HasSuffix(name, ".sst") {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(name, ".sst"), 10, 64)
		if err != nil {
			continue
		}
		if !known[n] {
			if rerr := os.Remove(filepath.Join(e.dir, name)); rerr != nil {
				e.opts.Logger.Warningf("engine: removing orphan table %s: %v", name, rerr)
			}
		}
	}
	return nil
}

// Put stages and commits a single live value, per spec.md §4.10.
func (e *Engine) Put(key, value []byte) error {
	b := NewBatch()
	b.Put(key, value)
	return e.Write(b)
}

// Delete stages and commits a single tombstone.
func (e *Engine) Delete(key []byte) error {
	b := NewBatch()
	b.Delete(key)
	return e.Write(b)
}

// Write commits an ordered batch of Put/Delete operations atomically: all
// ops receive consecutive sequence numbers and either all or none become
// visible (spec.md §4.10's write(batch)).
func (e *Engine) Write(b *Batch) error {
	if b.Count() == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return base.NewError(base.KindInvalidState, "engine: closed")
	}

	baseSeq := e.lastSeq + 1
	newSeq := e.lastSeq + uint64(b.Count())

	if e.opts.UseWAL {
		if err := e.log.Append(b.encode()); err != nil {
			return err
		}
		if e.opts.SyncWAL {
			start := time.Now()
			if err := e.log.Sync(); err != nil {
				return err
			}
			e.opts.Metrics.RecordWALSyncMicros(time.Since(start).Microseconds())
		}
	}

	seq := baseSeq
	for _, op := range b.ops {
		switch op.kind {
		case base.InternalKeyKindSet:
			e.mutable.Put(op.key, op.value, seq)
		case base.InternalKeyKindDelete:
			e.mutable.Delete(op.key, seq)
		}
		seq++
	}
	e.lastSeq = newSeq
	e.visibleSeq.Store(newSeq)

	if e.mutable.ApproximateSize() >= e.opts.MemTableSize {
		return e.flushLocked()
	}
	return nil
}

// Get returns the value visible at the current sequence number.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	return e.GetAtSequence(key, e.visibleSeq.Load())
}

// GetAtSequence returns the value visible as of seq, per spec.md §4.10's Get
// algorithm: active MemTable, then each level in order, filter-then-index-
// then-block at each probed table, first match wins.
func (e *Engine) GetAtSequence(key []byte, seq uint64) ([]byte, bool, error) {
	e.mu.Lock()
	mem := e.mutable
	e.mu.Unlock()

	if value, tombstone, found := mem.Get(key, seq); found {
		if tombstone {
			return nil, false, nil
		}
		return value, true, nil
	}

	version := e.versions.Current()
	cmp := e.opts.Comparer.Compare
	search := base.MakeSearchKeyAt(key, seq)

	if len(version.Levels) > 0 {
		for _, f := range version.Levels[0] {
			if cmp(key, f.Smallest.UserKey) < 0 || cmp(key, f.Largest.UserKey) > 0 {
				continue
			}
			value, tombstone, found, err := e.probeFile(f.FileNum, search)
			if err != nil {
				return nil, false, err
			}
			if found {
				if tombstone {
					return nil, false, nil
				}
				return value, true, nil
			}
		}
	}

	for level := 1; level < version.NumLevels(); level++ {
		f := manifest.FindLevelGE(cmp, version.Levels[level], key)
		if f == nil {
			continue
		}
		value, tombstone, found, err := e.probeFile(f.FileNum, search)
		if err != nil {
			return nil, false, err
		}
		if found {
			if tombstone {
				return nil, false, nil
			}
			return value, true, nil
		}
	}
	return nil, false, nil
}

// Manifest returns the currently installed Version, for introspection
// tooling (cmd/strata's `manifest dump`). Callers must not mutate it.
func (e *Engine) Manifest() *manifest.Version {
	return e.versions.Current()
}

func (e *Engine) probeFile(fileNum uint64, search base.InternalKey) (value []byte, tombstone, found bool, err error) {
	r, err := e.tables.get(fileNum)
	if err != nil {
		return nil, false, false, err
	}
	return r.Get(search)
}

// Flush forces the active MemTable to flush, even if it is below the
// freeze threshold, per spec.md §4.10's flush() operation.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return base.NewError(base.KindInvalidState, "engine: closed")
	}
	return e.flushLocked()
}

// flushLocked drains the active MemTable into a new L0 table, installs it
// via a manifest edit, and rotates the WAL. Must be called with mu held.
func (e *Engine) flushLocked() error {
	if e.mutable.ApproximateSize() == 0 {
		return nil
	}

	fileNum := e.versions.NextFileNum()
	path := sstPath(e.dir, fileNum)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return base.WrapError(base.KindIO, err, "engine: create flush output")
	}
	w := sstable.NewWriter(f, e.opts.writerOptions())

	cmp := e.opts.Comparer.Compare
	it := e.mutable.NewIterator()
	var lastUserKey []byte
	haveLast := false
	for valid := it.First(); valid; valid = it.Next() {
		key := it.Key()
		if haveLast && cmp(key.UserKey, lastUserKey) == 0 {
			continue
		}
		haveLast = true
		lastUserKey = append(lastUserKey[:0], key.UserKey...)
		if err := w.Add(key, it.Value()); err != nil {
			w.Abandon()
			f.Close()
			os.Remove(path)
			return err
		}
	}

	if w.Empty() {
		w.Abandon()
		f.Close()
		os.Remove(path)
	} else {
		size, err := w.Finish()
		if err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return base.WrapError(base.KindIO, err, "engine: sync flush output")
		}
		if err := f.Close(); err != nil {
			return base.WrapError(base.KindIO, err, "engine: close flush output")
		}

		ve := &manifest.VersionEdit{
			NewFiles: []manifest.NewFileEntry{{
				Level: 0,
				Meta: &manifest.FileMetadata{
					FileNum:  fileNum,
					Size:     uint64(size),
					Smallest: w.SmallestKey(),
					Largest:  w.LargestKey(),
				},
			}},
		}
		if err := e.versions.LogAndApply(ve, e.lastSeq); err != nil {
			return err
		}
		e.opts.Metrics.RecordFlush()
	}

	if e.opts.UseWAL {
		oldLogNum := e.logFileNum
		newLogNum := e.versions.NextFileNum()
		newLog, err := wal.Create(e.dir, newLogNum)
		if err != nil {
			return err
		}
		if err := e.log.Close(); err != nil {
			newLog.Close()
			return err
		}
		if err := wal.Remove(e.dir, oldLogNum); err != nil {
			e.opts.Logger.Warningf("engine: removing old wal segment %06d: %v", oldLogNum, err)
		}
		e.log = newLog
		e.logFileNum = newLogNum
	}

	e.mutable = memtable.New(e.opts.Comparer.Compare)
	e.maybeScheduleCompactionLocked()
	return nil
}

func (e *Engine) maybeScheduleCompactionLocked() {
	select {
	case e.bgWake <- struct{}{}:
	default:
	}
}

// Close flushes the active MemTable, syncs and closes the WAL, waits for
// any in-flight compaction to finish, and releases all resources (spec.md
// §4.10's close()).
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true

	var err error
	if e.mutable != nil {
		if ferr := e.flushLocked(); ferr != nil && err == nil {
			err = ferr
		}
	}
	if e.opts.UseWAL && e.log != nil {
		if serr := e.log.Sync(); serr != nil && err == nil {
			err = serr
		}
		if cerr := e.log.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	e.mu.Unlock()

	if e.bgCancel != nil {
		e.bgCancel()
	}
	if e.bgGroup != nil {
		if werr := e.bgGroup.Wait(); werr != nil && werr != context.Canceled && err == nil {
			err = werr
		}
	}
	if terr := e.tables.closeAll(); terr != nil && err == nil {
		err = terr
	}
	if verr := e.versions.Close(); verr != nil && err == nil {
		err = verr
	}
	if lerr := e.lock.release(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}
