package manifest

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/logger"
	"github.com/strata-db/strata/internal/record"
)

// FileName is the fixed name of the single append-only manifest file
// (spec.md §6: no MANIFEST-NNNN rotation, hence no CURRENT indirection
// file -- simpler than the teacher's pebble-lineage scheme).
const FileName = "MANIFEST"

func manifestPath(dirname string) string {
	return filepath.Join(dirname, FileName)
}

// VersionSet owns the current Version, the manifest file, and the
// file-number allocator, grounded on dialtr-pebble/version_set.go's
// versionSet (load/logAndApply/createManifest/nextFileNum), simplified to
// the single fixed-name manifest file.
type VersionSet struct {
	mu sync.Mutex

	dirname   string
	comparer  *base.Comparer
	numLevels int

	current *Version

	nextFileNumber uint64
	lastSequence   uint64

	manifestFile   *os.File
	manifestWriter *record.Writer
}

// Create initializes a brand new manifest for a freshly created database.
func Create(dirname string, comparer *base.Comparer, numLevels int) (*VersionSet, error) {
	f, err := os.OpenFile(manifestPath(dirname), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, base.WrapError(base.KindIO, err, "manifest: create")
	}
	vs := &VersionSet{
		dirname:        dirname,
		comparer:       comparer,
		numLevels:      numLevels,
		current:        NewVersion(numLevels),
		manifestFile:   f,
		manifestWriter: record.NewWriter(f),
		nextFileNumber: 1,
	}
	ve := &VersionEdit{
		ComparerName:   comparer.Name,
		NextFileNumber: vs.nextFileNumber,
		LastSequence:   0,
	}
	if err := vs.appendEdit(ve); err != nil {
		f.Close()
		return nil, err
	}
	return vs, nil
}

// Recover replays an existing manifest to rebuild the current Version, the
// file-number allocator's watermark, and the last durably-recorded
// sequence number (spec.md §4.8's Recovery).
func Recover(dirname string, comparer *base.Comparer, numLevels int) (*VersionSet, error) {
	path := manifestPath(dirname)
	rf, err := os.Open(path)
	if err != nil {
		return nil, base.WrapError(base.KindIO, err, "manifest: open for recovery")
	}
	defer rf.Close()

	vs := &VersionSet{
		dirname:        dirname,
		comparer:       comparer,
		numLevels:      numLevels,
		nextFileNumber: 1,
	}

	rr := record.NewReader(rf)
	var current *Version
	for {
		data, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ve, err := DecodeVersionEdit(data)
		if err != nil {
			return nil, err
		}
		if ve.ComparerName != "" && ve.ComparerName != comparer.Name {
			return nil, base.NewError(base.KindInvalidArgument,
				"manifest: opened with comparer %q but manifest was created with %q", comparer.Name, ve.ComparerName)
		}
		newVersion, err := Apply(current, numLevels, comparer.Compare, ve)
		if err != nil {
			return nil, err
		}
		current = newVersion
		if ve.NextFileNumber != 0 {
			vs.markFileNumUsed(ve.NextFileNumber)
		}
		if ve.LastSequence != 0 {
			vs.lastSequence = ve.LastSequence
		}
		for _, nf := range ve.NewFiles {
			vs.markFileNumUsed(nf.Meta.FileNum)
		}
	}
	if current == nil {
		current = NewVersion(numLevels)
	}
	vs.current = current

	wf, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, base.WrapError(base.KindIO, err, "manifest: reopen for append")
	}
	vs.manifestFile = wf
	vs.manifestWriter = record.NewWriter(wf)
	return vs, nil
}

func (vs *VersionSet) markFileNumUsed(fileNum uint64) {
	if vs.nextFileNumber <= fileNum {
		vs.nextFileNumber = fileNum + 1
	}
}

// NextFileNum returns the next file number and advances the allocator.
// Allocations are only durable once a subsequent LogAndApply references
// them (spec.md §4.8's allocator contract); a concurrent flush and
// compaction never observe the same number since this increment is
// serialized by mu.
func (vs *VersionSet) NextFileNum() uint64 {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	n := vs.nextFileNumber
	vs.nextFileNumber++
	return n
}

// Current returns the current Version snapshot.
func (vs *VersionSet) Current() *Version {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.current
}

// LastSequence returns the highest sequence number durably recorded in the
// manifest as of the most recent LogAndApply (or Recover).
func (vs *VersionSet) LastSequence() uint64 {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.lastSequence
}

// LogAndApply durably appends ve to the manifest and installs the resulting
// Version as current. lastSequence stamps the edit's durable sequence
// watermark.
func (vs *VersionSet) LogAndApply(ve *VersionEdit, lastSequence uint64) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	ve.NextFileNumber = vs.nextFileNumber
	ve.LastSequence = lastSequence

	newVersion, err := Apply(vs.current, vs.numLevels, vs.comparer.Compare, ve)
	if err != nil {
		return err
	}
	if err := vs.appendEdit(ve); err != nil {
		return err
	}
	vs.current = newVersion
	vs.lastSequence = lastSequence
	return nil
}

func (vs *VersionSet) appendEdit(ve *VersionEdit) error {
	if err := vs.manifestWriter.WriteRecord(ve.Encode()); err != nil {
		return err
	}
	if err := vs.manifestFile.Sync(); err != nil {
		return base.WrapError(base.KindIO, err, "manifest: fsync")
	}
	return nil
}

// ExcludeMissingFiles drops, from the current Version, any file for which
// exists returns false, logging a warning for each. This implements
// spec.md §4.8's tolerance for files referenced by the manifest that
// vanished between a crashed AddFile log and the durable rename of the
// table into place.
func (vs *VersionSet) ExcludeMissingFiles(exists func(fileNum uint64) bool, log logger.Logger) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	v := vs.current.clone()
	for level := range v.Levels {
		kept := v.Levels[level][:0:0]
		for _, f := range v.Levels[level] {
			if exists(f.FileNum) {
				kept = append(kept, f)
			} else {
				log.Warningf("sstable %06d referenced by manifest is missing on disk; excluding from recovered version", f.FileNum)
			}
		}
		v.Levels[level] = kept
	}
	vs.current = v
}

// Close closes the manifest file.
func (vs *VersionSet) Close() error {
	return vs.manifestFile.Close()
}
