package manifest

import (
	"sort"

	"github.com/strata-db/strata/internal/base"
)

// Version is an immutable snapshot of the table organization: one ordered
// list of files per level (spec.md §4.8: `Vec<Vec<FileMeta>>`). Level 0
// entries may have overlapping key ranges and are kept newest-file-first
// (decision recorded in DESIGN.md for spec.md §9's open L0-ordering
// question); levels >= 1 are kept sorted by smallest key with disjoint
// ranges.
type Version struct {
	Levels [][]*FileMetadata
}

// NewVersion returns an empty Version with numLevels levels.
func NewVersion(numLevels int) *Version {
	return &Version{Levels: make([][]*FileMetadata, numLevels)}
}

// NumLevels returns the number of levels this version was built with.
func (v *Version) NumLevels() int { return len(v.Levels) }

// clone returns a shallow copy: each level's file slice is copied, but the
// *FileMetadata values are shared (they are themselves immutable once
// created).
func (v *Version) clone() *Version {
	nv := &Version{Levels: make([][]*FileMetadata, len(v.Levels))}
	for i, files := range v.Levels {
		nv.Levels[i] = append([]*FileMetadata(nil), files...)
	}
	return nv
}

// sortLevelBySmallest sorts files in a level >= 1 by ascending smallest key,
// as required for the binary-search probe in the Get path (spec.md §4.10).
func sortLevelBySmallest(cmp base.Compare, files []*FileMetadata) {
	sort.Slice(files, func(i, j int) bool {
		return base.InternalCompare(cmp, files[i].Smallest, files[j].Smallest) < 0
	})
}

// sortLevelZero orders L0 files newest-file-first by file number, so a Get
// probe (spec.md §4.10 step 4) and a manifest snapshot both see a stable,
// restart-independent order.
func sortLevelZero(files []*FileMetadata) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].FileNum > files[j].FileNum
	})
}

// FindLevelGE returns the single level >= 1 file whose [smallest, largest]
// range contains userKey, or nil. Levels >= 1 are non-overlapping and sorted
// by smallest key, so a binary search suffices.
func FindLevelGE(cmp base.Compare, files []*FileMetadata, userKey []byte) *FileMetadata {
	i := sort.Search(len(files), func(i int) bool {
		return cmp(files[i].Largest.UserKey, userKey) >= 0
	})
	if i >= len(files) {
		return nil
	}
	if cmp(files[i].Smallest.UserKey, userKey) > 0 {
		return nil
	}
	return files[i]
}
