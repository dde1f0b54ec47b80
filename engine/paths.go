package engine

import (
	"fmt"
	"path/filepath"
)

// sstPath returns the canonical on-disk path of SST fileNum within dir,
// per spec.md §6: a 6-digit zero-padded integer with a ".sst" suffix.
func sstPath(dir string, fileNum uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%06d.sst", fileNum))
}

// lockPath returns the path of the directory's advisory lock file.
func lockPath(dir string) string {
	return filepath.Join(dir, "LOCK")
}
