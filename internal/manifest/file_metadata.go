// Package manifest implements the Version/VersionEdit/VersionSet machinery
// of spec.md §4.8: the durable record of which SSTs belong to which level,
// and the append-only log of edits that gets replayed on recovery.
//
// Grounded on dialtr-pebble/version_set.go's versionSet (the file-number
// allocator, the logAndApply/createManifest sequencing) and on
// other_examples' hopkings2008-pebble version_edit.go for the tagged-union
// on-disk edit format, simplified throughout to spec.md §4.8's single
// fixed-name MANIFEST file (no MANIFEST-NNNN rotation, hence no CURRENT
// indirection file) and its four edit kinds.
package manifest

import "github.com/strata-db/strata/internal/base"

// FileMetadata describes one SST's identity and key range within a Version.
type FileMetadata struct {
	FileNum  uint64
	Size     uint64
	Smallest base.InternalKey
	Largest  base.InternalKey
}
