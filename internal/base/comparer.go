// Package base holds the types shared by every layer of the storage engine:
// the user-key comparer, the internal-key encoding, and the error kinds. It
// corresponds to the teacher's db package, flattened into one leaf package
// so that record, memtable, sstable, manifest, and compaction can all depend
// on it without cycles.
package base

import "bytes"

// Compare orders two user keys. The zero value is not usable; use
// DefaultCompare for the natural lexicographic byte ordering.
type Compare func(a, b []byte) int

// DefaultCompare orders keys lexicographically over unsigned bytes, matching
// bytes.Compare.
func DefaultCompare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Comparer bundles a Compare function with a name used to detect a mismatch
// between the comparer a database was created with and the one it is being
// reopened with.
type Comparer struct {
	Compare Compare
	Name    string
}

// DefaultComparer is the natural byte-wise ordering.
var DefaultComparer = &Comparer{
	Compare: DefaultCompare,
	Name:    "strata.BytewiseComparator",
}

// SharedPrefixLen returns the length of the common prefix of a and b. Used by
// the block writer to prefix-compress successive keys.
func SharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
