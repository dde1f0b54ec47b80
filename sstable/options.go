package sstable

import "github.com/strata-db/strata/internal/base"

// WriterOptions configures a Writer, sourced from the engine's Options
// (spec.md §6) at the point a table is built.
type WriterOptions struct {
	Comparer     *base.Comparer
	BlockSize    int
	Compression  Compression
	UseFilter    bool
	FilterFPRate float64
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Comparer *base.Comparer
}
