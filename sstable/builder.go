package sstable

import (
	"io"

	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/bloom"
)

// Writer builds a single SST from a strictly ascending stream of internal
// keys, per spec.md §4.6's Builder contract. Grounded on
// dialtr-pebble/sstable/writer.go's block-accumulate-and-flush shape,
// adapted to this package's fixed-width block codec and to emit a bloom
// filter block alongside the data and index blocks.
type Writer struct {
	w    io.Writer
	opts WriterOptions

	offset     uint64
	dataBlock  blockWriter
	indexBlock blockWriter
	filter     *bloom.Builder

	haveLastKey bool
	lastKey     base.InternalKey
	smallest    base.InternalKey
	largest     base.InternalKey
	numEntries  int

	closed bool
}

// NewWriter returns a Writer that appends a new table to w. w is typically
// an *os.File opened for the table's final path; the caller owns closing
// and, on Abandon, removing it.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	bw := &Writer{w: w, opts: opts}
	if opts.UseFilter {
		bw.filter = bloom.NewBuilder(opts.FilterFPRate)
	}
	return bw
}

// Add appends one (internal key, value) entry. Keys must be supplied in
// strictly ascending internal-key order; violating this is a programmer
// error in the caller (the memtable iterator and compaction merge iterator
// both already produce such an order).
func (bw *Writer) Add(key base.InternalKey, value []byte) error {
	if bw.closed {
		return base.NewError(base.KindInvalidState, "sstable: Add called after Finish/Abandon")
	}
	if bw.numEntries > 0 && base.InternalCompare(bw.opts.Comparer.Compare, bw.lastKey, key) >= 0 {
		return base.NewError(base.KindInvalidArgument, "sstable: keys must be added in strictly ascending order")
	}
	bw.dataBlock.add(key, value)
	if bw.filter != nil {
		bw.filter.Add(key.UserKey)
	}
	if bw.numEntries == 0 {
		bw.smallest = key.Clone()
	}
	bw.largest = key.Clone()
	bw.lastKey = bw.largest
	bw.haveLastKey = true
	bw.numEntries++

	if bw.dataBlock.estimatedSize() >= bw.opts.BlockSize {
		if err := bw.flushDataBlock(); err != nil {
			return err
		}
	}
	return nil
}

// flushDataBlock writes the current data block and adds its index entry.
// The index entry's separator key is the block's own last (largest) key --
// spec.md §4.6 notes this is a correct, if not maximally compact, choice,
// so the builder skips the teacher's "shortest separator with the next
// block's first key" step.
func (bw *Writer) flushDataBlock() error {
	if bw.dataBlock.empty() {
		return nil
	}
	raw := bw.dataBlock.finish()
	handle, err := writeBlockTo(bw.w, bw.offset, raw, bw.opts.Compression)
	if err != nil {
		return err
	}
	bw.offset += handle.Length + blockTrailerLen

	var hbuf [blockHandleLen]byte
	handle.encode(hbuf[:])
	bw.indexBlock.add(bw.lastKey, hbuf[:])

	bw.dataBlock.reset()
	return nil
}

// Finish flushes any pending data, writes the filter, meta-index, index,
// and footer, and returns the completed table's total size in bytes.
func (bw *Writer) Finish() (int64, error) {
	if bw.closed {
		return 0, base.NewError(base.KindInvalidState, "sstable: Finish called twice")
	}
	if err := bw.flushDataBlock(); err != nil {
		return 0, err
	}

	metaEntries := make(map[string]BlockHandle)
	if bw.filter != nil {
		filt := bw.filter.Finish()
		handle, err := writeBlockTo(bw.w, bw.offset, filt.Encode(), NoCompression)
		if err != nil {
			return 0, err
		}
		bw.offset += handle.Length + blockTrailerLen
		metaEntries[filterMetaName] = handle
	}

	metaIndexHandle, err := writeBlockTo(bw.w, bw.offset, encodeMetaIndex(metaEntries), NoCompression)
	if err != nil {
		return 0, err
	}
	bw.offset += metaIndexHandle.Length + blockTrailerLen

	indexRaw := bw.indexBlock.finish()
	indexHandle, err := writeBlockTo(bw.w, bw.offset, indexRaw, bw.opts.Compression)
	if err != nil {
		return 0, err
	}
	bw.offset += indexHandle.Length + blockTrailerLen

	f := footer{metaIndexHandle: metaIndexHandle, indexHandle: indexHandle}
	if _, err := bw.w.Write(f.encode()); err != nil {
		return 0, base.WrapError(base.KindIO, err, "sstable: write footer")
	}
	bw.offset += footerLen

	bw.closed = true
	return int64(bw.offset), nil
}

// Abandon marks the writer unusable without writing a footer, so the
// caller's partially-written file is safe to discard (spec.md §4.6: "the
// in-progress file must be removable; no footer is written").
func (bw *Writer) Abandon() {
	bw.closed = true
}

func (bw *Writer) Empty() bool { return bw.numEntries == 0 }

func (bw *Writer) NumEntries() int { return bw.numEntries }

func (bw *Writer) SmallestKey() base.InternalKey { return bw.smallest }

func (bw *Writer) LargestKey() base.InternalKey { return bw.largest }
