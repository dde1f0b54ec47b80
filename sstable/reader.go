package sstable

import (
	"io"
	"os"

	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/bloom"
	"github.com/strata-db/strata/internal/cache"
)

// Reader opens a completed table for point lookups and iteration, per
// spec.md §4.6's Reader contract. Grounded on darshanime-pebble/sstable's
// table.go footer-then-index-then-data open sequence, adapted to this
// package's block and filter formats.
type Reader struct {
	file     *os.File
	fileNum  uint64
	fileSize int64
	opts     ReaderOptions

	indexBlock []byte
	filter     *bloom.Filter

	cache *cache.Cache
}

// OpenReader opens the table stored in file, whose on-disk file number is
// fileNum (used both for cache keys and for diagnostics). blockCache may be
// nil, in which case blocks are re-read from disk on every access.
func OpenReader(file *os.File, fileNum uint64, opts ReaderOptions, blockCache *cache.Cache) (*Reader, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, base.WrapError(base.KindIO, err, "sstable: stat")
	}
	size := info.Size()
	if size < footerLen {
		return nil, errCorruptf("file is %d bytes, too short for a footer", size)
	}

	footerBuf := make([]byte, footerLen)
	if _, err := file.ReadAt(footerBuf, size-footerLen); err != nil {
		return nil, base.WrapError(base.KindIO, err, "sstable: read footer")
	}
	ft, err := decodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	metaIndexRaw, err := readBlockAt(file, ft.metaIndexHandle)
	if err != nil {
		return nil, err
	}
	metaEntries, err := decodeMetaIndex(metaIndexRaw)
	if err != nil {
		return nil, err
	}

	indexRaw, err := readBlockAt(file, ft.indexHandle)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:       file,
		fileNum:    fileNum,
		fileSize:   size,
		opts:       opts,
		indexBlock: indexRaw,
		cache:      blockCache,
	}

	if handle, ok := metaEntries[filterMetaName]; ok {
		filterRaw, err := readBlockAt(file, handle)
		if err != nil {
			return nil, err
		}
		filt, err := bloom.Decode(filterRaw)
		if err != nil {
			return nil, err
		}
		r.filter = filt
	}

	return r, nil
}

func (r *Reader) FileNumber() uint64 { return r.fileNum }

func (r *Reader) FileSize() int64 { return r.fileSize }

// readDataBlock returns the decoded contents of the data block at handle,
// consulting and populating the block cache if one was supplied.
func (r *Reader) readDataBlock(handle BlockHandle) ([]byte, error) {
	if r.cache != nil {
		key := cache.Key{FileNum: r.fileNum, Offset: handle.Offset}
		if data, ok := r.cache.Get(key); ok {
			return data, nil
		}
		data, err := readBlockAt(r.file, handle)
		if err != nil {
			return nil, err
		}
		r.cache.Insert(key, data)
		return data, nil
	}
	return readBlockAt(r.file, handle)
}

// Get returns the value and tombstone bit for the newest entry with the
// given user key and a sequence number <= the search key's, or found=false
// if no such entry exists in this table. A negative filter check (spec.md
// §4.5) short-circuits without touching the index or data blocks.
func (r *Reader) Get(search base.InternalKey) (value []byte, tombstone bool, found bool, err error) {
	if r.filter != nil && !r.filter.MayContain(search.UserKey) {
		return nil, false, false, nil
	}

	idx, err := newBlockIter(r.opts.Comparer.Compare, r.indexBlock)
	if err != nil {
		return nil, false, false, err
	}
	if !idx.SeekGE(search) {
		return nil, false, false, nil
	}
	handle, err := decodeBlockHandle(idx.Value())
	if err != nil {
		return nil, false, false, err
	}

	data, err := r.readDataBlock(handle)
	if err != nil {
		return nil, false, false, err
	}
	dataIter, err := newBlockIter(r.opts.Comparer.Compare, data)
	if err != nil {
		return nil, false, false, err
	}
	if !dataIter.SeekGE(search) {
		return nil, false, false, nil
	}
	if r.opts.Comparer.Compare(dataIter.Key().UserKey, search.UserKey) != 0 {
		return nil, false, false, nil
	}
	if dataIter.Key().Kind() == base.InternalKeyKindDelete {
		return nil, true, true, nil
	}
	return dataIter.Value(), false, true, nil
}

// Iterator walks a table's entries in ascending internal-key order.
type Iterator struct {
	r       *Reader
	idx     *blockIter
	data    *blockIter
	dataErr error
}

// NewIterator returns a fresh Iterator over the whole table.
func (r *Reader) NewIterator() (*Iterator, error) {
	idx, err := newBlockIter(r.opts.Comparer.Compare, r.indexBlock)
	if err != nil {
		return nil, err
	}
	return &Iterator{r: r, idx: idx}, nil
}

func (it *Iterator) loadDataBlock() bool {
	handle, err := decodeBlockHandle(it.idx.Value())
	if err != nil {
		it.dataErr = err
		return false
	}
	data, err := it.r.readDataBlock(handle)
	if err != nil {
		it.dataErr = err
		return false
	}
	di, err := newBlockIter(it.r.opts.Comparer.Compare, data)
	if err != nil {
		it.dataErr = err
		return false
	}
	it.data = di
	return true
}

// First positions the iterator at the table's first entry.
func (it *Iterator) First() bool {
	if !it.idx.First() {
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	return it.data.First()
}

// SeekGE positions the iterator at the first entry >= target.
func (it *Iterator) SeekGE(target base.InternalKey) bool {
	if !it.idx.SeekGE(target) {
		return false
	}
	if !it.loadDataBlock() {
		return false
	}
	if !it.data.SeekGE(target) {
		return it.advanceBlock()
	}
	return true
}

// advanceBlock moves to the first entry of the next index entry's data
// block, used when a seek lands past the end of the current block.
func (it *Iterator) advanceBlock() bool {
	for it.idx.Next() {
		if !it.loadDataBlock() {
			return false
		}
		if it.data.First() {
			return true
		}
	}
	return false
}

// Next advances to the following entry, crossing into the next data block
// as needed.
func (it *Iterator) Next() bool {
	if it.data.Next() {
		return true
	}
	return it.advanceBlock()
}

func (it *Iterator) Valid() bool {
	return it.data != nil && it.data.Valid()
}

func (it *Iterator) Key() base.InternalKey { return it.data.Key() }

func (it *Iterator) Value() []byte { return it.data.Value() }

func (it *Iterator) Error() error { return it.dataErr }

var _ io.Closer = (*Reader)(nil)

// Close closes the underlying file. The caller retains ownership of any
// block cache passed to OpenReader.
func (r *Reader) Close() error {
	return r.file.Close()
}
