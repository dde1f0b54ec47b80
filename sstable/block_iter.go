package sstable

import (
	"encoding/binary"
	"sort"

	"github.com/strata-db/strata/internal/base"
)

// blockIter is a forward iterator over one decoded, decompressed data (or
// index) block, implementing the uniform cursor contract described in
// spec.md §9 ("Polymorphism"): SeekGE, First, Next, Valid, Key, Value.
// Grounded directly on dialtr-pebble/sstable/block.go's blockIter, with the
// unsafe-pointer entry decoding replaced by plain slice indexing to match
// spec.md §4.4's fixed-width (not varint) entry encoding.
type blockIter struct {
	cmp            base.Compare
	data           []byte
	restartsOffset int
	numRestarts    int
	offset         int
	nextOffset     int
	key            []byte
	val            []byte
	ikey           base.InternalKey
}

func newBlockIter(cmp base.Compare, data []byte) (*blockIter, error) {
	i := &blockIter{}
	if err := i.init(cmp, data); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *blockIter) init(cmp base.Compare, data []byte) error {
	if len(data) < 4 {
		return errCorruptf("block too short (%d bytes)", len(data))
	}
	numRestarts := int(binary.LittleEndian.Uint32(data[len(data)-4:]))
	if numRestarts == 0 {
		return errCorruptf("block has no restart points")
	}
	restartsOffset := len(data) - 4*(1+numRestarts)
	if restartsOffset < 0 {
		return errCorruptf("block restart table overruns block (%d restarts)", numRestarts)
	}
	i.cmp = cmp
	i.data = data
	i.restartsOffset = restartsOffset
	i.numRestarts = numRestarts
	i.key = i.key[:0]
	i.val = nil
	i.offset = -1
	i.nextOffset = 0
	return nil
}

// readEntryAt decodes the entry starting at offset, given the full key bytes of
// the previous entry (needed to expand the shared prefix), and returns the
// reconstructed full key, the value, and the offset of the following entry.
func (i *blockIter) readEntryAt(offset int, prevKey []byte) (key, value []byte, next int, err error) {
	if offset+12 > i.restartsOffset {
		return nil, nil, 0, errCorruptf("entry header overruns block at offset %d", offset)
	}
	shared := int(binary.LittleEndian.Uint32(i.data[offset : offset+4]))
	unshared := int(binary.LittleEndian.Uint32(i.data[offset+4 : offset+8]))
	valueLen := int(binary.LittleEndian.Uint32(i.data[offset+8 : offset+12]))
	pos := offset + 12
	if shared > len(prevKey) || pos+unshared+valueLen > i.restartsOffset {
		return nil, nil, 0, errCorruptf("corrupt entry at offset %d", offset)
	}
	full := make([]byte, shared+unshared)
	copy(full, prevKey[:shared])
	copy(full[shared:], i.data[pos:pos+unshared])
	pos += unshared
	val := i.data[pos : pos+valueLen]
	pos += valueLen
	return full, val, pos, nil
}

func (i *blockIter) restartOffset(index int) int {
	o := i.restartsOffset + 4*index
	return int(binary.LittleEndian.Uint32(i.data[o : o+4]))
}

func (i *blockIter) loadAt(offset int, prevKey []byte) bool {
	key, val, next, err := i.readEntryAt(offset, prevKey)
	if err != nil {
		i.offset = -1
		return false
	}
	i.offset = offset
	i.nextOffset = next
	i.key = key
	i.val = val
	i.ikey = base.DecodeInternalKey(i.key)
	return true
}

// First positions the iterator at the block's first entry.
func (i *blockIter) First() bool {
	return i.loadAt(0, nil)
}

// Next advances to the following entry.
func (i *blockIter) Next() bool {
	if !i.Valid() || i.nextOffset >= i.restartsOffset {
		i.offset = -1
		return false
	}
	return i.loadAt(i.nextOffset, i.key)
}

// Valid reports whether the iterator is positioned at an entry.
func (i *blockIter) Valid() bool {
	return i.offset >= 0 && i.offset < i.restartsOffset
}

// Key returns the current entry's internal key. Only valid while the
// iterator has not advanced past it; callers that retain it across a Next()
// must copy.
func (i *blockIter) Key() base.InternalKey { return i.ikey }

// Value returns the current entry's payload.
func (i *blockIter) Value() []byte { return i.val }

// SeekGE positions the iterator at the first entry whose internal key is >=
// target, using binary search over restart points followed by a linear scan
// within the region (spec.md §4.4's documented contract).
func (i *blockIter) SeekGE(target base.InternalKey) bool {
	index := sort.Search(i.numRestarts, func(j int) bool {
		off := i.restartOffset(j)
		// Restart-point entries always have shared == 0.
		key, _, _, err := i.readEntryAt(off, nil)
		if err != nil {
			return true
		}
		return base.InternalCompare(i.cmp, base.DecodeInternalKey(key), target) >= 0
	})

	start := 0
	var prevKey []byte
	if index > 0 {
		start = i.restartOffset(index - 1)
	}
	if !i.loadAt(start, prevKey) {
		return false
	}
	for i.Valid() {
		if base.InternalCompare(i.cmp, i.ikey, target) >= 0 {
			return true
		}
		if !i.Next() {
			return false
		}
	}
	return false
}
