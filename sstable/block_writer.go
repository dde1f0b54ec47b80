package sstable

import (
	"encoding/binary"

	"github.com/strata-db/strata/internal/base"
)

// restartInterval is the number of entries between full-key restart points
// within a data block (spec.md §4.4). Not exposed as an Option; every
// reference implementation in the teacher lineage treats it as an internal
// tuning constant rather than something callers choose per table.
const restartInterval = 16

// blockWriter accumulates prefix-compressed (internal key, value) entries
// into a single block, per spec.md §4.4's exact entry layout:
//
//	[shared_key_len:u32][unshared_key_len:u32][value_len:u32][key_suffix][value]
//
// followed by a trailer of restart offsets and their count. This differs
// from the teacher's own LevelDB-style varint entry encoding -- the teacher
// showed the *shape* (restart points, shared-prefix compression, a trailing
// offset table) but spec.md §4.4 pins the field widths explicitly as a
// testable wire format (§8 item 8), so the fixed-width encoding follows the
// spec literally while keeping the teacher's restart-point architecture.
type blockWriter struct {
	buf      []byte
	restarts []uint32
	nEntries int
	lastKey  []byte
	keyBuf   []byte
}

func (w *blockWriter) reset() {
	w.buf = w.buf[:0]
	w.restarts = w.restarts[:0]
	w.nEntries = 0
	w.lastKey = w.lastKey[:0]
}

// add appends one entry. Keys must be added in strictly ascending order
// (spec.md §4.6 Builder requirement); this is enforced by the table builder,
// not here, to keep the block writer itself a dumb, reusable codec.
func (w *blockWriter) add(key base.InternalKey, value []byte) {
	size := key.Size()
	if cap(w.keyBuf) < size {
		w.keyBuf = make([]byte, size)
	}
	encKey := w.keyBuf[:size]
	key.Encode(encKey)

	shared := 0
	if w.nEntries%restartInterval == 0 {
		w.restarts = append(w.restarts, uint32(len(w.buf)))
	} else {
		shared = base.SharedPrefixLen(encKey, w.lastKey)
	}
	unshared := size - shared

	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(shared))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(unshared))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(value)))
	w.buf = append(w.buf, hdr[:]...)
	w.buf = append(w.buf, encKey[shared:]...)
	w.buf = append(w.buf, value...)

	w.lastKey = append(w.lastKey[:0], encKey...)
	w.nEntries++
}

// estimatedSize returns the block's encoded size if finished right now,
// used by the table builder to decide when to flush the current block.
func (w *blockWriter) estimatedSize() int {
	return len(w.buf) + 4*(len(w.restarts)+1)
}

func (w *blockWriter) empty() bool { return w.nEntries == 0 }

// finish appends the restart-point trailer and returns the block bytes.
// The returned slice aliases the writer's internal buffer and is only valid
// until the next reset.
func (w *blockWriter) finish() []byte {
	if len(w.restarts) == 0 {
		w.restarts = append(w.restarts, 0)
	}
	var tmp [4]byte
	for _, r := range w.restarts {
		binary.LittleEndian.PutUint32(tmp[:], r)
		w.buf = append(w.buf, tmp[:]...)
	}
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(w.restarts)))
	w.buf = append(w.buf, tmp[:]...)
	return w.buf
}
