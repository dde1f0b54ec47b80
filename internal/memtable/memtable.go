// Package memtable implements the in-memory sorted version store (spec.md
// §4.3): a concurrent ordered map keyed by internal key, tracking its own
// approximate byte size so the engine knows when to freeze it.
package memtable

import (
	"sync/atomic"

	"github.com/strata-db/strata/internal/base"
)

// MemTable is a sorted, concurrent map from internal key to payload. Puts
// and deletes never block concurrent readers; readers bound to an older
// snapshot sequence are unaffected by newer writes because entries are
// never mutated or removed after insertion.
type MemTable struct {
	cmp  base.Compare
	skl  *skiplist
	size int64 // atomic approximate byte size
}

// New creates an empty MemTable ordered by cmp.
func New(cmp base.Compare) *MemTable {
	return &MemTable{cmp: cmp, skl: newSkiplist(cmp)}
}

// Put records a live value for userKey at seqNum.
func (m *MemTable) Put(userKey, value []byte, seqNum uint64) {
	m.insert(base.MakeInternalKey(userKey, seqNum, base.InternalKeyKindSet), value)
}

// Delete records a tombstone for userKey at seqNum.
func (m *MemTable) Delete(userKey []byte, seqNum uint64) {
	m.insert(base.MakeInternalKey(userKey, seqNum, base.InternalKeyKindDelete), nil)
}

func (m *MemTable) insert(key base.InternalKey, value []byte) {
	m.skl.insert(key, value)
	atomic.AddInt64(&m.size, int64(key.Size()+len(value)+entryPerKey))
}

// Get returns the payload visible for userKey at snapshotSeq: the first
// entry (in internal-key order, i.e. newest-first) whose sequence number is
// <= snapshotSeq. found is false if userKey has no entry with a sequence
// number <= snapshotSeq.
// When found is true and tombstone is true, the key is deleted as of
// snapshotSeq (absent to the caller); otherwise value holds the live bytes.
func (m *MemTable) Get(userKey []byte, snapshotSeq uint64) (value []byte, tombstone bool, found bool) {
	search := base.MakeSearchKeyAt(userKey, snapshotSeq)
	n := m.skl.seekGE(search)
	if n == nil || m.cmp(n.key.UserKey, userKey) != 0 {
		return nil, false, false
	}
	if n.key.Kind() == base.InternalKeyKindDelete {
		return nil, true, true
	}
	return n.value, false, true
}

// ApproximateSize returns the tracked byte size (keys + values + per-entry
// overhead).
func (m *MemTable) ApproximateSize() int64 {
	return atomic.LoadInt64(&m.size)
}

// Entry is one (internal key, payload) pair yielded by Iterate, in ascending
// internal-key order.
type Entry struct {
	Key   base.InternalKey
	Value []byte
}

// Iterate calls f for every entry in ascending internal-key order: for a
// given user key, newest version first. (The engine's flush drains the
// MemTable through NewIterator instead.)
func (m *MemTable) Iterate(f func(Entry)) {
	m.skl.forEach(func(key base.InternalKey, value []byte) {
		f(Entry{Key: key, Value: value})
	})
}

// NewIterator returns a forward iterator over all entries, used by the
// engine's merging read-path iterator alongside SST iterators.
func (m *MemTable) NewIterator() *Iterator {
	return &Iterator{m: m}
}

// Iterator is a forward-only cursor over a MemTable snapshot (the skiplist
// is append-only, so an iterator observes every entry present at or after
// its creation but never one that was concurrently removed, since removal
// never happens).
type Iterator struct {
	m       *MemTable
	cur     *node
	started bool
}

// SeekGE positions the iterator at the first entry with key >= target,
// reporting whether one exists.
func (it *Iterator) SeekGE(target base.InternalKey) bool {
	it.cur = it.m.skl.seekGE(target)
	it.started = true
	return it.cur != nil
}

// First positions the iterator at the first entry, reporting whether one
// exists.
func (it *Iterator) First() bool {
	it.cur = it.m.skl.seekGE(base.InternalKey{})
	it.started = true
	return it.cur != nil
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.cur != nil }

// Key returns the current entry's internal key.
func (it *Iterator) Key() base.InternalKey { return it.cur.key }

// Value returns the current entry's payload.
func (it *Iterator) Value() []byte { return it.cur.value }

// Next advances to the next entry, reporting whether one exists.
func (it *Iterator) Next() bool {
	if it.cur == nil {
		return false
	}
	it.cur = it.cur.next[0]
	return it.cur != nil
}
