package compaction

import (
	"container/heap"

	"github.com/strata-db/strata/internal/base"
)

// MergeIterator merges several base.Iterator sources in ascending
// internal-key order via a min-heap, per spec.md §4.9. Sources must be
// supplied newest-first: when two sources tie on internal key (which
// ordinarily cannot happen, since sequence numbers are globally unique, but
// is handled defensively), the lower-index source wins.
type MergeIterator struct {
	h mergeHeap
}

type heapItem struct {
	idx int
}

type mergeHeap struct {
	cmp     base.Compare
	sources []base.Iterator
	items   []heapItem
}

func (h *mergeHeap) Len() int { return len(h.items) }

func (h *mergeHeap) Less(i, j int) bool {
	a := h.sources[h.items[i].idx].Key()
	b := h.sources[h.items[j].idx].Key()
	if c := base.InternalCompare(h.cmp, a, b); c != 0 {
		return c < 0
	}
	return h.items[i].idx < h.items[j].idx
}

func (h *mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap) Push(x interface{}) { h.items = append(h.items, x.(heapItem)) }

func (h *mergeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// NewMergeIterator builds a MergeIterator over sources, newest-first.
func NewMergeIterator(cmp base.Compare, sources []base.Iterator) *MergeIterator {
	return &MergeIterator{h: mergeHeap{cmp: cmp, sources: sources}}
}

// First seeds the heap from every source's first entry and positions the
// iterator at the overall smallest.
func (m *MergeIterator) First() bool {
	m.h.items = m.h.items[:0]
	for i, s := range m.h.sources {
		if s.First() {
			m.h.items = append(m.h.items, heapItem{idx: i})
		}
	}
	heap.Init(&m.h)
	return m.h.Len() > 0
}

// SeekGE positions the iterator at the overall smallest entry >= target
// across every source.
func (m *MergeIterator) SeekGE(target base.InternalKey) bool {
	m.h.items = m.h.items[:0]
	for i, s := range m.h.sources {
		if s.SeekGE(target) {
			m.h.items = append(m.h.items, heapItem{idx: i})
		}
	}
	heap.Init(&m.h)
	return m.h.Len() > 0
}

// Next advances the source that produced the current top entry, restoring
// heap order, or removes it from the heap once it is exhausted.
func (m *MergeIterator) Next() bool {
	if m.h.Len() == 0 {
		return false
	}
	top := m.h.items[0]
	if m.h.sources[top.idx].Next() {
		heap.Fix(&m.h, 0)
	} else {
		heap.Pop(&m.h)
	}
	return m.h.Len() > 0
}

// Valid reports whether the iterator is positioned at an entry.
func (m *MergeIterator) Valid() bool { return m.h.Len() > 0 }

// Key returns the current entry's internal key.
func (m *MergeIterator) Key() base.InternalKey {
	return m.h.sources[m.h.items[0].idx].Key()
}

// Value returns the current entry's payload.
func (m *MergeIterator) Value() []byte {
	return m.h.sources[m.h.items[0].idx].Value()
}
