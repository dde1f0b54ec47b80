package memtable

import (
	"math/rand"
	"sync"

	"github.com/strata-db/strata/internal/base"
)

const (
	maxHeight   = 12
	pIncrease   = 4 // branching factor: p = 1/pIncrease per level
	entryPerKey = 32 // fixed per-entry bookkeeping overhead counted toward approximate size
)

type node struct {
	key   base.InternalKey
	value []byte
	next  []*node
}

// skiplist is a classic multi-level linked list ordered by
// base.InternalCompare. Mutation (Insert) takes the write lock; lookups
// (Seek/Iterate) take the read lock. Since the engine already serializes
// writers through a single WAL/MemTable-install lock (spec.md §5), the
// coarse RWMutex here never becomes a bottleneck in practice while still
// satisfying "concurrent readers and writers" and "reads at an older
// snapshot are not blocked by newer writes": readers never block other
// readers, and a writer only blocks for the instant it splices in a node.
type skiplist struct {
	cmp    base.Compare
	mu     sync.RWMutex
	rnd    *rand.Rand
	head   *node
	height int
}

func newSkiplist(cmp base.Compare) *skiplist {
	return &skiplist{
		cmp:    cmp,
		rnd:    rand.New(rand.NewSource(0xC0FFEE)),
		head:   &node{next: make([]*node, maxHeight)},
		height: 1,
	}
}

func (s *skiplist) randomHeight() int {
	h := 1
	for h < maxHeight && s.rnd.Intn(pIncrease) == 0 {
		h++
	}
	return h
}

func (s *skiplist) less(a, b base.InternalKey) bool {
	return base.InternalCompare(s.cmp, a, b) < 0
}

// findGreaterOrEqual returns, for every level, the rightmost node whose key
// is strictly less than key (prev[level]), so that prev[0].next[0] is the
// first node with key >= the search key.
func (s *skiplist) findGreaterOrEqual(key base.InternalKey, prev []*node) *node {
	x := s.head
	level := s.height - 1
	for {
		next := x.next[level]
		if next != nil && s.less(next.key, key) {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

// insert adds key->value. Entries are never mutated after insertion, so
// duplicate internal keys (same user key, sequence, and kind) cannot occur
// in correct engine usage -- sequence numbers are unique per operation.
func (s *skiplist) insert(key base.InternalKey, value []byte) {
	var prev [maxHeight]*node

	s.mu.Lock()
	defer s.mu.Unlock()

	s.findGreaterOrEqual(key, prev[:])

	h := s.randomHeight()
	if h > s.height {
		for i := s.height; i < h; i++ {
			prev[i] = s.head
		}
		s.height = h
	}

	n := &node{key: key, value: value, next: make([]*node, h)}
	for i := 0; i < h; i++ {
		n.next[i] = prev[i].next[i]
		prev[i].next[i] = n
	}
}

// seekGE returns the first node whose key is >= target, or nil.
func (s *skiplist) seekGE(target base.InternalKey) *node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findGreaterOrEqual(target, nil)
}

// forEach calls f on every entry in ascending key order.
func (s *skiplist) forEach(f func(key base.InternalKey, value []byte)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for n := s.head.next[0]; n != nil; n = n.next[0] {
		f(n.key, n.value)
	}
}
