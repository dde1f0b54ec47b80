package engine

import (
	"github.com/strata-db/strata/compaction"
	"github.com/strata-db/strata/internal/base"
)

// Cursor is an ordered, read-only walk over live (non-tombstone) entries,
// deduplicated to the newest version visible at the cursor's bound sequence
// number, per spec.md §4.10's iter()/scan(start, end).
type Cursor struct {
	merged *compaction.MergeIterator
	cmp    base.Compare
	seq    uint64
	end    []byte

	lastUserKey []byte
	haveLast    bool

	key   []byte
	value []byte
	valid bool
}

// Iter returns a Cursor over the whole key space as of the engine's current
// sequence number.
func (e *Engine) Iter() (*Cursor, error) {
	return e.Scan(nil, nil)
}

// Scan returns a Cursor restricted to [start, end): start == nil means from
// the beginning, end == nil means unbounded.
func (e *Engine) Scan(start, end []byte) (*Cursor, error) {
	return e.scanAtSequence(start, end, e.visibleSeq.Load())
}

// scanAtSequence is Scan bound to an explicit sequence number, used by
// Snapshot-scoped scans.
func (e *Engine) scanAtSequence(start, end []byte, seq uint64) (*Cursor, error) {
	e.mu.Lock()
	mem := e.mutable
	e.mu.Unlock()

	version := e.versions.Current()
	cmp := e.opts.Comparer.Compare

	sources := []base.Iterator{mem.NewIterator()}
	if len(version.Levels) > 0 {
		for _, f := range version.Levels[0] {
			it, err := e.tableIterator(f.FileNum)
			if err != nil {
				return nil, err
			}
			sources = append(sources, it)
		}
	}
	for level := 1; level < version.NumLevels(); level++ {
		for _, f := range version.Levels[level] {
			it, err := e.tableIterator(f.FileNum)
			if err != nil {
				return nil, err
			}
			sources = append(sources, it)
		}
	}

	merged := compaction.NewMergeIterator(cmp, sources)
	c := &Cursor{merged: merged, cmp: cmp, seq: seq, end: end}

	var ok bool
	if start != nil {
		ok = merged.SeekGE(base.MakeSearchKeyAt(start, base.SeqNumMax))
	} else {
		ok = merged.First()
	}
	if !ok {
		c.valid = false
		return c, nil
	}
	c.valid = c.advance()
	return c, nil
}

func (e *Engine) tableIterator(fileNum uint64) (base.Iterator, error) {
	r, err := e.tables.get(fileNum)
	if err != nil {
		return nil, err
	}
	return r.NewIterator()
}

// advance scans forward from the merge iterator's current position to the
// next live, newest-version, in-bound entry. Assumes c.merged is already
// positioned (by a prior First/SeekGE/Next call).
func (c *Cursor) advance() bool {
	for c.merged.Valid() {
		key := c.merged.Key()

		if key.SeqNum() > c.seq {
			c.merged.Next()
			continue
		}
		if c.haveLast && c.cmp(key.UserKey, c.lastUserKey) == 0 {
			c.merged.Next()
			continue
		}
		c.lastUserKey = append(c.lastUserKey[:0], key.UserKey...)
		c.haveLast = true

		if c.end != nil && c.cmp(key.UserKey, c.end) >= 0 {
			return false
		}
		if key.Kind() == base.InternalKeyKindDelete {
			c.merged.Next()
			continue
		}

		c.key = append(c.key[:0], key.UserKey...)
		c.value = c.merged.Value()
		c.merged.Next()
		return true
	}
	return false
}

// Valid reports whether the cursor is positioned at an entry.
func (c *Cursor) Valid() bool { return c.valid }

// Key returns the current entry's user key.
func (c *Cursor) Key() []byte { return c.key }

// Value returns the current entry's value.
func (c *Cursor) Value() []byte { return c.value }

// Next advances to the next live entry, reporting whether one exists.
func (c *Cursor) Next() bool {
	if !c.valid {
		return false
	}
	c.valid = c.advance()
	return c.valid
}
