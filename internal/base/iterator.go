package base

// Iterator is the uniform forward-cursor contract shared by the MemTable
// and SST iterators (spec.md §9's "Polymorphism" note), letting the merge
// iterator and the engine's read path treat every source the same way.
type Iterator interface {
	First() bool
	SeekGE(target InternalKey) bool
	Next() bool
	Valid() bool
	Key() InternalKey
	Value() []byte
}
