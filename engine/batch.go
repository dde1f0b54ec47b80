package engine

import (
	"encoding/binary"

	"github.com/strata-db/strata/internal/base"
)

// batchFormatVersion is written first so a future format change can be
// detected during WAL replay instead of silently misparsing old segments.
const batchFormatVersion = 1

// batchOp is one write within a Batch.
type batchOp struct {
	kind  base.InternalKeyKind
	key   []byte
	value []byte
}

// Batch is an ordered group of Put/Delete operations applied atomically, per
// spec.md §4.10's write(batch): all ops receive consecutive sequence numbers
// and are assigned the same WAL entry.
type Batch struct {
	ops []batchOp
}

// NewBatch returns an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put stages a live value for key.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{kind: base.InternalKeyKindSet, key: key, value: value})
}

// Delete stages a tombstone for key.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{kind: base.InternalKeyKindDelete, key: key})
}

// Count returns the number of staged operations.
func (b *Batch) Count() int {
	return len(b.ops)
}

// encode serializes the batch as: version, op count, then per op (kind byte,
// varint key length, key, and for Set only varint value length + value) --
// spec.md §4.2's "type byte + count + per-op (kind, key, optional value)".
func (b *Batch) encode() []byte {
	size := 1 + binary.MaxVarintLen64
	for _, op := range b.ops {
		size += 1 + binary.MaxVarintLen64 + len(op.key)
		if op.kind == base.InternalKeyKindSet {
			size += binary.MaxVarintLen64 + len(op.value)
		}
	}
	buf := make([]byte, 0, size)
	var scratch [binary.MaxVarintLen64]byte

	putUvarint := func(u uint64) {
		n := binary.PutUvarint(scratch[:], u)
		buf = append(buf, scratch[:n]...)
	}

	buf = append(buf, batchFormatVersion)
	putUvarint(uint64(len(b.ops)))
	for _, op := range b.ops {
		buf = append(buf, byte(op.kind))
		putUvarint(uint64(len(op.key)))
		buf = append(buf, op.key...)
		if op.kind == base.InternalKeyKindSet {
			putUvarint(uint64(len(op.value)))
			buf = append(buf, op.value...)
		}
	}
	return buf
}

// decodeBatch parses a batch previously produced by encode.
func decodeBatch(data []byte) (*Batch, error) {
	if len(data) < 1 {
		return nil, base.NewError(base.KindCorruption, "engine: empty batch record")
	}
	if data[0] != batchFormatVersion {
		return nil, base.NewError(base.KindCorruption, "engine: unknown batch format version %d", data[0])
	}
	buf := data[1:]

	count, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, base.NewError(base.KindCorruption, "engine: truncated batch count")
	}
	buf = buf[n:]

	b := &Batch{ops: make([]batchOp, 0, count)}
	for i := uint64(0); i < count; i++ {
		if len(buf) < 1 {
			return nil, base.NewError(base.KindCorruption, "engine: truncated batch op kind")
		}
		kind := base.InternalKeyKind(buf[0])
		buf = buf[1:]

		keyLen, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil, base.NewError(base.KindCorruption, "engine: truncated batch key length")
		}
		buf = buf[n:]
		if uint64(len(buf)) < keyLen {
			return nil, base.NewError(base.KindCorruption, "engine: truncated batch key")
		}
		key := append([]byte(nil), buf[:keyLen]...)
		buf = buf[keyLen:]

		op := batchOp{kind: kind, key: key}
		if kind == base.InternalKeyKindSet {
			valLen, n := binary.Uvarint(buf)
			if n <= 0 {
				return nil, base.NewError(base.KindCorruption, "engine: truncated batch value length")
			}
			buf = buf[n:]
			if uint64(len(buf)) < valLen {
				return nil, base.NewError(base.KindCorruption, "engine: truncated batch value")
			}
			op.value = append([]byte(nil), buf[:valLen]...)
			buf = buf[valLen:]
		}
		b.ops = append(b.ops, op)
	}
	return b, nil
}
