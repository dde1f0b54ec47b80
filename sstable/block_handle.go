package sstable

import "encoding/binary"

// blockHandleLen is the fixed on-disk size of an encoded BlockHandle: two
// little-endian u64 fields. spec.md §4.4/§4.6 fix this width so that the
// footer (which embeds two handles plus padding) can have a constant total
// size.
const blockHandleLen = 16

// BlockHandle is the (offset, length) of a block within an SST file. Length
// covers only the data bytes, never the 5-byte [compression-type,
// checksum] trailer that follows every on-disk block (spec.md §4.4's
// documented convention, applied uniformly here on both write and read per
// the Open Question in spec.md §9).
type BlockHandle struct {
	Offset uint64
	Length uint64
}

func (h BlockHandle) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], h.Offset)
	binary.LittleEndian.PutUint64(buf[8:16], h.Length)
}

func decodeBlockHandle(buf []byte) (BlockHandle, error) {
	if len(buf) < blockHandleLen {
		return BlockHandle{}, errCorruptf("truncated block handle (%d bytes)", len(buf))
	}
	return BlockHandle{
		Offset: binary.LittleEndian.Uint64(buf[0:8]),
		Length: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}
