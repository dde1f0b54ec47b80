package sstable

import (
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/strata-db/strata/internal/base"
)

// blockTrailerLen is the 5-byte [compression-type, checksum] suffix that
// follows every on-disk block (spec.md §4.4). It is not included in a
// BlockHandle's Length.
const blockTrailerLen = 1 + 4

func blockChecksum(data []byte) uint32 {
	return uint32(xxhash.Sum64(data))
}

// writeBlockTo compresses raw per c, appends it (plus its 5-byte trailer) to
// w, and returns the handle at which it was written.
func writeBlockTo(w io.Writer, offset uint64, raw []byte, c Compression) (BlockHandle, error) {
	typ, payload := compressBlock(c, raw)
	if _, err := w.Write(payload); err != nil {
		return BlockHandle{}, base.WrapError(base.KindIO, err, "sstable: write block")
	}
	var trailer [blockTrailerLen]byte
	trailer[0] = byte(typ)
	binary.LittleEndian.PutUint32(trailer[1:], blockChecksum(payload))
	if _, err := w.Write(trailer[:]); err != nil {
		return BlockHandle{}, base.WrapError(base.KindIO, err, "sstable: write block trailer")
	}
	return BlockHandle{Offset: offset, Length: uint64(len(payload))}, nil
}

// readBlockAt reads, checksum-verifies, and decompresses the block at
// handle from r.
func readBlockAt(r io.ReaderAt, handle BlockHandle) ([]byte, error) {
	buf := make([]byte, handle.Length+blockTrailerLen)
	if _, err := r.ReadAt(buf, int64(handle.Offset)); err != nil {
		return nil, base.WrapError(base.KindIO, err, "sstable: read block at offset %d", handle.Offset)
	}
	payload := buf[:handle.Length]
	typ := Compression(buf[handle.Length])
	wantChecksum := binary.LittleEndian.Uint32(buf[handle.Length+1:])
	if got := blockChecksum(payload); got != wantChecksum {
		return nil, base.ErrChecksumMismatch(wantChecksum, got)
	}
	return decompressBlock(typ, payload)
}
