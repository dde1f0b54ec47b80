package sstable

import "encoding/binary"

// footerLen is the fixed 48-byte footer size from spec.md §4.4:
// meta_index_handle(16) + index_handle(16) + padding(8) + magic(8).
const footerLen = 48

// magicNumber identifies the strata SST format, chosen once; readers reject
// any other value as corruption (spec.md §6).
const magicNumber uint64 = 0x5354524154411731

type footer struct {
	metaIndexHandle BlockHandle
	indexHandle     BlockHandle
}

func (f footer) encode() []byte {
	buf := make([]byte, footerLen)
	f.metaIndexHandle.encode(buf[0:16])
	f.indexHandle.encode(buf[16:32])
	// buf[32:40] is zero padding.
	binary.LittleEndian.PutUint64(buf[40:48], magicNumber)
	return buf
}

func decodeFooter(buf []byte) (footer, error) {
	if len(buf) != footerLen {
		return footer{}, errCorruptf("footer is %d bytes, want %d", len(buf), footerLen)
	}
	if magic := binary.LittleEndian.Uint64(buf[40:48]); magic != magicNumber {
		return footer{}, errCorruptf("bad magic number 0x%x", magic)
	}
	metaIndexHandle, err := decodeBlockHandle(buf[0:16])
	if err != nil {
		return footer{}, err
	}
	indexHandle, err := decodeBlockHandle(buf[16:32])
	if err != nil {
		return footer{}, err
	}
	return footer{metaIndexHandle: metaIndexHandle, indexHandle: indexHandle}, nil
}
