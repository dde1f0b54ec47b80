package sstable

import "encoding/binary"

// filterMetaName is the sole meta block name currently defined (spec.md
// §4.6: "meta-index... currently only the filter").
const filterMetaName = "filter"

// encodeMetaIndex serializes the (at most one) named meta block handle.
// The meta-index format is deliberately minimal -- a length-prefixed
// name/handle pair repeated numEntries times -- rather than reusing the
// full prefix-compressed block codec, since spec.md reserves this block for
// a handful of named entries, not a sorted key space worth restart-point
// compression.
func encodeMetaIndex(entries map[string]BlockHandle) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))
	for name, h := range entries {
		var nameLen [4]byte
		binary.LittleEndian.PutUint32(nameLen[:], uint32(len(name)))
		buf = append(buf, nameLen[:]...)
		buf = append(buf, name...)
		var hbuf [blockHandleLen]byte
		h.encode(hbuf[:])
		buf = append(buf, hbuf[:]...)
	}
	return buf
}

func decodeMetaIndex(buf []byte) (map[string]BlockHandle, error) {
	if len(buf) < 4 {
		return nil, errCorruptf("truncated meta-index block")
	}
	n := int(binary.LittleEndian.Uint32(buf[0:4]))
	buf = buf[4:]
	entries := make(map[string]BlockHandle, n)
	for k := 0; k < n; k++ {
		if len(buf) < 4 {
			return nil, errCorruptf("truncated meta-index entry %d", k)
		}
		nameLen := int(binary.LittleEndian.Uint32(buf[0:4]))
		buf = buf[4:]
		if len(buf) < nameLen+blockHandleLen {
			return nil, errCorruptf("truncated meta-index entry %d", k)
		}
		name := string(buf[:nameLen])
		buf = buf[nameLen:]
		h, err := decodeBlockHandle(buf[:blockHandleLen])
		if err != nil {
			return nil, err
		}
		buf = buf[blockHandleLen:]
		entries[name] = h
	}
	return entries, nil
}
