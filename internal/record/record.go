// Package record implements the framed, checksummed, append-only record
// format used by both the write-ahead log and the manifest (spec.md §4.1).
// Each record is:
//
//	[checksum:u32 LE][length:u16 LE][type:u8][payload:length]
//
// The checksum covers the type byte and the payload. A logical entry larger
// than MaxRecordSize is fragmented into a First record, zero or more Middle
// records, and a Last record; an entry that fits in one record is written as
// a single Full record.
package record

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/strata-db/strata/internal/base"
)

// Type is the fragment type of a single physical record.
type Type uint8

const (
	// typeInvalid is the zero value, used to detect reads of unwritten /
	// zero-padded space.
	typeInvalid Type = 0
	// Full holds an entire logical entry.
	Full Type = 1
	// First holds the first fragment of a logical entry that did not fit in
	// one record.
	First Type = 2
	// Middle holds an interior fragment.
	Middle Type = 3
	// Last holds the final fragment.
	Last Type = 4
)

// HeaderSize is the fixed 7-byte header preceding every record's payload.
const HeaderSize = 4 + 2 + 1

// MaxRecordSize bounds the payload of a single physical record, per spec.md
// §4.1.
const MaxRecordSize = 32 * 1024

func checksum(typ Type, payload []byte) uint32 {
	h := xxhash.New()
	h.Write([]byte{byte(typ)})
	h.Write(payload)
	return uint32(h.Sum64())
}

// encodeHeader writes the 7-byte header for a record of type typ and the
// given payload length into buf, which must have length >= HeaderSize.
func encodeHeader(buf []byte, typ Type, payload []byte) {
	crc := checksum(typ, payload)
	buf[0] = byte(crc)
	buf[1] = byte(crc >> 8)
	buf[2] = byte(crc >> 16)
	buf[3] = byte(crc >> 24)
	n := len(payload)
	buf[4] = byte(n)
	buf[5] = byte(n >> 8)
	buf[6] = byte(typ)
}

// fragments splits data into the sequence of (type, chunk) physical records
// needed to carry it as one logical entry.
func fragments(data []byte, emit func(typ Type, chunk []byte) error) error {
	if len(data) == 0 {
		return emit(Full, nil)
	}
	first := true
	for len(data) > 0 {
		n := len(data)
		if n > MaxRecordSize {
			n = MaxRecordSize
		}
		chunk := data[:n]
		data = data[n:]
		last := len(data) == 0
		var typ Type
		switch {
		case first && last:
			typ = Full
		case first:
			typ = First
		case last:
			typ = Last
		default:
			typ = Middle
		}
		first = false
		if err := emit(typ, chunk); err != nil {
			return err
		}
	}
	return nil
}

// corruptionError reports a decode failure, along with how far the reader
// made it before hitting it (original_source's wal/reader.rs surfaces this
// same "how far recovery got" diagnostic).
type corruptionError struct {
	msg    string
	offset int64
}

func (e *corruptionError) Error() string { return e.msg }

// NewCorruptionError wraps msg as a KindCorruption error tagged with the byte
// offset at which decoding failed.
func NewCorruptionError(offset int64, format string, args ...interface{}) error {
	inner := &corruptionError{msg: fmt.Sprintf(format, args...), offset: offset}
	return base.WrapError(base.KindCorruption, inner, "record: corrupt at offset %d", offset)
}

// CorruptionOffset extracts the offset recorded by NewCorruptionError, or -1
// if err was not produced by it.
func CorruptionOffset(err error) int64 {
	var ce *corruptionError
	if errors.As(err, &ce) {
		return ce.offset
	}
	return -1
}
