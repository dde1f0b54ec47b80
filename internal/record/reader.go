package record

import (
	"encoding/binary"
	"io"
)

// Reader reconstructs logical entries from a stream of framed physical
// records. Next returns io.EOF exactly at a clean end of stream (a read of
// zero bytes where a new record would start); any other malformed input -- a
// bad checksum, an out-of-range type, a truncated payload, or an
// out-of-sequence fragment (e.g. Middle without a preceding First) -- is
// reported as a corruption error carrying the byte offset where the bad
// record began, per spec.md §4.1's decode contract.
type Reader struct {
	r          io.Reader
	offset     int64
	frag       []byte
	inFragment bool
	header     [HeaderSize]byte
}

// NewReader wraps r, which must start at the beginning of a record stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Offset returns the reader's current position in the stream.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next returns the next logical entry, or io.EOF, or a corruption error. A
// returned slice is a private copy; the caller may retain it.
func (r *Reader) Next() ([]byte, error) {
	for {
		startOffset := r.offset
		n, err := io.ReadFull(r.r, r.header[:])
		r.offset += int64(n)
		if err == io.EOF && n == 0 {
			if r.inFragment {
				return nil, NewCorruptionError(startOffset, "unexpected EOF mid-fragment")
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, NewCorruptionError(startOffset, "truncated record header")
		}

		wantCRC := binary.LittleEndian.Uint32(r.header[0:4])
		length := int(r.header[4]) | int(r.header[5])<<8
		typ := Type(r.header[6])
		if typ == typeInvalid || typ > Last {
			return nil, NewCorruptionError(startOffset, "invalid record type %d", typ)
		}

		payload := make([]byte, length)
		n2, err := io.ReadFull(r.r, payload)
		r.offset += int64(n2)
		if err != nil {
			return nil, NewCorruptionError(startOffset, "truncated record payload")
		}
		if gotCRC := checksum(typ, payload); gotCRC != wantCRC {
			return nil, NewCorruptionError(startOffset, "checksum mismatch: want %08x got %08x", wantCRC, gotCRC)
		}

		switch typ {
		case Full:
			if r.inFragment {
				return nil, NewCorruptionError(startOffset, "Full record follows an unterminated fragment")
			}
			return payload, nil

		case First:
			if r.inFragment {
				return nil, NewCorruptionError(startOffset, "First record follows an unterminated fragment")
			}
			r.frag = append(r.frag[:0], payload...)
			r.inFragment = true

		case Middle:
			if !r.inFragment {
				return nil, NewCorruptionError(startOffset, "Middle record without a preceding First")
			}
			r.frag = append(r.frag, payload...)

		case Last:
			if !r.inFragment {
				return nil, NewCorruptionError(startOffset, "Last record without a preceding First")
			}
			r.frag = append(r.frag, payload...)
			out := make([]byte, len(r.frag))
			copy(out, r.frag)
			r.frag = r.frag[:0]
			r.inFragment = false
			return out, nil
		}
	}
}
