package record

import (
	"io"

	"github.com/strata-db/strata/internal/base"
)

// Writer appends framed records to an underlying io.Writer. It does not
// itself fsync; callers that need durability call Sync on the concrete file
// handle they constructed the Writer with (see wal.Log).
type Writer struct {
	w   io.Writer
	buf [HeaderSize]byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRecord appends data as one logical entry, fragmenting it across
// physical records as needed. It returns once the bytes have been handed to
// the underlying writer (which, for an *os.File, means the OS buffer).
func (w *Writer) WriteRecord(data []byte) error {
	return fragments(data, func(typ Type, chunk []byte) error {
		encodeHeader(w.buf[:], typ, chunk)
		if _, err := w.w.Write(w.buf[:]); err != nil {
			return base.WrapError(base.KindIO, err, "record: write header")
		}
		if len(chunk) > 0 {
			if _, err := w.w.Write(chunk); err != nil {
				return base.WrapError(base.KindIO, err, "record: write payload")
			}
		}
		return nil
	})
}
