package sstable

import (
	"bytes"
	"io"

	lz4 "github.com/pierrec/lz4/v4"
	"github.com/golang/snappy"
	"github.com/strata-db/strata/internal/base"
)

// Compression selects the per-block compressor, per spec.md §6's Options
// table.
type Compression uint8

const (
	NoCompression Compression = iota
	SnappyCompression
	LZ4Compression
)

func compressBlock(c Compression, raw []byte) (Compression, []byte) {
	switch c {
	case SnappyCompression:
		return SnappyCompression, snappy.Encode(nil, raw)
	case LZ4Compression:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			// LZ4 compression of an in-memory buffer cannot fail; fall back
			// to storing uncompressed rather than losing data.
			return NoCompression, raw
		}
		if err := w.Close(); err != nil {
			return NoCompression, raw
		}
		return LZ4Compression, buf.Bytes()
	default:
		return NoCompression, raw
	}
}

func decompressBlock(c Compression, compressed []byte) ([]byte, error) {
	switch c {
	case NoCompression:
		return compressed, nil
	case SnappyCompression:
		raw, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, base.WrapError(base.KindCorruption, err, "sstable: snappy decompress")
		}
		return raw, nil
	case LZ4Compression:
		r := lz4.NewReader(bytes.NewReader(compressed))
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, base.WrapError(base.KindCorruption, err, "sstable: lz4 decompress")
		}
		return raw, nil
	default:
		return nil, errCorruptf("unknown compression type %d", c)
	}
}
