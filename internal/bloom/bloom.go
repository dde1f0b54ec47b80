// Package bloom implements the per-table probabilistic filter described in
// spec.md §4.5: a double-hashing bloom filter sized from the expected key
// count and a target false-positive rate, using two independently-seeded
// 64-bit xxhash digests in place of two separate hash families.
package bloom

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/strata-db/strata/internal/base"
)

const (
	minHashes = 1
	maxHashes = 30
)

// Filter is an immutable, decoded bloom filter ready for MayContain queries.
type Filter struct {
	numHashes uint32
	numBits   uint64
	bits      []byte
}

// Builder accumulates keys before Finish produces an encoded Filter.
type Builder struct {
	keys [][]byte
	fpRate float64
}

// NewBuilder creates a Builder targeting fpRate, the desired false positive
// probability (0, 1).
func NewBuilder(fpRate float64) *Builder {
	return &Builder{fpRate: fpRate}
}

// Add records a user key to be included in the filter.
func (b *Builder) Add(userKey []byte) {
	k := make([]byte, len(userKey))
	copy(k, userKey)
	b.keys = append(b.keys, k)
}

// numBitsAndHashes derives (m bits, k hash functions) from the standard
// optimum formulas: m = -n*ln(p)/(ln2)^2, k = (m/n)*ln2, with k clamped to
// [1, 30] per spec.md §4.5.
func numBitsAndHashes(n int, fpRate float64) (m uint64, k uint32) {
	if n == 0 {
		n = 1
	}
	ln2 := math.Ln2
	bitsPerKey := -math.Log(fpRate) / (ln2 * ln2)
	m = uint64(math.Ceil(bitsPerKey * float64(n)))
	if m < 8 {
		m = 8
	}
	kf := math.Round(bitsPerKey * ln2)
	k = uint32(kf)
	if k < minHashes {
		k = minHashes
	}
	if k > maxHashes {
		k = maxHashes
	}
	return m, k
}

func hashPair(key []byte) (h1, h2 uint32) {
	d1 := xxhash.Sum64(key)
	// A distinct seed for the second hash: feed back the first digest's
	// bytes prefixed by a fixed salt, rather than reusing d1 verbatim, so
	// h1 and h2 are independent even for short keys.
	var salted [9]byte
	salted[0] = 0x5b
	binary.LittleEndian.PutUint64(salted[1:], d1)
	d2 := xxhash.Sum64(salted[:])
	return uint32(d1), uint32(d2)
}

// Finish builds the encoded filter for the accumulated keys.
func (b *Builder) Finish() *Filter {
	m, k := numBitsAndHashes(len(b.keys), b.fpRate)
	f := &Filter{numHashes: k, numBits: m, bits: make([]byte, (m+7)/8)}
	for _, key := range b.keys {
		f.add(key)
	}
	return f
}

func (f *Filter) add(key []byte) {
	h1, h2 := hashPair(key)
	for i := uint32(0); i < f.numHashes; i++ {
		bit := (uint64(h1) + uint64(i)*uint64(h2)) % f.numBits
		f.bits[bit/8] |= 1 << (bit % 8)
	}
}

// MayContain returns false only when key is definitely absent; a true
// result may be a false positive.
func (f *Filter) MayContain(key []byte) bool {
	if f == nil || f.numBits == 0 {
		return true
	}
	h1, h2 := hashPair(key)
	for i := uint32(0); i < f.numHashes; i++ {
		bit := (uint64(h1) + uint64(i)*uint64(h2)) % f.numBits
		if f.bits[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// EstimatedFPRate recomputes the theoretical false-positive rate from the
// filter's actual (m, k) and the number of keys inserted, following
// original_source's src/filter/bloom.rs `estimated_fpp`, for diagnostics.
func (f *Filter) EstimatedFPRate(numKeys int) float64 {
	if numKeys == 0 || f.numBits == 0 {
		return 0
	}
	k := float64(f.numHashes)
	m := float64(f.numBits)
	n := float64(numKeys)
	return math.Pow(1-math.Exp(-k*n/m), k)
}

// Encode serializes the filter per spec.md §4.5:
// [num_hashes:u32 LE][num_bits:u64 LE][bits: ceil(num_bits/8) bytes].
func (f *Filter) Encode() []byte {
	buf := make([]byte, 4+8+len(f.bits))
	binary.LittleEndian.PutUint32(buf[0:4], f.numHashes)
	binary.LittleEndian.PutUint64(buf[4:12], f.numBits)
	copy(buf[12:], f.bits)
	return buf
}

// Decode parses a filter previously written by Encode.
func Decode(buf []byte) (*Filter, error) {
	if len(buf) < 12 {
		return nil, base.NewError(base.KindCorruption, "bloom: truncated filter block (%d bytes)", len(buf))
	}
	numHashes := binary.LittleEndian.Uint32(buf[0:4])
	numBits := binary.LittleEndian.Uint64(buf[4:12])
	want := int((numBits + 7) / 8)
	bits := buf[12:]
	if len(bits) < want {
		return nil, base.NewError(base.KindCorruption, "bloom: truncated bitset (want %d, got %d)", want, len(bits))
	}
	return &Filter{numHashes: numHashes, numBits: numBits, bits: bits[:want]}, nil
}
