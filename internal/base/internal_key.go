package base

import "encoding/binary"

// InternalKeyKind distinguishes a live value from a deletion marker.
type InternalKeyKind uint8

const (
	// InternalKeyKindDelete marks a key deleted at a sequence number. Carries
	// no payload.
	InternalKeyKindDelete InternalKeyKind = 0
	// InternalKeyKindSet is a live value.
	InternalKeyKindSet InternalKeyKind = 1
	// InternalKeyKindMax is larger than any kind that is ever written to
	// disk. It is used to build search keys: a search key at kind Max sorts
	// before every real entry with the same user key and sequence number, so
	// SeekGE on a search key lands exactly on the newest real entry visible
	// at that sequence.
	InternalKeyKindMax InternalKeyKind = 2
)

// SeqNumMax is the largest sequence number representable in the 56 bits of
// trailer reserved for it (the low 8 bits hold the kind).
const SeqNumMax = uint64(1)<<56 - 1

// InternalKey is the (user_key, sequence, kind) triple that orders entries
// within a MemTable and an SST. Ordering: user_key ascending, then sequence
// descending (newer first), then kind descending (Set before Delete at equal
// sequence).
type InternalKey struct {
	UserKey []byte
	Trailer uint64
}

// MakeInternalKey builds an internal key from its three logical components.
func MakeInternalKey(userKey []byte, seqNum uint64, kind InternalKeyKind) InternalKey {
	return InternalKey{
		UserKey: userKey,
		Trailer: seqNum<<8 | uint64(kind),
	}
}

// MakeSearchKey builds a synthetic internal key that sorts before every real
// entry for userKey, regardless of the sequence number or kind it was
// written with. Used to seek to the first (i.e. newest) version of a key.
func MakeSearchKey(userKey []byte) InternalKey {
	return MakeInternalKey(userKey, SeqNumMax, InternalKeyKindMax)
}

// MakeSearchKeyAt builds a synthetic internal key that sorts before every
// real entry for userKey visible at seqNum, and after every entry with a
// strictly newer sequence number. Seeking to this key and taking the first
// match implements "first entry with sequence <= seqNum wins".
func MakeSearchKeyAt(userKey []byte, seqNum uint64) InternalKey {
	return MakeInternalKey(userKey, seqNum, InternalKeyKindMax)
}

// SeqNum returns the sequence number component of the trailer.
func (k InternalKey) SeqNum() uint64 {
	return k.Trailer >> 8
}

// Kind returns the kind component of the trailer.
func (k InternalKey) Kind() InternalKeyKind {
	return InternalKeyKind(k.Trailer & 0xff)
}

// SetSeqNum overwrites the sequence number, preserving the kind. Used when an
// SST has a global sequence number override (not exercised by the baseline
// engine, but kept for symmetry with the on-disk encoding).
func (k *InternalKey) SetSeqNum(seqNum uint64) {
	k.Trailer = seqNum<<8 | uint64(k.Trailer&0xff)
}

// Size returns the encoded length: the user key plus an 8 byte trailer.
func (k InternalKey) Size() int {
	return len(k.UserKey) + 8
}

// Encode writes the internal key to buf, which must be at least Size() bytes.
func (k InternalKey) Encode(buf []byte) {
	n := copy(buf, k.UserKey)
	binary.LittleEndian.PutUint64(buf[n:], k.Trailer)
}

// Clone returns a copy of k whose UserKey does not alias the original
// backing array.
func (k InternalKey) Clone() InternalKey {
	if k.UserKey == nil {
		return k
	}
	u := make([]byte, len(k.UserKey))
	copy(u, k.UserKey)
	return InternalKey{UserKey: u, Trailer: k.Trailer}
}

// DecodeInternalKey parses an internal key previously written by Encode. The
// returned UserKey aliases buf.
func DecodeInternalKey(buf []byte) InternalKey {
	n := len(buf) - 8
	if n < 0 {
		// Malformed; return an empty key rather than panicking so that
		// callers performing checksum-verified reads never see a slice
		// panic from corrupt-but-checksum-valid data (should not occur in
		// practice, since Size()/Encode() are always used together).
		return InternalKey{}
	}
	return InternalKey{
		UserKey: buf[:n:n],
		Trailer: binary.LittleEndian.Uint64(buf[n:]),
	}
}

// InternalCompare orders two internal keys per the rules in the package
// comment: user_key ascending, sequence descending, kind descending.
func InternalCompare(cmp Compare, a, b InternalKey) int {
	if c := cmp(a.UserKey, b.UserKey); c != 0 {
		return c
	}
	switch {
	case a.Trailer > b.Trailer:
		return -1
	case a.Trailer < b.Trailer:
		return 1
	default:
		return 0
	}
}
