package manifest

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/strata-db/strata/internal/base"
)

// Tags for the version-edit on-disk format: a tagged union over the four
// edit kinds named in spec.md §4.8, with length-prefixed byte strings for
// keys (spec.md §6's "Manifest record format" requirement).
const (
	tagComparator     = 1
	tagNextFileNumber = 2
	tagLastSequence   = 3
	tagDeletedFile    = 4
	tagNewFile        = 5
)

// DeletedFileEntry names one file removed from a level.
type DeletedFileEntry struct {
	Level   int
	FileNum uint64
}

// NewFileEntry names one file added to a level.
type NewFileEntry struct {
	Level int
	Meta  *FileMetadata
}

// VersionEdit is a single durable transition of the current Version, plus
// any updated allocator/sequence bookkeeping (spec.md §4.8).
type VersionEdit struct {
	// ComparerName is set only on the first edit of a fresh manifest, and
	// checked against the comparer the engine is opened with.
	ComparerName string

	// NextFileNumber, if non-zero, durably records the allocator's
	// watermark as of this edit.
	NextFileNumber uint64

	// LastSequence, if non-zero, durably records the highest sequence
	// number assigned as of this edit.
	LastSequence uint64

	DeletedFiles []DeletedFileEntry
	NewFiles     []NewFileEntry
}

// Encode serializes the edit as a sequence of varint-tagged fields.
func (ve *VersionEdit) Encode() []byte {
	var buf bytes.Buffer
	var scratch [binary.MaxVarintLen64]byte

	writeUvarint := func(u uint64) {
		n := binary.PutUvarint(scratch[:], u)
		buf.Write(scratch[:n])
	}
	writeBytes := func(p []byte) {
		writeUvarint(uint64(len(p)))
		buf.Write(p)
	}
	writeKey := func(k base.InternalKey) {
		kbuf := make([]byte, k.Size())
		k.Encode(kbuf)
		writeBytes(kbuf)
	}

	if ve.ComparerName != "" {
		writeUvarint(tagComparator)
		writeBytes([]byte(ve.ComparerName))
	}
	if ve.NextFileNumber != 0 {
		writeUvarint(tagNextFileNumber)
		writeUvarint(ve.NextFileNumber)
	}
	if ve.LastSequence != 0 || ve.ComparerName != "" {
		writeUvarint(tagLastSequence)
		writeUvarint(ve.LastSequence)
	}
	for _, df := range ve.DeletedFiles {
		writeUvarint(tagDeletedFile)
		writeUvarint(uint64(df.Level))
		writeUvarint(df.FileNum)
	}
	for _, nf := range ve.NewFiles {
		writeUvarint(tagNewFile)
		writeUvarint(uint64(nf.Level))
		writeUvarint(nf.Meta.FileNum)
		writeUvarint(nf.Meta.Size)
		writeKey(nf.Meta.Smallest)
		writeKey(nf.Meta.Largest)
	}
	return buf.Bytes()
}

// DecodeVersionEdit parses an edit previously produced by Encode.
func DecodeVersionEdit(data []byte) (*VersionEdit, error) {
	r := bytes.NewReader(data)
	ve := &VersionEdit{}

	readUvarint := func() (uint64, error) {
		u, err := binary.ReadUvarint(r)
		if err != nil {
			if err == io.EOF {
				return 0, err
			}
			return 0, errCorruptf("truncated version edit: %v", err)
		}
		return u, nil
	}
	readBytes := func() ([]byte, error) {
		n, err := readUvarint()
		if err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, errCorruptf("truncated version edit field: %v", err)
		}
		return b, nil
	}
	readKey := func() (base.InternalKey, error) {
		b, err := readBytes()
		if err != nil {
			return base.InternalKey{}, err
		}
		return base.DecodeInternalKey(b), nil
	}

	for {
		tag, err := binary.ReadUvarint(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errCorruptf("truncated version edit tag: %v", err)
		}
		switch tag {
		case tagComparator:
			b, err := readBytes()
			if err != nil {
				return nil, err
			}
			ve.ComparerName = string(b)
		case tagNextFileNumber:
			u, err := readUvarint()
			if err != nil {
				return nil, err
			}
			ve.NextFileNumber = u
		case tagLastSequence:
			u, err := readUvarint()
			if err != nil {
				return nil, err
			}
			ve.LastSequence = u
		case tagDeletedFile:
			level, err := readUvarint()
			if err != nil {
				return nil, err
			}
			fileNum, err := readUvarint()
			if err != nil {
				return nil, err
			}
			ve.DeletedFiles = append(ve.DeletedFiles, DeletedFileEntry{Level: int(level), FileNum: fileNum})
		case tagNewFile:
			level, err := readUvarint()
			if err != nil {
				return nil, err
			}
			fileNum, err := readUvarint()
			if err != nil {
				return nil, err
			}
			size, err := readUvarint()
			if err != nil {
				return nil, err
			}
			smallest, err := readKey()
			if err != nil {
				return nil, err
			}
			largest, err := readKey()
			if err != nil {
				return nil, err
			}
			ve.NewFiles = append(ve.NewFiles, NewFileEntry{
				Level: int(level),
				Meta: &FileMetadata{
					FileNum:  fileNum,
					Size:     size,
					Smallest: smallest,
					Largest:  largest,
				},
			})
		default:
			return nil, errCorruptf("unknown version edit tag %d", tag)
		}
	}
	return ve, nil
}

// Apply returns a new Version reflecting ve's deletions and additions atop
// curr (which may be nil, treated as an empty version of numLevels levels).
func Apply(curr *Version, numLevels int, cmp base.Compare, ve *VersionEdit) (*Version, error) {
	var v *Version
	if curr != nil {
		v = curr.clone()
	} else {
		v = NewVersion(numLevels)
	}

	deletedByLevel := make(map[int]map[uint64]bool)
	for _, df := range ve.DeletedFiles {
		m := deletedByLevel[df.Level]
		if m == nil {
			m = make(map[uint64]bool)
			deletedByLevel[df.Level] = m
		}
		m[df.FileNum] = true
	}
	for level, deleted := range deletedByLevel {
		if level >= len(v.Levels) {
			return nil, errCorruptf("delete references out-of-range level %d", level)
		}
		kept := v.Levels[level][:0:0]
		for _, f := range v.Levels[level] {
			if !deleted[f.FileNum] {
				kept = append(kept, f)
			}
		}
		v.Levels[level] = kept
	}

	for _, nf := range ve.NewFiles {
		if nf.Level >= len(v.Levels) {
			return nil, errCorruptf("new file references out-of-range level %d", nf.Level)
		}
		v.Levels[nf.Level] = append(v.Levels[nf.Level], nf.Meta)
	}

	for level := range v.Levels {
		if level == 0 {
			sortLevelZero(v.Levels[0])
		} else {
			sortLevelBySmallest(cmp, v.Levels[level])
		}
	}
	return v, nil
}
