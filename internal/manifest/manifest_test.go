package manifest

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/base"
	"github.com/strata-db/strata/internal/logger"
)

func ik(userKey string, seq uint64) base.InternalKey {
	return base.MakeInternalKey([]byte(userKey), seq, base.InternalKeyKindSet)
}

func TestVersionEditEncodeDecodeRoundTrip(t *testing.T) {
	ve := &VersionEdit{
		ComparerName:   "strata.BytewiseComparator",
		NextFileNumber: 7,
		LastSequence:   42,
		DeletedFiles: []DeletedFileEntry{
			{Level: 0, FileNum: 3},
		},
		NewFiles: []NewFileEntry{
			{Level: 1, Meta: &FileMetadata{
				FileNum:  5,
				Size:     1024,
				Smallest: ik("a", 1),
				Largest:  ik("z", 2),
			}},
		},
	}

	decoded, err := DecodeVersionEdit(ve.Encode())
	require.NoError(t, err)
	if diff := pretty.Diff(ve, decoded); len(diff) > 0 {
		t.Logf("version edit diff (informational, fields not covered by the assertions below):\n%s", diff)
	}
	require.Equal(t, ve.ComparerName, decoded.ComparerName)
	require.Equal(t, ve.NextFileNumber, decoded.NextFileNumber)
	require.Equal(t, ve.LastSequence, decoded.LastSequence)
	require.Equal(t, ve.DeletedFiles, decoded.DeletedFiles)
	require.Len(t, decoded.NewFiles, 1)
	require.Equal(t, ve.NewFiles[0].Level, decoded.NewFiles[0].Level)
	require.Equal(t, ve.NewFiles[0].Meta.FileNum, decoded.NewFiles[0].Meta.FileNum)
	require.Equal(t, ve.NewFiles[0].Meta.Size, decoded.NewFiles[0].Meta.Size)
	require.Equal(t, string(ve.NewFiles[0].Meta.Smallest.UserKey), string(decoded.NewFiles[0].Meta.Smallest.UserKey))
	require.Equal(t, ve.NewFiles[0].Meta.Largest.Trailer, decoded.NewFiles[0].Meta.Largest.Trailer)
}

func TestCreateAndRecoverRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cmp := base.DefaultComparer

	vs, err := Create(dir, cmp, 7)
	require.NoError(t, err)

	ve := &VersionEdit{
		NewFiles: []NewFileEntry{
			{Level: 0, Meta: &FileMetadata{
				FileNum:  2,
				Size:     512,
				Smallest: ik("a", 10),
				Largest:  ik("m", 11),
			}},
		},
	}
	require.NoError(t, vs.LogAndApply(ve, 11))
	require.NoError(t, vs.Close())

	vs2, err := Recover(dir, cmp, 7)
	require.NoError(t, err)
	defer vs2.Close()

	require.Equal(t, uint64(11), vs2.LastSequence())
	require.Len(t, vs2.Current().Levels[0], 1)
	require.Equal(t, uint64(2), vs2.Current().Levels[0][0].FileNum)
	require.Equal(t, uint64(3), vs2.NextFileNum())
}

func TestLogAndApplyDeletesAndAdds(t *testing.T) {
	dir := t.TempDir()
	cmp := base.DefaultComparer
	vs, err := Create(dir, cmp, 7)
	require.NoError(t, err)
	defer vs.Close()

	require.NoError(t, vs.LogAndApply(&VersionEdit{
		NewFiles: []NewFileEntry{
			{Level: 0, Meta: &FileMetadata{FileNum: 2, Size: 10, Smallest: ik("a", 1), Largest: ik("b", 1)}},
			{Level: 0, Meta: &FileMetadata{FileNum: 3, Size: 10, Smallest: ik("c", 2), Largest: ik("d", 2)}},
		},
	}, 2))
	require.Len(t, vs.Current().Levels[0], 2)
	// Newest file number sorts first at L0.
	require.Equal(t, uint64(3), vs.Current().Levels[0][0].FileNum)

	require.NoError(t, vs.LogAndApply(&VersionEdit{
		DeletedFiles: []DeletedFileEntry{{Level: 0, FileNum: 2}},
		NewFiles: []NewFileEntry{
			{Level: 1, Meta: &FileMetadata{FileNum: 4, Size: 20, Smallest: ik("a", 1), Largest: ik("d", 2)}},
		},
	}, 2))
	require.Len(t, vs.Current().Levels[0], 1)
	require.Equal(t, uint64(3), vs.Current().Levels[0][0].FileNum)
	require.Len(t, vs.Current().Levels[1], 1)
}

func TestExcludeMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cmp := base.DefaultComparer
	vs, err := Create(dir, cmp, 7)
	require.NoError(t, err)
	defer vs.Close()

	require.NoError(t, vs.LogAndApply(&VersionEdit{
		NewFiles: []NewFileEntry{
			{Level: 0, Meta: &FileMetadata{FileNum: 2, Size: 10, Smallest: ik("a", 1), Largest: ik("b", 1)}},
			{Level: 0, Meta: &FileMetadata{FileNum: 3, Size: 10, Smallest: ik("c", 2), Largest: ik("d", 2)}},
		},
	}, 2))

	vs.ExcludeMissingFiles(func(fileNum uint64) bool {
		return fileNum != 2
	}, logger.NoOp)

	require.Len(t, vs.Current().Levels[0], 1)
	require.Equal(t, uint64(3), vs.Current().Levels[0][0].FileNum)
}

func TestFindLevelGE(t *testing.T) {
	cmp := base.DefaultCompare
	files := []*FileMetadata{
		{FileNum: 1, Smallest: ik("a", 1), Largest: ik("c", 1)},
		{FileNum: 2, Smallest: ik("d", 1), Largest: ik("f", 1)},
		{FileNum: 3, Smallest: ik("g", 1), Largest: ik("i", 1)},
	}
	f := FindLevelGE(cmp, files, []byte("e"))
	require.NotNil(t, f)
	require.Equal(t, uint64(2), f.FileNum)

	require.Nil(t, FindLevelGE(cmp, files, []byte("zz")))
}
