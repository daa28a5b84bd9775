package mp4

import (
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shishobooks/mp4tag/internal/mp4fixture"
)

func TestShiftChunkOffsetTable(t *testing.T) {
	// A table of two 32-bit offsets at position 100, shifted by a
	// structural +20 insertion at position 50 and a -5 removal at 200.
	raw := make([]byte, 8)
	binary.BigEndian.PutUint32(raw[0:4], 60)  // only the insertion precedes it
	binary.BigEndian.PutUint32(raw[4:8], 300) // both structural changes precede it

	buf := mp4fixture.NewBuffer(make([]byte, 200))
	_, err := buf.Seek(100, 0)
	require.NoError(t, err)
	_, err = buf.Write(raw)
	require.NoError(t, err)

	table := change{
		kind:             changeUpdateChunkOffsets,
		offsetTableWidth: offsetWidth32,
		offsetTablePos:   100,
		offsetCount:      2,
	}
	structural := []change{
		{kind: changeInsert, insertPos: 50, newAtom: make([]byte, 20)},
		{kind: changeRemove, bounds: AtomBounds{Pos: 200, Size: Size{Len: 5}}},
	}

	require.NoError(t, shiftChunkOffsetTable(buf, table, structural))

	_, err = buf.Seek(100, 0)
	require.NoError(t, err)
	got := make([]byte, 8)
	_, err = buf.Read(got)
	require.NoError(t, err)

	// offset 60: only the insertPos=50 change applies (50 <= 60), so +20.
	assert.Equal(t, uint32(80), binary.BigEndian.Uint32(got[0:4]))
	// offset 300: both changes apply (50<=300, 200<=300), so +20-5.
	assert.Equal(t, uint32(315), binary.BigEndian.Uint32(got[4:8]))
}

func TestApplyLengthPatches(t *testing.T) {
	head := Head{Size: Size{Len: 16}, Fourcc: fourccMoov}
	buf := mp4fixture.NewBuffer(nil)
	require.NoError(t, writeHead(buf, head))
	_, err := buf.Write(make([]byte, 8))
	require.NoError(t, err)

	c := change{kind: changeUpdateLen, bounds: AtomBounds{Pos: 0, Size: head.Size}, newLenDelta: 32}
	require.NoError(t, applyLengthPatches(buf, []change{c}))

	_, err = buf.Seek(0, 0)
	require.NoError(t, err)
	got, err := readHead(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(48), got.Size.Len)
	assert.Equal(t, fourccMoov, got.Fourcc)
}

func TestApplyMediaShiftRemoveReplace(t *testing.T) {
	// Layout: [AAAA][BBBB][CCCC][DDDD] at positions 0,4,8,12.
	original := []byte("AAAABBBBCCCCDDDD")
	buf := mp4fixture.NewBuffer(original)

	structural := []change{
		// remove BBBB
		{kind: changeRemove, bounds: AtomBounds{Pos: 4, Size: Size{Len: 4}}},
		// replace CCCC with a longer atom
		{kind: changeReplace, bounds: AtomBounds{Pos: 8, Size: Size{Len: 4}}, newAtom: []byte("XXXXXXXX")},
	}

	require.NoError(t, applyMediaShift(buf, uint64(len(original)), structural))

	assert.Equal(t, "AAAAXXXXXXXXDDDD", string(buf.Bytes()))
}

func TestApplyPlanEmptyChangesIsNoop(t *testing.T) {
	buf := mp4fixture.NewBuffer([]byte("unchanged"))
	require.NoError(t, applyPlan(buf, &fileTree{}, nil, zerolog.Nop()))
	assert.Equal(t, "unchanged", string(buf.Bytes()))
}
