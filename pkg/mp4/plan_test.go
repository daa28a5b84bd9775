package mp4

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsEqual(t *testing.T) {
	a := []Item{NewItem(FourccIdent(FourccTitle), UTF8("x"))}
	b := []Item{NewItem(FourccIdent(FourccTitle), UTF8("x"))}
	c := []Item{NewItem(FourccIdent(FourccTitle), UTF8("y"))}

	assert.True(t, itemsEqual(a, b))
	assert.False(t, itemsEqual(a, c))
	assert.False(t, itemsEqual(a, nil))
	assert.True(t, itemsEqual(nil, nil))
}

func TestChaptersEqual(t *testing.T) {
	a := []Chapter{{Start: 0, Title: "x"}}
	b := []Chapter{{Start: 0, Title: "x"}}
	c := []Chapter{{Start: 0, Title: "y"}}

	assert.True(t, chaptersEqual(a, b))
	assert.False(t, chaptersEqual(a, c))
	assert.True(t, chaptersEqual(nil, nil))
}

func TestOrderChangesPutsUpdateChunkOffsetsLast(t *testing.T) {
	changes := []change{
		{kind: changeUpdateChunkOffsets, bounds: AtomBounds{Pos: 0}},
		{kind: changeReplace, bounds: AtomBounds{Pos: 200}},
		{kind: changeRemove, bounds: AtomBounds{Pos: 100}},
	}
	orderChanges(changes)

	assert.Equal(t, changeRemove, changes[0].kind)
	assert.Equal(t, changeReplace, changes[1].kind)
	assert.Equal(t, changeUpdateChunkOffsets, changes[2].kind)
}

func TestOrderChangesDeeperLevelFirstAtSamePosition(t *testing.T) {
	changes := []change{
		{kind: changeReplace, level: 1, bounds: AtomBounds{Pos: 50}},
		{kind: changeRemove, level: 3, bounds: AtomBounds{Pos: 50}},
	}
	orderChanges(changes)

	assert.Equal(t, 3, changes[0].level)
	assert.Equal(t, 1, changes[1].level)
}

func TestClassifyMetadataState(t *testing.T) {
	assert.Equal(t, stateExisting, classifyMetadataState(false, false))
	assert.Equal(t, stateRemove, classifyMetadataState(true, false))
	assert.Equal(t, stateReplace, classifyMetadataState(true, true))
	assert.Equal(t, stateInsert, classifyMetadataState(false, true))
}

func TestSumLenDiff(t *testing.T) {
	changes := []change{
		{kind: changeInsert, newAtom: make([]byte, 10)},
		{kind: changeRemove, bounds: AtomBounds{Size: Size{Len: 4}}},
	}
	total := sumLenDiff(changes, func(change) bool { return true })
	assert.Equal(t, int64(6), total)
}

func TestBuildFreeAtom(t *testing.T) {
	b, err := buildFreeAtom(16)
	require.NoError(t, err)
	require.Len(t, b, 16)

	head, err := readHead(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, fourccFree, head.Fourcc)
	assert.Equal(t, uint64(16), head.Size.Len)
}

func TestAbsorbFreeSpaceShrinkByAtLeast8PadsToSameLength(t *testing.T) {
	newAtom := make([]byte, 20)
	out, err := absorbFreeSpace(newAtom, 40)
	require.NoError(t, err)
	assert.Len(t, out, 40)

	pad := out[20:]
	head, err := readHead(bytes.NewReader(pad))
	require.NoError(t, err)
	assert.Equal(t, fourccFree, head.Fourcc)
	assert.Equal(t, uint64(20), head.Size.Len)
}

func TestAbsorbFreeSpaceShrinkUnder8IsLeftAlone(t *testing.T) {
	newAtom := make([]byte, 35)
	out, err := absorbFreeSpace(newAtom, 40)
	require.NoError(t, err)
	assert.Equal(t, newAtom, out)
}

func TestAbsorbFreeSpaceGrowthIsLeftAlone(t *testing.T) {
	newAtom := make([]byte, 50)
	out, err := absorbFreeSpace(newAtom, 40)
	require.NoError(t, err)
	assert.Equal(t, newAtom, out)
}
