package mp4

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChapterSampleBytes(t *testing.T) {
	chapters := []Chapter{
		{Start: 0, Title: "Intro"},
		{Start: time.Second, Title: "One"},
	}
	b := buildChapterSampleBytes(chapters)

	introLen := binary.BigEndian.Uint16(b[0:2])
	assert.Equal(t, uint16(len("Intro")), introLen)
	assert.Equal(t, "Intro", string(b[2:2+introLen]))

	rest := b[2+introLen:]
	oneLen := binary.BigEndian.Uint16(rest[0:2])
	assert.Equal(t, uint16(len("One")), oneLen)
	assert.Equal(t, "One", string(rest[2:2+oneLen]))
}

func TestSampleByteRange(t *testing.T) {
	chapters := []Chapter{{Start: 0, Title: "ab"}, {Start: time.Second, Title: "cde"}}
	offsets := []uint64{1000, 1004}

	r, ok := sampleByteRange(offsets, chapters)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), r.start)
	// second sample: 2-byte length prefix + 3-byte title = 5 bytes past its offset.
	assert.Equal(t, uint64(1009), r.end)
}

func TestSampleByteRangeEmptyOffsets(t *testing.T) {
	_, ok := sampleByteRange(nil, nil)
	assert.False(t, ok)
}

func TestBuildStcoAtomChoosesCo64WhenOffsetsExceed32Bit(t *testing.T) {
	chapters := []Chapter{{Start: 0, Title: "x"}}

	small, err := buildStcoAtom(chapters, 100)
	require.NoError(t, err)
	head, err := readHeadFromBytes(t, small)
	require.NoError(t, err)
	assert.Equal(t, fourccStco, head.Fourcc)

	big, err := buildStcoAtom(chapters, 0x1_0000_0000)
	require.NoError(t, err)
	head, err = readHeadFromBytes(t, big)
	require.NoError(t, err)
	assert.Equal(t, fourccCo64, head.Fourcc)
}

func readHeadFromBytes(t *testing.T, b []byte) (Head, error) {
	t.Helper()
	return readHead(bytes.NewReader(b))
}

func TestBuildSttsAtomLastEntryGetsNominalDelta(t *testing.T) {
	chapters := []Chapter{
		{Start: 0, Title: "a"},
		{Start: 2 * time.Second, Title: "b"},
	}
	b, err := buildSttsAtom(chapters)
	require.NoError(t, err)

	content := b[8+4:] // skip outer head + full head
	count := binary.BigEndian.Uint32(content[0:4])
	require.Equal(t, uint32(2), count)

	firstDelta := binary.BigEndian.Uint32(content[4+4 : 4+8])
	assert.Equal(t, uint32(2*chapterTrackTimescale), firstDelta)

	secondDelta := binary.BigEndian.Uint32(content[4+8+4 : 4+8+8])
	assert.Equal(t, uint32(chapterTrackTimescale), secondDelta)
}

func TestChapterDurationSum(t *testing.T) {
	assert.Equal(t, uint64(0), chapterDurationSum(nil))

	chapters := []Chapter{{Start: 5 * time.Second, Title: "x"}}
	assert.Equal(t, uint64(6*chapterTrackTimescale), chapterDurationSum(chapters))
}

func TestPlanChapterTrackNoopWhenUnchanged(t *testing.T) {
	tree := &fileTree{audioTrak: -1, chapterTrak: -1}
	tag := &Tag{}
	changes, err := planChapterTrack(tree, tag, WriteConfig{Chapters: ChapterWriteNone})
	require.NoError(t, err)
	assert.Nil(t, changes)
}

func TestPlanChapterTrackSynthesizesNewTrack(t *testing.T) {
	tree := &fileTree{audioTrak: -1, chapterTrak: -1, moov: AtomBounds{Pos: 0, Size: Size{Len: 100}}}
	tag := &Tag{}
	tag.ChapterTrack.Set([]Chapter{{Start: 0, Title: "Intro"}})

	changes, err := planChapterTrack(tree, tag, WriteConfig{Chapters: ChapterWriteTrack})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, changeInsert, changes[0].kind)
	assert.Equal(t, changeAppendMdat, changes[1].kind)
}
