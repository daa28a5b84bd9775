package mp4

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChplTimeRoundTrip(t *testing.T) {
	d := 1500 * time.Millisecond
	ticks := durationToChplTime(d)
	assert.Equal(t, d, chplTimeToDuration(ticks))
}

func TestDurationToChplTimeNegativeIsZero(t *testing.T) {
	assert.Equal(t, uint64(0), durationToChplTime(-time.Second))
}

func TestBuildChplAtomRoundTrip(t *testing.T) {
	chapters := []Chapter{
		{Start: 0, Title: "Intro"},
		{Start: 90 * time.Second, Title: "Chapter One"},
		{Start: 200 * time.Second, Title: "Chapter Two"},
	}

	atomBytes, err := buildChplAtom(chapters)
	require.NoError(t, err)

	r := bytes.NewReader(atomBytes)
	head, err := readHead(r)
	require.NoError(t, err)
	assert.Equal(t, fourccChpl, head.Fourcc)

	bounds := AtomBounds{Pos: 0, Size: head.Size}
	node, err := readChpl(r, bounds)
	require.NoError(t, err)
	require.Len(t, node.entries, len(chapters))
	for i, c := range chapters {
		assert.Equal(t, c.Title, node.entries[i].Title)
		assert.Equal(t, c.Start, node.entries[i].Start)
	}
}

func TestBuildChplContentTruncatesTitle(t *testing.T) {
	longTitle := make([]byte, 300)
	for i := range longTitle {
		longTitle[i] = 'a'
	}
	chapters := []Chapter{{Start: 0, Title: string(longTitle)}}

	content, err := buildChplContent(chapters)
	require.NoError(t, err)

	// full head(4) + count(1) + start(8) + titleLen(1) + title(<=255)
	assert.LessOrEqual(t, len(content), 4+1+8+1+255)

	titleLen := content[4+1+8]
	assert.Equal(t, byte(chapterListTitleMaxLen), titleLen)
}

func TestBuildChplContentCapsEntryCountAt255(t *testing.T) {
	chapters := make([]Chapter, 300)
	for i := range chapters {
		chapters[i] = Chapter{Start: time.Duration(i) * time.Second, Title: "c"}
	}

	content, err := buildChplContent(chapters)
	require.NoError(t, err)
	assert.Equal(t, byte(255), content[4])
}
