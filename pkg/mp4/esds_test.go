package mp4

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStsdWithEsds hand-assembles a minimal stsd atom containing one mp4a
// sample entry whose esds child holds descContent, mirroring the layout
// readStsdEsdsContent expects.
func buildStsdWithEsds(t *testing.T, descContent []byte) []byte {
	t.Helper()

	var esds bytes.Buffer
	require.NoError(t, writeFullHead(&esds, 0, [3]byte{}))
	esds.Write(descContent)
	esdsSize := sizeFromContentLen(uint64(esds.Len()))

	var esdsAtom bytes.Buffer
	require.NoError(t, writeHead(&esdsAtom, Head{Size: esdsSize, Fourcc: fourccEsds}))
	esdsAtom.Write(esds.Bytes())

	var entryContent bytes.Buffer
	entryContent.Write(make([]byte, audioSampleEntryFixedLen))
	entryContent.Write(esdsAtom.Bytes())
	entrySize := sizeFromContentLen(uint64(entryContent.Len()))

	var entry bytes.Buffer
	require.NoError(t, writeHead(&entry, Head{Size: entrySize, Fourcc: fourccMp4a}))
	entry.Write(entryContent.Bytes())

	var stsdContent bytes.Buffer
	require.NoError(t, writeFullHead(&stsdContent, 0, [3]byte{}))
	var count [4]byte
	count[3] = 1
	stsdContent.Write(count[:])
	stsdContent.Write(entry.Bytes())
	stsdSize := sizeFromContentLen(uint64(stsdContent.Len()))

	var stsd bytes.Buffer
	require.NoError(t, writeHead(&stsd, Head{Size: stsdSize, Fourcc: fourccStsd}))
	stsd.Write(stsdContent.Bytes())
	return stsd.Bytes()
}

func TestReadStsdEsdsContentFindsDescriptor(t *testing.T) {
	descContent := []byte{0x03, 0x19, 0x00, 0x00, 0x00}
	raw := buildStsdWithEsds(t, descContent)

	r := bytes.NewReader(raw)
	bounds := AtomBounds{Pos: 0, Size: Size{Len: uint64(len(raw))}}

	got, err := readStsdEsdsContent(r, bounds)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0, 0, 0, 0}, descContent...), got)
}

func TestReadStsdEsdsContentNoMp4aEntry(t *testing.T) {
	var stsdContent bytes.Buffer
	require.NoError(t, writeFullHead(&stsdContent, 0, [3]byte{}))
	stsdContent.Write([]byte{0, 0, 0, 0}) // zero entries
	stsdSize := sizeFromContentLen(uint64(stsdContent.Len()))

	var stsd bytes.Buffer
	require.NoError(t, writeHead(&stsd, Head{Size: stsdSize, Fourcc: fourccStsd}))
	stsd.Write(stsdContent.Bytes())

	r := bytes.NewReader(stsd.Bytes())
	bounds := AtomBounds{Pos: 0, Size: Size{Len: uint64(stsd.Len())}}

	got, err := readStsdEsdsContent(r, bounds)
	require.NoError(t, err)
	assert.Nil(t, got)
}
