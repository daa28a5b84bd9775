package mp4

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shishobooks/mp4tag/internal/mp4fixture"
)

func basicFixture() []byte {
	return mp4fixture.Build(mp4fixture.Options{
		Brand:          "M4A ",
		AudioBytes:     bytes.Repeat([]byte{0xAB}, 256),
		AudioTimescale: 44100,
		AudioDuration:  44100 * 10,
		Items: []mp4fixture.Item{
			{Fourcc: FourccTitle, Text: "My Audiobook"},
			{Fourcc: FourccAlbum, Text: "My Series"},
		},
		Chapters: []mp4fixture.Chapter{
			{StartMillis: 0, Title: "Chapter One"},
			{StartMillis: 5000, Title: "Chapter Two"},
		},
	})
}

func TestReadBasicFixture(t *testing.T) {
	r := bytes.NewReader(basicFixture())
	tag, err := Read(r, ReadConfigForMetadata())
	require.NoError(t, err)

	assert.Equal(t, "M4A ", tag.FileType)

	title, ok := tag.Items.Get(FourccIdent(FourccTitle))
	require.True(t, ok)
	assert.Equal(t, "My Audiobook", title.Data[0].Text)

	album, ok := tag.Items.Get(FourccIdent(FourccAlbum))
	require.True(t, ok)
	assert.Equal(t, "My Series", album.Data[0].Text)

	require.Len(t, tag.ChapterList.Chapters(), 2)
	assert.Equal(t, "Chapter One", tag.ChapterList.Chapters()[0].Title)
	assert.Equal(t, 5*time.Second, tag.ChapterList.Chapters()[1].Start)

	require.True(t, tag.HasAudioInfo)
	assert.Equal(t, 10*time.Second, tag.AudioInfo.Duration)
}

func TestReadRejectsUnknownBrand(t *testing.T) {
	data := mp4fixture.Build(mp4fixture.Options{Brand: "xyz ", AudioBytes: []byte{1, 2, 3}})
	r := bytes.NewReader(data)
	_, err := Read(r, ReadConfigForMetadata())
	require.Error(t, err)
	assert.True(t, Is(err, KindInvalidFiletype))
}

func TestReadConfigGatesDescent(t *testing.T) {
	r := bytes.NewReader(basicFixture())
	tag, err := Read(r, ReadConfig{})
	require.NoError(t, err)

	assert.Empty(t, tag.Items.Items())
	assert.Empty(t, tag.ChapterList.Chapters())
	assert.False(t, tag.HasAudioInfo)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/path/does-not-exist.m4a", ReadConfigForMetadata())
	require.Error(t, err)
	assert.True(t, Is(err, KindIO))
}

func TestReadWithNoItemsOrChapters(t *testing.T) {
	data := mp4fixture.Build(mp4fixture.Options{
		Brand:      "M4A ",
		AudioBytes: []byte{1, 2, 3, 4},
	})
	r := bytes.NewReader(data)
	tag, err := Read(r, ReadConfigForMetadata())
	require.NoError(t, err)
	assert.Empty(t, tag.Items.Items())
	assert.Empty(t, tag.ChapterList.Chapters())
}

func TestLowerBrand(t *testing.T) {
	assert.Equal(t, "m4a ", lowerBrand("M4A "))
	assert.Equal(t, "iso2", lowerBrand("iso2"))
}
