package mp4

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{name: "under limit", s: "short", maxLen: 255, want: "short"},
		{name: "exactly at limit", s: "abcde", maxLen: 5, want: "abcde"},
		{name: "ascii over limit", s: "abcdef", maxLen: 5, want: "abcde"},
		{name: "does not split multibyte rune", s: "café", maxLen: 4, want: "caf"},
		{name: "empty string", s: "", maxLen: 10, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateTitle(tt.s, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), tt.maxLen)
		})
	}
}

func TestChapterListSetSorts(t *testing.T) {
	var l ChapterList
	l.Set([]Chapter{
		{Start: 3 * time.Second, Title: "third"},
		{Start: 1 * time.Second, Title: "first"},
		{Start: 2 * time.Second, Title: "second"},
	})

	got := l.Chapters()
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "second", got[1].Title)
	assert.Equal(t, "third", got[2].Title)
}

func TestChapterListAddInsertsSorted(t *testing.T) {
	var l ChapterList
	l.Add(Chapter{Start: 2 * time.Second, Title: "b"})
	l.Add(Chapter{Start: 1 * time.Second, Title: "a"})
	l.Add(Chapter{Start: 3 * time.Second, Title: "c"})

	got := l.Chapters()
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Title, got[1].Title, got[2].Title})
}

func TestChapterListClear(t *testing.T) {
	var l ChapterList
	l.Add(Chapter{Start: 0, Title: "a"})
	l.Clear()
	assert.Empty(t, l.Chapters())
}

func TestDurationToTimescale(t *testing.T) {
	assert.Equal(t, uint64(1000), durationToTimescale(time.Second, 1000))
	assert.Equal(t, uint64(500), durationToTimescale(500*time.Millisecond, 1000))
	assert.Equal(t, uint64(0), durationToTimescale(-time.Second, 1000))
}
