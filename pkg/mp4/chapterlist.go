package mp4

import (
	"bytes"
	"encoding/binary"
	"time"
)

// chapterlist.go serializes and deserializes the embedded Nero-style
// chapter list (udta/chpl), grounded on the teacher's readNeroChapters
// (pkg/mp4/chapters.go) 100ns-tick time base.

// chplTimeUnit is the tick duration Nero chapter start times are stored in:
// 100 nanoseconds, matching the original reader's division by 10_000_000.
const chplTimeUnit = 100 * time.Nanosecond

func chplTimeToDuration(ticks uint64) time.Duration {
	return time.Duration(ticks) * chplTimeUnit
}

func durationToChplTime(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d / chplTimeUnit)
}

// buildChplContent serializes the full content (after the full head) of a
// chpl atom for the given chapters, truncating titles to the 255-byte limit
// (§3.5).
func buildChplContent(chapters []Chapter) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeFullHead(&buf, 0, [3]byte{}); err != nil {
		return nil, err
	}
	if len(chapters) > 255 {
		chapters = chapters[:255]
	}
	if err := buf.WriteByte(byte(len(chapters))); err != nil {
		return nil, ioErr(err, "writing chpl entry count")
	}
	for _, c := range chapters {
		title := truncateTitle(c.Title, chapterListTitleMaxLen)
		var head [9]byte
		binary.BigEndian.PutUint64(head[0:8], durationToChplTime(c.Start))
		head[8] = byte(len(title))
		if _, err := buf.Write(head[:]); err != nil {
			return nil, ioErr(err, "writing chpl entry header")
		}
		if _, err := buf.WriteString(title); err != nil {
			return nil, ioErr(err, "writing chpl entry title")
		}
	}
	return buf.Bytes(), nil
}

// buildChplAtom serializes a complete chpl atom.
func buildChplAtom(chapters []Chapter) ([]byte, error) {
	content, err := buildChplContent(chapters)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	size := sizeFromContentLen(uint64(len(content)))
	if err := writeHead(&buf, Head{Size: size, Fourcc: fourccChpl}); err != nil {
		return nil, err
	}
	if _, err := buf.Write(content); err != nil {
		return nil, ioErr(err, "writing chpl content")
	}
	return buf.Bytes(), nil
}
