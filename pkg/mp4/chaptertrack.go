package mp4

import (
	"bytes"
	"encoding/binary"
)

// chaptertrack.go synthesizes and removes the full auxiliary chapter-text
// track (C6, §4.6): tkhd/tref-chap/mdia/mdhd/hdlr/minf/dinf/stbl with a
// single `text` sample entry, one sample per chapter stored in mdat.

// chapterTrackTimescale is the fixed media timescale used for the
// synthesized track's own mdhd, chosen so that per-chapter durations (which
// can be sub-second) are represented exactly enough: 1000 units/second.
const chapterTrackTimescale = 1000

// planChapterTrack diffs the existing chapter track (if any) against the
// caller's desired state and emits the Insert/Remove/AppendMdat/EditMdat
// changes needed to reconcile them.
func planChapterTrack(tree *fileTree, tag *Tag, wcfg WriteConfig) ([]change, error) {
	wantTrack := wcfg.Chapters.writeTrack() && len(tag.ChapterTrack.Chapters()) > 0
	hadTrack := tree.chapterTrak >= 0

	if !hadTrack && !wantTrack {
		return nil, nil
	}

	var oldChapters []Chapter
	if hadTrack {
		oldChapters = tree.chapterTrackEntries
	}
	if hadTrack == wantTrack && chaptersEqual(oldChapters, tag.ChapterTrack.Chapters()) {
		return nil, nil
	}

	var changes []change

	if hadTrack {
		trak := tree.traks[tree.chapterTrak]
		changes = append(changes, change{kind: changeRemove, level: 1, bounds: trak.bounds})
		if trak.mdia != nil && trak.mdia.minf != nil && trak.mdia.minf.stbl != nil && trak.mdia.minf.stbl.stco != nil {
			oldRange, ok := sampleByteRange(trak.mdia.minf.stbl.stco.offsets, oldChapters)
			if ok {
				changes = append(changes, change{
					kind:       changeEditMdat,
					level:      3,
					mdatPos:    oldRange.start,
					mdatOldLen: oldRange.end - oldRange.start,
				})
			}
		}
	}

	if wantTrack {
		nextTrackID := uint32(1)
		for _, t := range tree.traks {
			if t.trackID >= nextTrackID {
				nextTrackID = t.trackID + 1
			}
		}

		mainDuration, mainTimescale := uint64(0), tree.movieTimescale
		if tree.audioTrak >= 0 && tree.traks[tree.audioTrak].mdia != nil {
			mainDuration = tree.traks[tree.audioTrak].mdia.duration
			mainTimescale = tree.traks[tree.audioTrak].mdia.timescale
		}

		sampleBytes := buildChapterSampleBytes(tag.ChapterTrack.Chapters())
		mdatInsertPos := tree.mdat.End()
		if tree.mdat.Size.Len == 0 {
			mdatInsertPos = tree.moov.End()
		}

		trakBytes, err := buildChapterTrakAtom(nextTrackID, mainDuration, mainTimescale, tag.ChapterTrack.Chapters(), mdatInsertPos)
		if err != nil {
			return nil, err
		}

		changes = append(changes, change{kind: changeInsert, level: 1, insertPos: tree.moov.End(), newAtom: trakBytes})
		changes = append(changes, change{kind: changeAppendMdat, level: 3, mdatPos: mdatInsertPos, mdatNewBytes: sampleBytes})
	}

	// The sample bytes sit inside mdat, so mdat's own length follows the
	// bytes removed from and appended to it.
	if tree.mdat.Size.Len != 0 {
		var mdatDelta int64
		for _, c := range changes {
			if c.kind == changeEditMdat || c.kind == changeAppendMdat {
				mdatDelta += c.lenDiff()
			}
		}
		if mdatDelta != 0 {
			changes = append(changes, change{kind: changeUpdateLen, level: 0, bounds: tree.mdat, newLenDelta: mdatDelta})
		}
	}

	return changes, nil
}

type byteRange struct{ start, end uint64 }

func sampleByteRange(offsets []uint64, chapters []Chapter) (byteRange, bool) {
	if len(offsets) == 0 {
		return byteRange{}, false
	}
	first := offsets[0]
	last := offsets[len(offsets)-1]
	lastLen := uint64(2 + len(chapters[len(chapters)-1].Title))
	return byteRange{start: first, end: last + lastLen}, true
}

// buildChapterSampleBytes serializes the mdat payload for every chapter: a
// big-endian u16 title length followed by the UTF-8 title, truncated to the
// chapter-track limit (§3.5, §4.6).
func buildChapterSampleBytes(chapters []Chapter) []byte {
	var buf bytes.Buffer
	for _, c := range chapters {
		title := truncateTitle(c.Title, chapterTrackTitleMaxLen)
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(title)))
		buf.Write(lenBuf[:])
		buf.WriteString(title)
	}
	return buf.Bytes()
}

// buildChapterTrakAtom serializes the complete synthesized chapter trak,
// with stco/co64 offsets computed relative to mdatInsertPos (pre-apply
// coordinates; the chunk-offset shifting pass adjusts them for any
// preceding insertion, per §4.6 step 3).
func buildChapterTrakAtom(trackID uint32, mainDuration uint64, mainTimescale uint32, chapters []Chapter, mdatInsertPos uint64) ([]byte, error) {
	durationInMovieUnits := mainDuration
	if mainTimescale != 0 && mainTimescale != chapterTrackTimescale {
		durationInMovieUnits = mainDuration * chapterTrackTimescale / uint64(mainTimescale)
	}

	tkhdBytes, err := buildTkhdAtom(trackID, durationInMovieUnits)
	if err != nil {
		return nil, err
	}
	trefBytes, err := buildTrefChapAtom()
	if err != nil {
		return nil, err
	}
	mdiaBytes, err := buildTextMdiaAtom(chapters, mdatInsertPos)
	if err != nil {
		return nil, err
	}

	var content bytes.Buffer
	content.Write(tkhdBytes)
	content.Write(trefBytes)
	content.Write(mdiaBytes)

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccTrak}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing trak content")
	}
	return out.Bytes(), nil
}

func buildTkhdAtom(trackID uint32, duration uint64) ([]byte, error) {
	var content bytes.Buffer
	// Version 0: flags enabled(1). Layout: create(4) modify(4) track_id(4)
	// reserved(4) duration(4) reserved(8) layer(2) alt_group(2) volume(2)
	// reserved(2) matrix(36) width(4) height(4) = 80 bytes.
	if err := writeFullHead(&content, 0, [3]byte{0, 0, 1}); err != nil {
		return nil, err
	}
	var fixed [80]byte
	binary.BigEndian.PutUint32(fixed[8:12], trackID)
	binary.BigEndian.PutUint32(fixed[16:20], uint32(duration))
	if _, err := content.Write(fixed[:]); err != nil {
		return nil, ioErr(err, "writing tkhd fixed fields")
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccTkhd}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing tkhd content")
	}
	return out.Bytes(), nil
}

func buildTrefChapAtom() ([]byte, error) {
	// The chap child's payload (the referenced main track id) is filled in
	// by the caller that knows the main track's id; for a freshly
	// synthesized file with a single audio track, track id 1 is assumed.
	var chapContent [4]byte
	binary.BigEndian.PutUint32(chapContent[:], 1)

	var chapAtom bytes.Buffer
	size := sizeFromContentLen(uint64(len(chapContent)))
	if err := writeHead(&chapAtom, Head{Size: size, Fourcc: fourccChap}); err != nil {
		return nil, err
	}
	chapAtom.Write(chapContent[:])

	var out bytes.Buffer
	outerSize := sizeFromContentLen(uint64(chapAtom.Len()))
	if err := writeHead(&out, Head{Size: outerSize, Fourcc: fourccTref}); err != nil {
		return nil, err
	}
	if _, err := out.Write(chapAtom.Bytes()); err != nil {
		return nil, ioErr(err, "writing tref content")
	}
	return out.Bytes(), nil
}

func buildTextMdiaAtom(chapters []Chapter, mdatInsertPos uint64) ([]byte, error) {
	mdhdBytes, err := buildMdhdAtom(chapterDurationSum(chapters))
	if err != nil {
		return nil, err
	}
	hdlrBytes, err := buildTextHdlrAtom()
	if err != nil {
		return nil, err
	}
	minfBytes, err := buildTextMinfAtom(chapters, mdatInsertPos)
	if err != nil {
		return nil, err
	}

	var content bytes.Buffer
	content.Write(mdhdBytes)
	content.Write(hdlrBytes)
	content.Write(minfBytes)

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccMdia}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing mdia content")
	}
	return out.Bytes(), nil
}

// chapterDurationSum computes the media-time (chapterTrackTimescale units)
// total duration the text track's mdhd reports: the last chapter's start
// time plus a nominal one-second duration for that chapter (there being no
// explicit end time, per §4.6).
func chapterDurationSum(chapters []Chapter) uint64 {
	if len(chapters) == 0 {
		return 0
	}
	last := chapters[len(chapters)-1].Start
	// A nominal tail duration of one second for the final chapter, since
	// its end is not otherwise determined.
	total := last + secondsToDuration(1)
	return uint64(total.Seconds() * chapterTrackTimescale)
}

func buildMdhdAtom(durationInTimescale uint64) ([]byte, error) {
	var content bytes.Buffer
	if err := writeFullHead(&content, 0, [3]byte{}); err != nil {
		return nil, err
	}
	var fixed [16]byte
	binary.BigEndian.PutUint32(fixed[8:12], chapterTrackTimescale)
	binary.BigEndian.PutUint32(fixed[12:16], uint32(durationInTimescale))
	if _, err := content.Write(fixed[:]); err != nil {
		return nil, ioErr(err, "writing mdhd fixed fields")
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccMdhd}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing mdhd content")
	}
	return out.Bytes(), nil
}

func buildTextHdlrAtom() ([]byte, error) {
	var content bytes.Buffer
	if err := writeFullHead(&content, 0, [3]byte{}); err != nil {
		return nil, err
	}
	var fixed [20]byte
	copy(fixed[4:8], "text")
	if _, err := content.Write(fixed[:]); err != nil {
		return nil, ioErr(err, "writing hdlr fixed fields")
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccHdlr}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing hdlr content")
	}
	return out.Bytes(), nil
}

func buildTextMinfAtom(chapters []Chapter, mdatInsertPos uint64) ([]byte, error) {
	gminBytes := buildGminAtom()
	dinfBytes, err := buildDinfAtom()
	if err != nil {
		return nil, err
	}
	stblBytes, err := buildTextStblAtom(chapters, mdatInsertPos)
	if err != nil {
		return nil, err
	}

	var content bytes.Buffer
	content.Write(gminBytes)
	content.Write(dinfBytes)
	content.Write(stblBytes)

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccMinf}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing minf content")
	}
	return out.Bytes(), nil
}

// buildGminAtom serializes a minimal base media info header (gmhd/gmin),
// the QuickTime-style handler-independent media info text tracks use in
// place of an audio/video-specific one.
func buildGminAtom() []byte {
	var gminContent bytes.Buffer
	writeFullHead(&gminContent, 0, [3]byte{})
	gminContent.Write(make([]byte, 12)) // graphics mode, opcolor, balance, reserved

	var gmin bytes.Buffer
	size := sizeFromContentLen(uint64(gminContent.Len()))
	writeHead(&gmin, Head{Size: size, Fourcc: fourccGmin})
	gmin.Write(gminContent.Bytes())

	var gmhd bytes.Buffer
	outerSize := sizeFromContentLen(uint64(gmin.Len()))
	writeHead(&gmhd, Head{Size: outerSize, Fourcc: fourccGmhd})
	gmhd.Write(gmin.Bytes())

	return gmhd.Bytes()
}

func buildDinfAtom() ([]byte, error) {
	// dref with a single self-referencing url record (flags = 1, meaning
	// "data is in this file").
	var urlAtom bytes.Buffer
	if err := writeFullHead(&urlAtom, 0, [3]byte{0, 0, 1}); err != nil {
		return nil, err
	}
	var url bytes.Buffer
	size := sizeFromContentLen(uint64(urlAtom.Len()))
	if err := writeHead(&url, Head{Size: size, Fourcc: fourccURL}); err != nil {
		return nil, err
	}
	url.Write(urlAtom.Bytes())

	var drefContent bytes.Buffer
	if err := writeFullHead(&drefContent, 0, [3]byte{}); err != nil {
		return nil, err
	}
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], 1)
	drefContent.Write(count[:])
	drefContent.Write(url.Bytes())

	var dref bytes.Buffer
	drefSize := sizeFromContentLen(uint64(drefContent.Len()))
	if err := writeHead(&dref, Head{Size: drefSize, Fourcc: fourccDref}); err != nil {
		return nil, err
	}
	dref.Write(drefContent.Bytes())

	var dinf bytes.Buffer
	dinfSize := sizeFromContentLen(uint64(dref.Len()))
	if err := writeHead(&dinf, Head{Size: dinfSize, Fourcc: fourccDinf}); err != nil {
		return nil, err
	}
	dinf.Write(dref.Bytes())

	return dinf.Bytes(), nil
}

func buildTextStblAtom(chapters []Chapter, mdatInsertPos uint64) ([]byte, error) {
	stsdBytes, err := buildTextStsdAtom()
	if err != nil {
		return nil, err
	}
	sttsBytes, err := buildSttsAtom(chapters)
	if err != nil {
		return nil, err
	}
	stscBytes, err := buildStscAtom(len(chapters))
	if err != nil {
		return nil, err
	}
	stszBytes, err := buildStszAtom(chapters)
	if err != nil {
		return nil, err
	}
	stcoBytes, err := buildStcoAtom(chapters, mdatInsertPos)
	if err != nil {
		return nil, err
	}

	var content bytes.Buffer
	content.Write(stsdBytes)
	content.Write(sttsBytes)
	content.Write(stscBytes)
	content.Write(stszBytes)
	content.Write(stcoBytes)

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccStbl}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing stbl content")
	}
	return out.Bytes(), nil
}

func buildTextStsdAtom() ([]byte, error) {
	// A minimal `text` sample entry: base SampleEntry fields (6 reserved +
	// 2 data_reference_index) followed by the fixed QuickTime text sample
	// description fields, all zeroed; display is not the engine's concern.
	var entryContent bytes.Buffer
	entryContent.Write(make([]byte, 8))  // reserved + data_reference_index
	entryContent.Write(make([]byte, 36)) // display flags/justification/bg color/default text box/scroll delay/...

	var entry bytes.Buffer
	size := sizeFromContentLen(uint64(entryContent.Len()))
	if err := writeHead(&entry, Head{Size: size, Fourcc: fourccText}); err != nil {
		return nil, err
	}
	entry.Write(entryContent.Bytes())

	var stsdContent bytes.Buffer
	if err := writeFullHead(&stsdContent, 0, [3]byte{}); err != nil {
		return nil, err
	}
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], 1)
	stsdContent.Write(count[:])
	stsdContent.Write(entry.Bytes())

	var stsd bytes.Buffer
	stsdSize := sizeFromContentLen(uint64(stsdContent.Len()))
	if err := writeHead(&stsd, Head{Size: stsdSize, Fourcc: fourccStsd}); err != nil {
		return nil, err
	}
	stsd.Write(stsdContent.Bytes())
	return stsd.Bytes(), nil
}

// buildSttsAtom emits one stts entry per chapter, each with sample_count=1
// and sample_delta equal to the gap to the next chapter (the last chapter
// gets a nominal one-second delta, matching chapterDurationSum).
func buildSttsAtom(chapters []Chapter) ([]byte, error) {
	var content bytes.Buffer
	if err := writeFullHead(&content, 0, [3]byte{}); err != nil {
		return nil, err
	}
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(chapters)))
	content.Write(count[:])

	for i, c := range chapters {
		var delta uint32
		if i+1 < len(chapters) {
			delta = uint32(durationToTimescale(chapters[i+1].Start-c.Start, chapterTrackTimescale))
		} else {
			delta = chapterTrackTimescale
		}
		var entry [8]byte
		binary.BigEndian.PutUint32(entry[0:4], 1)
		binary.BigEndian.PutUint32(entry[4:8], delta)
		content.Write(entry[:])
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccStts}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing stts content")
	}
	return out.Bytes(), nil
}

// buildStscAtom emits a single entry declaring one sample per chunk for the
// whole track (§4.6).
func buildStscAtom(sampleCount int) ([]byte, error) {
	var content bytes.Buffer
	if err := writeFullHead(&content, 0, [3]byte{}); err != nil {
		return nil, err
	}
	count := uint32(0)
	if sampleCount > 0 {
		count = 1
	}
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], count)
	content.Write(countBuf[:])
	if count == 1 {
		var entry [12]byte
		binary.BigEndian.PutUint32(entry[0:4], 1) // first_chunk
		binary.BigEndian.PutUint32(entry[4:8], 1)  // samples_per_chunk
		binary.BigEndian.PutUint32(entry[8:12], 1) // sample_description_index
		content.Write(entry[:])
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccStsc}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing stsc content")
	}
	return out.Bytes(), nil
}

// buildStszAtom records each chapter sample's size: 2 bytes for the title
// length prefix plus the (possibly truncated) title's byte length.
func buildStszAtom(chapters []Chapter) ([]byte, error) {
	var content bytes.Buffer
	if err := writeFullHead(&content, 0, [3]byte{}); err != nil {
		return nil, err
	}
	var uniformAndCount [8]byte // sample_size=0 (non-uniform), then count
	binary.BigEndian.PutUint32(uniformAndCount[4:8], uint32(len(chapters)))
	content.Write(uniformAndCount[:])

	for _, c := range chapters {
		title := truncateTitle(c.Title, chapterTrackTitleMaxLen)
		var sizeBuf [4]byte
		binary.BigEndian.PutUint32(sizeBuf[:], uint32(2+len(title)))
		content.Write(sizeBuf[:])
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccStsz}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing stsz content")
	}
	return out.Bytes(), nil
}

// buildStcoAtom records each chapter sample's absolute file position,
// relative to mdatInsertPos in pre-apply coordinates (§4.6 step 3); emits
// co64 instead of stco if any offset would not fit in 32 bits.
func buildStcoAtom(chapters []Chapter, mdatInsertPos uint64) ([]byte, error) {
	offsets := make([]uint64, len(chapters))
	pos := mdatInsertPos
	for i, c := range chapters {
		offsets[i] = pos
		title := truncateTitle(c.Title, chapterTrackTitleMaxLen)
		pos += uint64(2 + len(title))
	}

	use64 := false
	for _, o := range offsets {
		if o > 0xFFFFFFFF {
			use64 = true
			break
		}
	}

	var content bytes.Buffer
	if err := writeFullHead(&content, 0, [3]byte{}); err != nil {
		return nil, err
	}
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(offsets)))
	content.Write(count[:])
	for _, o := range offsets {
		if use64 {
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], o)
			content.Write(b[:])
		} else {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(o))
			content.Write(b[:])
		}
	}

	fourcc := fourccStco
	if use64 {
		fourcc = fourccCo64
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourcc}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing chunk offset content")
	}
	return out.Bytes(), nil
}
