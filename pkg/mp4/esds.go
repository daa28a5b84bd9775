package mp4

import "io"

// esds.go locates the audio sample entry's esds descriptor without parsing
// it: esds decoding is delegated to an AudioInfoResolver (audioinfo.go),
// kept out of the core per §6.3 ("out of scope to implement, in scope to
// expose"). internal/audioinfo supplies the default resolver, built on the
// go-mp4 box library.

// audioSampleEntryFixedLen is the byte length of the fixed AudioSampleEntry
// fields (reserved, data_reference_index, version/revision/vendor,
// channelcount, samplesize, pre_defined, reserved, samplerate) preceding
// any child boxes such as esds, per the ISO/QuickTime sample description.
const audioSampleEntryFixedLen = 28

// readStsdEsdsContent returns the raw content bytes of the first audio
// sample entry's esds descriptor found under stsd, or nil if stsd has no
// mp4a entry or the entry has no esds child.
func readStsdEsdsContent(r io.ReadSeeker, stsdBounds AtomBounds) ([]byte, error) {
	if _, err := r.Seek(int64(stsdBounds.ContentPos()), io.SeekStart); err != nil {
		return nil, ioErr(err, "seeking to stsd content")
	}
	if _, _, err := readFullHead(r); err != nil {
		return nil, err
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, ioErr(err, "reading stsd entry count")
	}

	entryPos := stsdBounds.ContentPos() + fullHeadLen + 4
	if entryPos >= stsdBounds.End() {
		return nil, nil
	}

	entries, err := scanChildren(r, entryPos, stsdBounds.End())
	if err != nil {
		return nil, err
	}
	entry, ok := findChild(entries, fourccMp4a)
	if !ok || len(entries) == 0 {
		return nil, nil
	}

	childStart := entry.bounds.ContentPos() + audioSampleEntryFixedLen
	if childStart >= entry.bounds.End() {
		return nil, nil
	}
	children, err := scanChildren(r, childStart, entry.bounds.End())
	if err != nil {
		return nil, err
	}
	esdsChild, ok := findChild(children, fourccEsds)
	if !ok {
		return nil, nil
	}
	return readRange(r, esdsChild.bounds.ContentPos(), esdsChild.bounds.End())
}
