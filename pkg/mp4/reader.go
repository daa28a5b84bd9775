package mp4

import (
	"encoding/binary"
	"io"
	"time"
)

// reader.go implements the tree-walking reader (C3, §4.3): a gated descent
// driven by ReadConfig that materializes only the subtrees a caller asked
// for, recording an AtomBounds for every node the planner might later need
// to diff against.

// fileTree is the parsed record tree a read produces. It backs both the
// public Tag view (tag.go) and the change planner (plan.go).
type fileTree struct {
	ftyp       AtomBounds
	majorBrand string

	moov           AtomBounds
	mvhd           AtomBounds
	mvhdVersion    byte
	movieTimescale uint32
	movieDuration  uint64

	traks []*trakNode
	// audioTrak indexes traks for the primary audio track, or -1.
	audioTrak int
	// chapterTrak indexes traks for an existing chapter-text track
	// referenced by the main track's tref/chap, or -1.
	chapterTrak int

	udta *udtaNode
	mdat AtomBounds

	items               []Item
	chapterList         []Chapter
	chapterTrackEntries []Chapter

	hasAudioInfo bool
	audioInfo    AudioInfo
}

type udtaNode struct {
	bounds AtomBounds
	meta   *metaNode
	chpl   *chplNode
}

type metaNode struct {
	bounds AtomBounds
	hdlr   *AtomBounds
	ilst   *ilstNode
}

type ilstNode struct {
	bounds      AtomBounds
	itemRecords []itemRecord
}

type itemRecord struct {
	bounds AtomBounds
	item   Item
}

type chplNode struct {
	bounds  AtomBounds
	entries []Chapter
}

type trakNode struct {
	bounds  AtomBounds
	tkhd    AtomBounds
	trackID uint32

	hasChapterRef     bool
	chapterRefTrackID uint32

	mdia *mdiaNode
}

type mdiaNode struct {
	bounds      AtomBounds
	mdhd        AtomBounds
	timescale   uint32
	duration    uint64
	hdlr        AtomBounds
	handlerType Fourcc
	minf        *minfNode
}

type minfNode struct {
	bounds AtomBounds
	stbl   *stblNode
}

type stblNode struct {
	bounds AtomBounds
	stsd   AtomBounds

	// esdsContent is the raw content of an mp4a/esds descriptor, if one was
	// found, handed to the caller's AudioInfoResolver for decoding. The
	// core reader does not parse esds itself (§6.3: out of scope to
	// implement, in scope to expose).
	esdsContent []byte

	stts AtomBounds
	stsc AtomBounds
	stsz AtomBounds
	stco *chunkOffsetTable
}

type chunkOffsetTable struct {
	bounds     AtomBounds
	width      offsetWidth
	entriesPos uint64
	count      uint32
	offsets    []uint64 // populated only in full (write) mode
}

// childRange is one record found while scanning a container's direct
// children: its head and the bounds of its content.
type childRange struct {
	head   Head
	bounds AtomBounds
}

// scanChildren reads every direct child record in [start, end) without
// descending further.
func scanChildren(r io.ReadSeeker, start, end uint64) ([]childRange, error) {
	var out []childRange
	pos := start
	for pos < end {
		if _, err := r.Seek(int64(pos), io.SeekStart); err != nil {
			return nil, ioErr(err, "seeking to %d", pos)
		}
		head, err := readHead(r)
		if err != nil {
			return nil, err
		}
		bounds := AtomBounds{Pos: pos, Size: head.Size}
		out = append(out, childRange{head: head, bounds: bounds})
		pos = bounds.End()
	}
	return out, nil
}

func findChild(children []childRange, fourcc Fourcc) (childRange, bool) {
	for _, c := range children {
		if c.head.Fourcc == fourcc {
			return c, true
		}
	}
	return childRange{}, false
}

// readTree walks r under cfg and produces a fileTree.
func readTree(r io.ReadSeeker, cfg ReadConfig) (*fileTree, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, ioErr(err, "seeking to start")
	}
	size, err := streamLen(r)
	if err != nil {
		return nil, err
	}

	top, err := scanChildren(r, 0, size)
	if err != nil {
		return nil, err
	}

	tree := &fileTree{audioTrak: -1, chapterTrak: -1}

	ftypChild, ok := findChild(top, fourccFtyp)
	if !ok {
		return nil, newErr(KindNoTag, "no ftyp record found")
	}
	tree.ftyp = ftypChild.bounds
	brand, err := readMajorBrand(r, ftypChild.bounds)
	if err != nil {
		return nil, err
	}
	tree.majorBrand = brand

	moovChild, ok := findChild(top, fourccMoov)
	if !ok {
		return nil, newErr(KindAtomNotFound, "no moov record found")
	}
	tree.moov = moovChild.bounds

	if mdatChild, ok := findChild(top, fourccMdat); ok {
		tree.mdat = mdatChild.bounds
	}

	if err := readMoov(r, tree, cfg); err != nil {
		return nil, err
	}

	if cfg.ReadMetaItems && tree.udta != nil && tree.udta.meta != nil && tree.udta.meta.ilst != nil {
		tree.items = itemsFromRecords(tree.udta.meta.ilst.itemRecords)
	}
	if cfg.ReadChapterList && tree.udta != nil && tree.udta.chpl != nil {
		tree.chapterList = tree.udta.chpl.entries
	}
	if cfg.ReadChapterTrack && tree.chapterTrak >= 0 {
		entries, err := readChapterTrackEntries(r, tree, tree.traks[tree.chapterTrak])
		if err != nil {
			return nil, err
		}
		tree.chapterTrackEntries = entries
	}
	if cfg.ReadAudioInfo && tree.audioTrak >= 0 {
		trak := tree.traks[tree.audioTrak]
		info, ok, err := buildAudioInfo(tree, trak)
		if err != nil {
			return nil, err
		}
		if ok && trak.mdia != nil && trak.mdia.minf != nil && trak.mdia.minf.stbl != nil {
			resolved, err := resolveEsdsInfo(info, cfg.AudioInfoResolver, trak.mdia.minf.stbl.esdsContent)
			if err != nil {
				cfg.Logger.Warn().Err(err).Msg("esds descriptor could not be decoded; audio info keeps only its duration")
			} else {
				info = resolved
			}
		}
		tree.hasAudioInfo = ok
		tree.audioInfo = info
	}

	return tree, nil
}

func streamLen(r io.ReadSeeker) (uint64, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, ioErr(err, "getting current position")
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, ioErr(err, "seeking to end")
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		return 0, ioErr(err, "restoring position")
	}
	return uint64(end), nil
}

func readMajorBrand(r io.ReadSeeker, bounds AtomBounds) (string, error) {
	if _, err := r.Seek(int64(bounds.ContentPos()), io.SeekStart); err != nil {
		return "", ioErr(err, "seeking to ftyp content")
	}
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", ioErr(err, "reading major brand")
	}
	return string(buf[:]), nil
}

// readMoov descends into moov's children (mvhd, trak(s), udta).
func readMoov(r io.ReadSeeker, tree *fileTree, cfg ReadConfig) error {
	children, err := scanChildren(r, tree.moov.ContentPos(), tree.moov.End())
	if err != nil {
		return err
	}

	mvhdChild, ok := findChild(children, fourccMvhd)
	if !ok {
		return newErr(KindAtomNotFound, "no mvhd record found")
	}
	tree.mvhd = mvhdChild.bounds
	if err := readMvhd(r, tree, mvhdChild.bounds); err != nil {
		return err
	}

	for _, c := range children {
		if c.head.Fourcc != fourccTrak {
			continue
		}
		trak, err := readTrak(r, c.bounds, cfg)
		if err != nil {
			return err
		}
		tree.traks = append(tree.traks, trak)
	}

	resolveTrackRoles(tree)

	if udtaChild, ok := findChild(children, fourccUdta); ok {
		udta, err := readUdta(r, udtaChild.bounds, cfg)
		if err != nil {
			return err
		}
		tree.udta = udta
	}

	return nil
}

// readMvhd parses the movie header's version-dependent timescale/duration
// fields (§4.3 version handling).
func readMvhd(r io.ReadSeeker, tree *fileTree, bounds AtomBounds) error {
	if _, err := r.Seek(int64(bounds.ContentPos()), io.SeekStart); err != nil {
		return ioErr(err, "seeking to mvhd content")
	}
	version, _, err := readFullHead(r)
	if err != nil {
		return err
	}
	tree.mvhdVersion = version

	switch version {
	case 0:
		// 4 create, 4 modify, 4 timescale, 4 duration = 16 bytes, skip the
		// first 8 and read timescale+duration.
		var buf [16]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return ioErr(err, "reading mvhd v0 body")
		}
		tree.movieTimescale = binary.BigEndian.Uint32(buf[8:12])
		tree.movieDuration = uint64(binary.BigEndian.Uint32(buf[12:16]))
	case 1:
		// 8 create, 8 modify, 4 timescale, 8 duration = 28 bytes.
		var buf [28]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return ioErr(err, "reading mvhd v1 body")
		}
		tree.movieTimescale = binary.BigEndian.Uint32(buf[16:20])
		tree.movieDuration = binary.BigEndian.Uint64(buf[20:28])
	default:
		return newErr(KindUnknownVersion, "mvhd version %d is not supported", version)
	}
	return nil
}

// readTrak always reads tkhd and the tref/chap edge (structural, cheap) but
// only descends into mdia when something downstream needs it; callers that
// disabled every audio/chapter axis still get a trakNode shell.
func readTrak(r io.ReadSeeker, bounds AtomBounds, cfg ReadConfig) (*trakNode, error) {
	children, err := scanChildren(r, bounds.ContentPos(), bounds.End())
	if err != nil {
		return nil, err
	}

	tkhdChild, ok := findChild(children, fourccTkhd)
	if !ok {
		return nil, newErr(KindAtomNotFound, "no tkhd record found in trak")
	}
	trak := &trakNode{bounds: bounds, tkhd: tkhdChild.bounds}

	trackID, err := readTkhdTrackID(r, tkhdChild.bounds)
	if err != nil {
		return nil, err
	}
	trak.trackID = trackID

	if trefChild, ok := findChild(children, fourccTref); ok {
		trefKids, err := scanChildren(r, trefChild.bounds.ContentPos(), trefChild.bounds.End())
		if err != nil {
			return nil, err
		}
		if chapChild, ok := findChild(trefKids, fourccChap); ok {
			if _, err := r.Seek(int64(chapChild.bounds.ContentPos()), io.SeekStart); err != nil {
				return nil, ioErr(err, "seeking to tref/chap content")
			}
			var id [4]byte
			if _, err := io.ReadFull(r, id[:]); err == nil {
				trak.hasChapterRef = true
				trak.chapterRefTrackID = binary.BigEndian.Uint32(id[:])
			}
		}
	}

	if cfg.ReadAudioInfo || cfg.ReadChapterTrack || cfg.write {
		mdiaChild, ok := findChild(children, fourccMdia)
		if ok {
			mdia, err := readMdia(r, mdiaChild.bounds, cfg)
			if err != nil {
				return nil, err
			}
			trak.mdia = mdia
		}
	}

	return trak, nil
}

func readTkhdTrackID(r io.ReadSeeker, bounds AtomBounds) (uint32, error) {
	if _, err := r.Seek(int64(bounds.ContentPos()), io.SeekStart); err != nil {
		return 0, ioErr(err, "seeking to tkhd content")
	}
	version, _, err := readFullHead(r)
	if err != nil {
		return 0, err
	}
	switch version {
	case 0:
		var buf [12]byte // 4 create, 4 modify, 4 track id
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, ioErr(err, "reading tkhd v0 body")
		}
		return binary.BigEndian.Uint32(buf[8:12]), nil
	case 1:
		var buf [20]byte // 8 create, 8 modify, 4 track id
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, ioErr(err, "reading tkhd v1 body")
		}
		return binary.BigEndian.Uint32(buf[16:20]), nil
	default:
		return 0, newErr(KindUnknownVersion, "tkhd version %d is not supported", version)
	}
}

func readMdia(r io.ReadSeeker, bounds AtomBounds, cfg ReadConfig) (*mdiaNode, error) {
	children, err := scanChildren(r, bounds.ContentPos(), bounds.End())
	if err != nil {
		return nil, err
	}

	mdhdChild, ok := findChild(children, fourccMdhd)
	if !ok {
		return nil, newErr(KindAtomNotFound, "no mdhd record found in mdia")
	}
	mdia := &mdiaNode{bounds: bounds, mdhd: mdhdChild.bounds}

	timescale, duration, err := readMdhd(r, mdhdChild.bounds)
	if err != nil {
		return nil, err
	}
	mdia.timescale = timescale
	mdia.duration = duration

	hdlrChild, ok := findChild(children, fourccHdlr)
	if !ok {
		return nil, newErr(KindAtomNotFound, "no hdlr record found in mdia")
	}
	mdia.hdlr = hdlrChild.bounds
	handlerType, err := readHandlerType(r, hdlrChild.bounds)
	if err != nil {
		return nil, err
	}
	mdia.handlerType = handlerType

	if minfChild, ok := findChild(children, fourccMinf); ok {
		minf, err := readMinf(r, minfChild.bounds, cfg)
		if err != nil {
			return nil, err
		}
		mdia.minf = minf
	}

	return mdia, nil
}

func readMdhd(r io.ReadSeeker, bounds AtomBounds) (timescale uint32, duration uint64, err error) {
	if _, err = r.Seek(int64(bounds.ContentPos()), io.SeekStart); err != nil {
		return 0, 0, ioErr(err, "seeking to mdhd content")
	}
	version, _, err := readFullHead(r)
	if err != nil {
		return 0, 0, err
	}
	switch version {
	case 0:
		var buf [16]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, 0, ioErr(err, "reading mdhd v0 body")
		}
		return binary.BigEndian.Uint32(buf[8:12]), uint64(binary.BigEndian.Uint32(buf[12:16])), nil
	case 1:
		var buf [28]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, 0, ioErr(err, "reading mdhd v1 body")
		}
		return binary.BigEndian.Uint32(buf[16:20]), binary.BigEndian.Uint64(buf[20:28]), nil
	default:
		return 0, 0, newErr(KindUnknownVersion, "mdhd version %d is not supported", version)
	}
}

func readHandlerType(r io.ReadSeeker, bounds AtomBounds) (Fourcc, error) {
	if _, err := r.Seek(int64(bounds.ContentPos()), io.SeekStart); err != nil {
		return Fourcc{}, ioErr(err, "seeking to hdlr content")
	}
	if _, _, err := readFullHead(r); err != nil {
		return Fourcc{}, err
	}
	var buf [8]byte // 4 predefined + 4 handler type
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Fourcc{}, ioErr(err, "reading hdlr body")
	}
	var fc Fourcc
	copy(fc[:], buf[4:8])
	return fc, nil
}

func readMinf(r io.ReadSeeker, bounds AtomBounds, cfg ReadConfig) (*minfNode, error) {
	children, err := scanChildren(r, bounds.ContentPos(), bounds.End())
	if err != nil {
		return nil, err
	}
	minf := &minfNode{bounds: bounds}
	if stblChild, ok := findChild(children, fourccStbl); ok {
		stbl, err := readStbl(r, stblChild.bounds, cfg)
		if err != nil {
			return nil, err
		}
		minf.stbl = stbl
	}
	return minf, nil
}

func readStbl(r io.ReadSeeker, bounds AtomBounds, cfg ReadConfig) (*stblNode, error) {
	children, err := scanChildren(r, bounds.ContentPos(), bounds.End())
	if err != nil {
		return nil, err
	}
	stbl := &stblNode{bounds: bounds}

	if stsdChild, ok := findChild(children, fourccStsd); ok {
		stbl.stsd = stsdChild.bounds
		content, err := readStsdEsdsContent(r, stsdChild.bounds)
		if err != nil {
			return nil, err
		}
		stbl.esdsContent = content
	}
	if c, ok := findChild(children, fourccStts); ok {
		stbl.stts = c.bounds
	}
	if c, ok := findChild(children, fourccStsc); ok {
		stbl.stsc = c.bounds
	}
	if c, ok := findChild(children, fourccStsz); ok {
		stbl.stsz = c.bounds
	}
	if c, ok := findChild(children, fourccStco); ok {
		table, err := readChunkOffsetTable(r, c.bounds, offsetWidth32, cfg.write)
		if err != nil {
			return nil, err
		}
		stbl.stco = table
	} else if c, ok := findChild(children, fourccCo64); ok {
		table, err := readChunkOffsetTable(r, c.bounds, offsetWidth64, cfg.write)
		if err != nil {
			return nil, err
		}
		stbl.stco = table
	}

	return stbl, nil
}

// readChunkOffsetTable reads an stco/co64 table in shallow or full mode per
// §4.3: shallow stores only (position, count); full also materializes every
// offset, needed when the caller intends to write (the offsets may shift).
func readChunkOffsetTable(r io.ReadSeeker, bounds AtomBounds, width offsetWidth, full bool) (*chunkOffsetTable, error) {
	if _, err := r.Seek(int64(bounds.ContentPos()), io.SeekStart); err != nil {
		return nil, ioErr(err, "seeking to chunk offset table content")
	}
	if _, _, err := readFullHead(r); err != nil {
		return nil, err
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, ioErr(err, "reading chunk offset count")
	}
	count := binary.BigEndian.Uint32(countBuf[:])
	entriesPos := bounds.ContentPos() + fullHeadLen + 4

	table := &chunkOffsetTable{bounds: bounds, width: width, entriesPos: entriesPos, count: count}
	if !full {
		return table, nil
	}

	entryLen := 4
	if width == offsetWidth64 {
		entryLen = 8
	}
	raw := make([]byte, int(count)*entryLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, ioErr(err, "reading chunk offset entries")
	}
	table.offsets = make([]uint64, count)
	for i := 0; i < int(count); i++ {
		if width == offsetWidth64 {
			table.offsets[i] = binary.BigEndian.Uint64(raw[i*8 : i*8+8])
		} else {
			table.offsets[i] = uint64(binary.BigEndian.Uint32(raw[i*4 : i*4+4]))
		}
	}
	return table, nil
}

// resolveTrackRoles identifies the primary audio track (first trak whose
// mdia/hdlr handler type is "soun") and, separately, any track referenced
// by another track's tref/chap edge (the existing chapter track, if any).
func resolveTrackRoles(tree *fileTree) {
	var soundHandler = Fourcc{'s', 'o', 'u', 'n'}

	chapterTargets := map[uint32]bool{}
	for _, t := range tree.traks {
		if t.hasChapterRef {
			chapterTargets[t.chapterRefTrackID] = true
		}
	}

	for i, t := range tree.traks {
		if chapterTargets[t.trackID] {
			tree.chapterTrak = i
			continue
		}
		if tree.audioTrak == -1 && t.mdia != nil && t.mdia.handlerType == soundHandler {
			tree.audioTrak = i
		}
	}
}

// buildAudioInfo assembles AudioInfo for the resolved audio track from the
// media header's duration/timescale (or mvhd's when mdhd has no timescale);
// readTree merges the esds-derived fields in afterwards via resolveEsdsInfo.
func buildAudioInfo(tree *fileTree, trak *trakNode) (AudioInfo, bool, error) {
	if trak.mdia == nil {
		return AudioInfo{}, false, nil
	}

	var info AudioInfo
	if trak.mdia.timescale > 0 {
		info.Duration = time.Duration(trak.mdia.duration) * time.Second / time.Duration(trak.mdia.timescale)
	} else if tree.movieTimescale > 0 {
		info.Duration = time.Duration(tree.movieDuration) * time.Second / time.Duration(tree.movieTimescale)
	}

	return info, true, nil
}

// resolveEsdsInfo merges a resolver's EsdsInfo into an AudioInfo, called by
// readTree after buildAudioInfo when both a resolver and esds content are
// available.
func resolveEsdsInfo(info AudioInfo, resolver AudioInfoResolver, esdsContent []byte) (AudioInfo, error) {
	if resolver == nil || len(esdsContent) == 0 {
		return info, nil
	}
	resolved, err := resolver.ResolveEsds(esdsContent)
	if err != nil {
		return info, err
	}
	info.ChannelConfig = resolved.ChannelConfig
	info.HasChannelConfig = resolved.HasChannelConfig
	info.SampleRate = resolved.SampleRate
	info.HasSampleRate = resolved.HasSampleRate
	info.MaxBitrate = resolved.MaxBitrate
	info.AvgBitrate = resolved.AvgBitrate
	info.HasBitrate = resolved.HasBitrate
	return info, nil
}

// readChapterTrackEntries reconstructs chapter markers from an existing
// chapter-text track's sample table: each stco/co64 entry is taken as the
// file position of one sample, its duration comes from stts, and its title
// from the big-endian-u16-length-prefixed text stored at that position in
// mdat. stsz and stsc are not read, so a chunk holding more than one sample
// yields only its first sample's chapter.
func readChapterTrackEntries(r io.ReadSeeker, tree *fileTree, trak *trakNode) ([]Chapter, error) {
	if trak.mdia == nil || trak.mdia.minf == nil || trak.mdia.minf.stbl == nil {
		return nil, nil
	}
	stbl := trak.mdia.minf.stbl
	if stbl.stco == nil {
		return nil, nil
	}

	offsets := stbl.stco.offsets
	if offsets == nil {
		full, err := readChunkOffsetTable(r, stbl.stco.bounds, stbl.stco.width, true)
		if err != nil {
			return nil, err
		}
		offsets = full.offsets
	}

	durations, err := readSttsDurations(r, stbl.stts)
	if err != nil {
		return nil, err
	}

	var chapters []Chapter
	timescale := trak.mdia.timescale
	if timescale == 0 {
		timescale = tree.movieTimescale
	}
	var accumulated time.Duration
	for i, pos := range offsets {
		titleLenBuf, err := readRange(r, pos, pos+2)
		if err != nil {
			return nil, err
		}
		titleLen := uint16(titleLenBuf[0])<<8 | uint16(titleLenBuf[1])
		title, err := readRange(r, pos+2, pos+2+uint64(titleLen))
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, Chapter{Start: accumulated, Title: string(title)})
		if i < len(durations) && timescale > 0 {
			accumulated += time.Duration(durations[i]) * time.Second / time.Duration(timescale)
		}
	}

	return chapters, nil
}

// readSttsDurations expands an stts (time-to-sample) table into one
// duration (in media-time units) per sample, in order.
func readSttsDurations(r io.ReadSeeker, bounds AtomBounds) ([]uint32, error) {
	if bounds.Size.Len == 0 {
		return nil, nil
	}
	if _, err := r.Seek(int64(bounds.ContentPos()), io.SeekStart); err != nil {
		return nil, ioErr(err, "seeking to stts content")
	}
	if _, _, err := readFullHead(r); err != nil {
		return nil, err
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, ioErr(err, "reading stts entry count")
	}
	count := binary.BigEndian.Uint32(countBuf[:])

	raw := make([]byte, int(count)*8)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, ioErr(err, "reading stts entries")
	}

	var durations []uint32
	for i := 0; i < int(count); i++ {
		sampleCount := binary.BigEndian.Uint32(raw[i*8 : i*8+4])
		sampleDelta := binary.BigEndian.Uint32(raw[i*8+4 : i*8+8])
		for j := uint32(0); j < sampleCount; j++ {
			durations = append(durations, sampleDelta)
		}
	}
	return durations, nil
}

func itemsFromRecords(records []itemRecord) []Item {
	var out []Item
	for _, rec := range records {
		out = mergeItems(out, rec.item)
	}
	return out
}
