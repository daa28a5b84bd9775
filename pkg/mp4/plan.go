package mp4

import (
	"bytes"
	"sort"
)

// minFreeAtomLen is the smallest a free atom can be: an 8-byte basic head
// with no content.
const minFreeAtomLen = 8

// plan.go implements the change planner (C4, §4.4): given the tree a read
// produced and the tag's current in-memory state, produce an ordered list of
// changes an applier can execute.
//
// The metadata subtree (udta/meta/ilst/hdlr and udta/chpl) is diffed as a
// single unit rather than leaf-by-leaf: whenever items or the embedded
// chapter list change, the whole udta atom is regenerated and replaced (or
// inserted/removed) in one change. The applier's chunk-offset shifting
// algorithm only depends on each change's (old_pos, old_end, len_diff), not
// on internal granularity, so this keeps the planner tractable without
// changing on-disk correctness. Chapter-track synthesis/removal is the one
// place finer-grained changes (an Insert for the new trak, an
// Append/EditMdat for its sample bytes) are unavoidable, since track
// contents live inside mdat rather than as a self-contained child record.

// buildPlan produces the full change list for writing tag's current state
// over tree, per wcfg.
func buildPlan(tree *fileTree, tag *Tag, wcfg WriteConfig) ([]change, error) {
	var changes []change

	metaChanges, err := planMetadataSubtree(tree, tag, wcfg)
	if err != nil {
		return nil, err
	}
	changes = append(changes, metaChanges...)

	trackChanges, err := planChapterTrack(tree, tag, wcfg)
	if err != nil {
		return nil, err
	}
	changes = append(changes, trackChanges...)

	moovDelta := sumLenDiff(changes, func(c change) bool {
		return c.bounds.Pos >= tree.moov.ContentPos() && c.bounds.Pos < tree.moov.End() ||
			(c.kind == changeInsert && c.insertPos >= tree.moov.ContentPos() && c.insertPos <= tree.moov.End())
	})
	if moovDelta != 0 {
		changes = append(changes, change{kind: changeUpdateLen, level: 0, bounds: tree.moov, newLenDelta: moovDelta})
	}

	if len(changes) == 0 {
		return nil, nil
	}

	if err := addChunkOffsetUpdates(tree, &changes); err != nil {
		return nil, err
	}

	orderChanges(changes)
	return changes, nil
}

func sumLenDiff(changes []change, match func(change) bool) int64 {
	var total int64
	for _, c := range changes {
		if match(c) {
			total += c.lenDiff()
		}
	}
	return total
}

// planMetadataSubtree diffs items and the embedded chapter list, both of
// which live under udta, as one unit (§4.4.4).
func planMetadataSubtree(tree *fileTree, tag *Tag, wcfg WriteConfig) ([]change, error) {
	wantItems := len(tag.Items.Items()) > 0
	wantChpl := wcfg.Chapters.writeList() && len(tag.ChapterList.Chapters()) > 0

	hadItems := tree.udta != nil && tree.udta.meta != nil && tree.udta.meta.ilst != nil && len(tree.items) > 0
	hadChpl := tree.udta != nil && tree.udta.chpl != nil

	itemsChanged := hadItems != wantItems || !itemsEqual(tree.items, tag.Items.Items())
	chplChanged := hadChpl != wantChpl || !chaptersEqual(tree.chapterList, tag.ChapterList.Chapters())

	if !itemsChanged && !chplChanged {
		return nil, nil
	}

	st := classifyMetadataState(tree.udta != nil, wantItems || wantChpl)

	switch st {
	case stateRemove:
		return []change{{kind: changeRemove, level: 1, bounds: tree.udta.bounds}}, nil
	case stateExisting:
		return nil, nil
	}

	newUdta, err := buildUdtaAtom(tag, wantItems, wantChpl)
	if err != nil {
		return nil, err
	}

	if st == stateReplace {
		newUdta, err = absorbFreeSpace(newUdta, tree.udta.bounds.Len())
		if err != nil {
			return nil, err
		}
		return []change{{kind: changeReplace, level: 1, bounds: tree.udta.bounds, newAtom: newUdta}}, nil
	}
	return []change{{kind: changeInsert, level: 1, insertPos: tree.moov.End(), newAtom: newUdta}}, nil
}

// absorbFreeSpace implements free-space absorption (§4.4.5): if newAtom is
// at least 8 bytes smaller than oldLen, a trailing free record is appended
// padding it back out to exactly oldLen, so the replace this atom becomes
// has a zero length delta and no tail shift or chunk-offset rewrite is
// needed. Anything short of that (growth, or a shrink too small to hold a
// free record's own 8-byte head) is left alone; the replace shifts the
// tail as usual.
func absorbFreeSpace(newAtom []byte, oldLen uint64) ([]byte, error) {
	delta := int64(oldLen) - int64(len(newAtom))
	if delta < minFreeAtomLen {
		return newAtom, nil
	}

	pad, err := buildFreeAtom(uint64(delta))
	if err != nil {
		return nil, err
	}
	return append(newAtom, pad...), nil
}

// buildFreeAtom serializes a basic (non-full) free atom of exactly size
// bytes, size including its own 8-byte head.
func buildFreeAtom(size uint64) ([]byte, error) {
	var out bytes.Buffer
	head := Head{Size: Size{Len: size}, Fourcc: fourccFree}
	if err := writeHead(&out, head); err != nil {
		return nil, err
	}
	if _, err := out.Write(make([]byte, size-head.Size.HeadLen())); err != nil {
		return nil, ioErr(err, "writing free atom padding")
	}
	return out.Bytes(), nil
}

// classifyMetadataState maps the udta atom's presence before and after a
// write onto the four-state model (§4.4.1): absent-to-absent is a no-op,
// present-to-absent is a removal, present-to-present is a replace-in-place,
// and absent-to-present is an insertion.
func classifyMetadataState(hadUdta, wantUdta bool) state {
	switch {
	case !hadUdta && !wantUdta:
		return stateExisting
	case hadUdta && !wantUdta:
		return stateRemove
	case hadUdta && wantUdta:
		return stateReplace
	default:
		return stateInsert
	}
}

func itemsEqual(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Ident.Equal(b[i].Ident) || len(a[i].Data) != len(b[i].Data) {
			return false
		}
		for j := range a[i].Data {
			if a[i].Data[j].Type != b[i].Data[j].Type ||
				a[i].Data[j].Text != b[i].Data[j].Text ||
				string(a[i].Data[j].Bytes) != string(b[i].Data[j].Bytes) {
				return false
			}
		}
	}
	return true
}

func chaptersEqual(a, b []Chapter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Start != b[i].Start || a[i].Title != b[i].Title {
			return false
		}
	}
	return true
}

// addChunkOffsetUpdates emits an UpdateChunkOffsets change for every chunk
// offset table the tree knows about, provided the plan contains at least
// one other change (§4.4.3: "one UpdateChunkOffsets per table found").
func addChunkOffsetUpdates(tree *fileTree, changes *[]change) error {
	tables := collectChunkOffsetTables(tree)
	for _, t := range tables {
		*changes = append(*changes, change{
			kind:             changeUpdateChunkOffsets,
			level:            2,
			offsetTableWidth: t.width,
			offsetTablePos:   t.entriesPos,
			offsetCount:      t.count,
			bounds:           t.bounds,
		})
	}
	return nil
}

func collectChunkOffsetTables(tree *fileTree) []*chunkOffsetTable {
	var tables []*chunkOffsetTable
	for _, trak := range tree.traks {
		if trak.mdia == nil || trak.mdia.minf == nil || trak.mdia.minf.stbl == nil {
			continue
		}
		if t := trak.mdia.minf.stbl.stco; t != nil {
			tables = append(tables, t)
		}
	}
	return tables
}

// orderChanges sorts the plan in final apply order: structural changes by
// old_pos ascending, with deeper levels first at equal positions, then
// UpdateChunkOffsets entries last since they're position-independent reads
// over the whole table rather than a single contiguous range (§4.4.6).
func orderChanges(changes []change) {
	sort.SliceStable(changes, func(i, j int) bool {
		ci, cj := changes[i], changes[j]
		if ci.kind == changeUpdateChunkOffsets && cj.kind != changeUpdateChunkOffsets {
			return false
		}
		if cj.kind == changeUpdateChunkOffsets && ci.kind != changeUpdateChunkOffsets {
			return true
		}
		if ci.oldPos() != cj.oldPos() {
			return ci.oldPos() < cj.oldPos()
		}
		return ci.level > cj.level
	})
}
