package mp4

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/rs/zerolog"
)

// apply.go implements the applier (C5, §4.5): a three-phase execution of a
// change plan against an open, seekable read-writer.
//
// Phase A (chunk-offset rewrite) and phase B (ancestor length patches) both
// patch bytes in place at their pre-apply positions. Phase C then reads the
// tail from the earliest structural change onward, after those patches, and
// writes it back at its shifted position, so any patched bytes inside that
// tail move with it. Phase C must therefore run last.

type truncater interface {
	Truncate(size int64) error
}

func applyPlan(rw io.ReadWriteSeeker, tree *fileTree, changes []change, logger zerolog.Logger) error {
	if len(changes) == 0 {
		logger.Debug().Msg("empty change plan, nothing to apply")
		return nil
	}

	fileLen, err := streamLen(rw)
	if err != nil {
		return err
	}

	structural := make([]change, 0, len(changes))
	for _, c := range changes {
		if c.kind != changeUpdateChunkOffsets && c.kind != changeUpdateLen {
			structural = append(structural, c)
		}
	}

	logger.Debug().Int("changes", len(changes)).Int("structural", len(structural)).Msg("applying change plan")

	if err := applyChunkOffsetUpdates(rw, changes, structural); err != nil {
		return err
	}
	if err := applyLengthPatches(rw, changes); err != nil {
		return err
	}
	if err := applyMediaShift(rw, fileLen, structural); err != nil {
		return err
	}

	return nil
}

// applyChunkOffsetUpdates executes phase A: every absolute offset in a
// chunk-offset table is shifted by the accumulated len_diff of every
// structural change whose old_pos is at or before it (§4.4.3).
func applyChunkOffsetUpdates(rw io.ReadWriteSeeker, changes []change, structural []change) error {
	for _, c := range changes {
		if c.kind != changeUpdateChunkOffsets {
			continue
		}
		if err := shiftChunkOffsetTable(rw, c, structural); err != nil {
			return err
		}
	}
	return nil
}

func shiftChunkOffsetTable(rw io.ReadWriteSeeker, table change, structural []change) error {
	entryLen := 4
	if table.offsetTableWidth == offsetWidth64 {
		entryLen = 8
	}

	if _, err := rw.Seek(int64(table.offsetTablePos), io.SeekStart); err != nil {
		return ioErr(err, "seeking to chunk offset table")
	}
	raw := make([]byte, int(table.offsetCount)*entryLen)
	if _, err := io.ReadFull(rw, raw); err != nil {
		return ioErr(err, "reading chunk offset table")
	}

	for i := 0; i < int(table.offsetCount); i++ {
		var o uint64
		if table.offsetTableWidth == offsetWidth64 {
			o = binary.BigEndian.Uint64(raw[i*8 : i*8+8])
		} else {
			o = uint64(binary.BigEndian.Uint32(raw[i*4 : i*4+4]))
		}

		var delta int64
		for _, c := range structural {
			if c.oldPos() <= o {
				delta += c.lenDiff()
			}
		}
		shifted := uint64(int64(o) + delta)

		if table.offsetTableWidth == offsetWidth64 {
			binary.BigEndian.PutUint64(raw[i*8:i*8+8], shifted)
		} else {
			binary.BigEndian.PutUint32(raw[i*4:i*4+4], uint32(shifted))
		}
	}

	if _, err := rw.Seek(int64(table.offsetTablePos), io.SeekStart); err != nil {
		return ioErr(err, "seeking to chunk offset table for write")
	}
	if _, err := rw.Write(raw); err != nil {
		return ioErr(err, "writing shifted chunk offset table")
	}
	return nil
}

// applyLengthPatches executes phase B: for each UpdateLen, rewrite the
// head's length field(s) with old_len + the accumulated delta from its
// subtree (§4.5 phase B).
func applyLengthPatches(rw io.ReadWriteSeeker, changes []change) error {
	for _, c := range changes {
		if c.kind != changeUpdateLen {
			continue
		}
		newLen := uint64(int64(c.bounds.Len()) + c.newLenDelta)
		if _, err := rw.Seek(int64(c.bounds.Pos), io.SeekStart); err != nil {
			return ioErr(err, "seeking to head for length patch")
		}
		head, err := readHead(rw)
		if err != nil {
			return err
		}
		if _, err := rw.Seek(int64(c.bounds.Pos), io.SeekStart); err != nil {
			return ioErr(err, "seeking to head for length patch")
		}
		// Content length is unaffected by the head's own form, so the new
		// head is derived from the same content length the old one
		// declared plus the accumulated delta; a head whose form would
		// need to change (8 <-> 16 bytes) because an atom crossed the 4 GiB
		// line is outside this engine's target file sizes and unsupported.
		newHead := Head{Size: sizeFromContentLen(newLen - head.Size.HeadLen()), Fourcc: head.Fourcc}
		if err := writeHead(rw, newHead); err != nil {
			return err
		}
	}
	return nil
}

// applyMediaShift executes phase C: buffer the tail, resize the file, and
// write each structural change's replacement bytes at its new position,
// copying forward the unaffected runs in between (§4.5 phase C).
func applyMediaShift(rw io.ReadWriteSeeker, fileLen uint64, structural []change) error {
	if len(structural) == 0 {
		return nil
	}

	earliest := structural[0].oldPos()
	for _, c := range structural {
		if c.oldPos() < earliest {
			earliest = c.oldPos()
		}
	}

	tail, err := readRange(rw, earliest, fileLen)
	if err != nil {
		return err
	}

	var totalDelta int64
	for _, c := range structural {
		totalDelta += c.lenDiff()
	}
	newFileLen := uint64(int64(fileLen) + totalDelta)

	var out bytes.Buffer
	srcPos := earliest
	for _, c := range structural {
		if c.oldPos() > srcPos {
			out.Write(tail[srcPos-earliest : c.oldPos()-earliest])
		}
		switch c.kind {
		case changeRemove:
			// write nothing
		case changeReplace, changeInsert:
			out.Write(c.newAtom)
		case changeEditMdat, changeAppendMdat:
			out.Write(c.mdatNewBytes)
		}
		srcPos = c.oldEnd()
		if srcPos < c.oldPos() {
			srcPos = c.oldPos()
		}
	}
	if srcPos < fileLen {
		out.Write(tail[srcPos-earliest:])
	}

	if _, err := rw.Seek(int64(earliest), io.SeekStart); err != nil {
		return ioErr(err, "seeking to media shift start")
	}
	if _, err := rw.Write(out.Bytes()); err != nil {
		return ioErr(err, "writing shifted media")
	}

	if t, ok := rw.(truncater); ok {
		if err := t.Truncate(int64(newFileLen)); err != nil {
			return ioErr(err, "truncating to new file length")
		}
	}

	return nil
}
