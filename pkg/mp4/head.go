package mp4

import (
	"encoding/binary"
	"io"
)

// headLenShort and headLenExt are the on-disk sizes of the two head forms
// (§4.1).
const (
	headLenShort = 8
	headLenExt   = 16
)

// fullHeadLen is the 4 extra bytes (1 version + 3 flags) a "full" atom head
// carries, and counts against the atom's content length (§4.1).
const fullHeadLen = 4

// Size records an atom's total on-disk length and which of the two head
// forms encodes it.
type Size struct {
	// Ext is true when the atom uses the 16-byte extended head (a 64-bit
	// trailing length), used when the atom's total length exceeds 2^32-1.
	Ext bool
	// Len is the atom's total length, head included.
	Len uint64
}

// sizeFromContentLen builds a Size for an atom whose content is contentLen
// bytes, choosing the extended head form only when required.
func sizeFromContentLen(contentLen uint64) Size {
	length := contentLen + headLenShort
	ext := length > 0xFFFFFFFF
	if ext {
		length += headLenExt - headLenShort
	}
	return Size{Ext: ext, Len: length}
}

// HeadLen returns the length of this atom's head (8 or 16 bytes).
func (s Size) HeadLen() uint64 {
	if s.Ext {
		return headLenExt
	}
	return headLenShort
}

// ContentLen returns the length of this atom's content (total length minus
// head length).
func (s Size) ContentLen() uint64 {
	return s.Len - s.HeadLen()
}

// Head is an atom's length + 4-byte type, the unit every record in the
// container begins with (§3.1).
type Head struct {
	Size   Size
	Fourcc Fourcc
}

// readHead implements the C1 read contract (§4.1).
func readHead(r io.Reader) (Head, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Head{}, ioErr(err, "reading atom head")
	}

	shortLen := binary.BigEndian.Uint32(buf[0:4])
	var fourcc Fourcc
	copy(fourcc[:], buf[4:8])

	switch {
	case shortLen == 1:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Head{}, ioErr(err, "reading extended atom length for %s", fourcc)
		}
		length := binary.BigEndian.Uint64(ext[:])
		return Head{Size: Size{Ext: true, Len: length}, Fourcc: fourcc}, nil

	case shortLen >= 2 && shortLen < 8:
		return Head{}, newErr(KindParsing, "length %d of atom %s is less than 8 bytes", shortLen, fourcc)

	default:
		return Head{Size: Size{Ext: false, Len: uint64(shortLen)}, Fourcc: fourcc}, nil
	}
}

// writeHead implements the inverse of readHead.
func writeHead(w io.Writer, h Head) error {
	if h.Size.Ext {
		var buf [16]byte
		binary.BigEndian.PutUint32(buf[0:4], 1)
		copy(buf[4:8], h.Fourcc[:])
		binary.BigEndian.PutUint64(buf[8:16], h.Size.Len)
		_, err := w.Write(buf[:])
		return ioErr(err, "writing extended atom head for %s", h.Fourcc)
	}

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.Size.Len))
	copy(buf[4:8], h.Fourcc[:])
	_, err := w.Write(buf[:])
	return ioErr(err, "writing atom head for %s", h.Fourcc)
}

// readFullHead reads the 1-byte version + 3-byte flags field that follows
// the head of a "full" atom (mvhd, tkhd, mdhd, meta, ...).
func readFullHead(r io.Reader) (version byte, flags [3]byte, err error) {
	var buf [4]byte
	if _, readErr := io.ReadFull(r, buf[:]); readErr != nil {
		return 0, flags, ioErr(readErr, "reading full atom head")
	}
	version = buf[0]
	copy(flags[:], buf[1:4])
	return version, flags, nil
}

// writeFullHead is the inverse of readFullHead.
func writeFullHead(w io.Writer, version byte, flags [3]byte) error {
	buf := [4]byte{version, flags[0], flags[1], flags[2]}
	_, err := w.Write(buf[:])
	return ioErr(err, "writing full atom head")
}

// AtomBounds is the absolute file position and size of a materialized atom,
// captured while parsing. Bounds are immutable for one read/write cycle and
// are the sole input the change planner needs to reference file records by
// (§3.2, §9: "index-based references, not raw pointers").
type AtomBounds struct {
	Pos  uint64
	Size Size
}

// ContentPos is the absolute position of the first content byte.
func (b AtomBounds) ContentPos() uint64 {
	return b.Pos + b.Size.HeadLen()
}

// End is the absolute position one past the atom's last byte.
func (b AtomBounds) End() uint64 {
	return b.Pos + b.Size.Len
}

// Len is the atom's total on-disk length, head included.
func (b AtomBounds) Len() uint64 {
	return b.Size.Len
}
