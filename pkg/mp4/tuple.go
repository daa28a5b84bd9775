package mp4

import "encoding/binary"

// Tuple fields (track number/total, disc number/total) share an 8-byte
// big-endian payload under the generic BeSigned data type:
//
//	[2 bytes reserved][2 bytes number][2 bytes total][2 bytes reserved]
//
// grounded on the original implementation's trkn/disk tuple codec
// (tag/tuple.rs), adapted from its 6-byte in-memory form to the 8-byte wire
// form the scenario in spec.md §8.2 requires.
const tupleLen = 8

// tupleNumber reads the "number" half of a tuple payload, treating 0 as
// absent.
func tupleNumber(b []byte) (uint16, bool) {
	if len(b) < 4 {
		return 0, false
	}
	n := binary.BigEndian.Uint16(b[2:4])
	return n, n != 0
}

// tupleTotal reads the "total" half of a tuple payload, treating 0 as
// absent.
func tupleTotal(b []byte) (uint16, bool) {
	if len(b) < 6 {
		return 0, false
	}
	n := binary.BigEndian.Uint16(b[4:6])
	return n, n != 0
}

// newTuple builds a fresh 8-byte tuple payload.
func newTuple(number, total uint16) []byte {
	b := make([]byte, tupleLen)
	binary.BigEndian.PutUint16(b[2:4], number)
	binary.BigEndian.PutUint16(b[4:6], total)
	return b
}

// setTupleNumber updates the number half of an existing tuple payload in
// place, growing it to tupleLen first if it's shorter.
func setTupleNumber(b []byte, number uint16) []byte {
	b = growTuple(b)
	binary.BigEndian.PutUint16(b[2:4], number)
	return b
}

// setTupleTotal updates the total half of an existing tuple payload in
// place, growing it to tupleLen first if it's shorter.
func setTupleTotal(b []byte, total uint16) []byte {
	b = growTuple(b)
	binary.BigEndian.PutUint16(b[4:6], total)
	return b
}

func growTuple(b []byte) []byte {
	if len(b) >= tupleLen {
		return b
	}
	out := make([]byte, tupleLen)
	copy(out, b)
	return out
}

// tupleOf returns the tuple payload currently stored under ident, if any.
func (t *Tag) tupleOf(ident Ident) ([]byte, bool) {
	item, ok := t.Items.Get(ident)
	if !ok || len(item.Data) == 0 {
		return nil, false
	}
	return item.Data[0].Bytes, true
}

// setTuple replaces (or creates) the single BeSigned data value under ident
// with payload.
func (t *Tag) setTuple(ident Ident, payload []byte) {
	t.Items.Set(ident, BESigned(payload))
}

// TrackNumber returns the track number and total track count (`trkn`),
// either of which may be absent (zero) in the underlying payload.
func (t *Tag) TrackNumber() (number, total uint16, numberOK, totalOK bool) {
	b, ok := t.tupleOf(FourccTrackNumber)
	if !ok {
		return 0, 0, false, false
	}
	number, numberOK = tupleNumber(b)
	total, totalOK = tupleTotal(b)
	return number, total, numberOK, totalOK
}

// SetTrack sets both the track number and the total track count (`trkn`).
func (t *Tag) SetTrack(number, total uint16) {
	t.setTuple(FourccTrackNumber, newTuple(number, total))
}

// SetTrackNumber sets only the track number, preserving any existing total.
func (t *Tag) SetTrackNumber(number uint16) {
	b, ok := t.tupleOf(FourccTrackNumber)
	if !ok {
		t.setTuple(FourccTrackNumber, newTuple(number, 0))
		return
	}
	t.setTuple(FourccTrackNumber, setTupleNumber(b, number))
}

// SetTotalTracks sets only the total track count, preserving any existing
// track number.
func (t *Tag) SetTotalTracks(total uint16) {
	b, ok := t.tupleOf(FourccTrackNumber)
	if !ok {
		t.setTuple(FourccTrackNumber, newTuple(0, total))
		return
	}
	t.setTuple(FourccTrackNumber, setTupleTotal(b, total))
}

// RemoveTrack removes the track number item entirely.
func (t *Tag) RemoveTrack() {
	t.Items.Remove(FourccTrackNumber)
}

// DiscNumber returns the disc number and total disc count (`disk`), either
// of which may be absent (zero) in the underlying payload.
func (t *Tag) DiscNumber() (number, total uint16, numberOK, totalOK bool) {
	b, ok := t.tupleOf(FourccDiscNumber)
	if !ok {
		return 0, 0, false, false
	}
	number, numberOK = tupleNumber(b)
	total, totalOK = tupleTotal(b)
	return number, total, numberOK, totalOK
}

// SetDisc sets both the disc number and the total disc count (`disk`).
func (t *Tag) SetDisc(number, total uint16) {
	t.setTuple(FourccDiscNumber, newTuple(number, total))
}

// SetDiscNumber sets only the disc number, preserving any existing total.
func (t *Tag) SetDiscNumber(number uint16) {
	b, ok := t.tupleOf(FourccDiscNumber)
	if !ok {
		t.setTuple(FourccDiscNumber, newTuple(number, 0))
		return
	}
	t.setTuple(FourccDiscNumber, setTupleNumber(b, number))
}

// SetTotalDiscs sets only the total disc count, preserving any existing
// disc number.
func (t *Tag) SetTotalDiscs(total uint16) {
	b, ok := t.tupleOf(FourccDiscNumber)
	if !ok {
		t.setTuple(FourccDiscNumber, newTuple(0, total))
		return
	}
	t.setTuple(FourccDiscNumber, setTupleTotal(b, total))
}

// RemoveDisc removes the disc number item entirely.
func (t *Tag) RemoveDisc() {
	t.Items.Remove(FourccDiscNumber)
}
