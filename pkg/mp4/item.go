package mp4

import (
	"bytes"
	"io"
)

// Item is a single metadata item: an identifier plus a non-empty ordered
// sequence of typed data values (§3.3). Multiple values encode multi-valued
// fields, e.g. several artists.
type Item struct {
	Ident Ident
	Data  []Data
}

// NewItem builds an Item from ident and a copy of data. It does not check
// the non-empty invariant in §3.3: called with no data values it returns an
// Item with an empty Data slice.
func NewItem(ident Ident, data ...Data) Item {
	return Item{Ident: ident, Data: append([]Data(nil), data...)}
}

// empty reports whether this item has no data values left, meaning it must
// not exist on disk (§3.3 invariant).
func (it Item) empty() bool {
	return len(it.Data) == 0
}

// serializedLen computes the length of this item's outer atom without
// writing it, needed by the change planner (§4.2).
func (it Item) serializedLen() (uint64, error) {
	var contentLen uint64
	if it.Ident.Freeform {
		meanLen := sizeFromContentLen(uint64(fullHeadLen + len(it.Ident.Mean))).Len
		nameLen := sizeFromContentLen(uint64(fullHeadLen + len(it.Ident.Name))).Len
		contentLen += meanLen + nameLen
	}
	for _, d := range it.Data {
		l, err := d.serializedLen()
		if err != nil {
			return 0, err
		}
		contentLen += l
	}
	return sizeFromContentLen(contentLen).Len, nil
}

// write serializes this item as a complete outer atom: either the item's
// own fourcc, or the `----` freeform marker with mean/name full-head
// children, followed by one `data` atom per value (§4.2).
func (it Item) write(w io.Writer) error {
	var buf bytes.Buffer

	outerFourcc := it.Ident.Fourcc
	if it.Ident.Freeform {
		outerFourcc = FourccFreeform
		if err := writeFullAtom(&buf, fourccMean, 0, [3]byte{}, []byte(it.Ident.Mean)); err != nil {
			return err
		}
		if err := writeFullAtom(&buf, fourccName, 0, [3]byte{}, []byte(it.Ident.Name)); err != nil {
			return err
		}
	}
	for _, d := range it.Data {
		if err := d.write(&buf); err != nil {
			return err
		}
	}

	size := sizeFromContentLen(uint64(buf.Len()))
	if err := writeHead(w, Head{Size: size, Fourcc: outerFourcc}); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return ioErr(err, "writing item %s", it.Ident)
}

// writeFullAtom writes a full-head child atom (version/flags + raw text
// payload), the form `mean` and `name` children use (§4.2).
func writeFullAtom(w io.Writer, fourcc Fourcc, version byte, flags [3]byte, payload []byte) error {
	size := sizeFromContentLen(uint64(fullHeadLen + len(payload)))
	if err := writeHead(w, Head{Size: size, Fourcc: fourcc}); err != nil {
		return err
	}
	if err := writeFullHead(w, version, flags); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return ioErr(err, "writing %s payload", fourcc)
}

// mergeItems appends data values onto an existing item sharing ident, or
// appends a new item, implementing the §3.3/§4.2 merge rule: items parsed
// from separate sibling records with the same identifier collapse into one.
func mergeItems(items []Item, add Item) []Item {
	for i := range items {
		if items[i].Ident.Equal(add.Ident) {
			items[i].Data = append(items[i].Data, add.Data...)
			return items
		}
	}
	return append(items, add)
}

// ItemList is an ordered, insertion-order sequence of metadata items with
// merge-on-insert semantics (§3.3, §3.6).
type ItemList struct {
	items []Item
}

// Items returns the items in insertion order. The returned slice must not
// be mutated by the caller.
func (l *ItemList) Items() []Item {
	return l.items
}

// Get returns the item with the given identifier, if any.
func (l *ItemList) Get(ident Ident) (Item, bool) {
	for _, it := range l.items {
		if it.Ident.Equal(ident) {
			return it, true
		}
	}
	return Item{}, false
}

// Set replaces all data values for ident with data, inserting a new item in
// insertion order if ident wasn't already present. Setting no data values
// removes the item, per the §3.3 invariant that an item with zero values
// must not exist.
func (l *ItemList) Set(ident Ident, data ...Data) {
	if len(data) == 0 {
		l.Remove(ident)
		return
	}
	for i := range l.items {
		if l.items[i].Ident.Equal(ident) {
			l.items[i].Data = append([]Data(nil), data...)
			return
		}
	}
	l.items = append(l.items, NewItem(ident, data...))
}

// Add appends data values to ident's existing values, or inserts a new item
// if ident isn't present yet.
func (l *ItemList) Add(ident Ident, data ...Data) {
	if len(data) == 0 {
		return
	}
	for i := range l.items {
		if l.items[i].Ident.Equal(ident) {
			l.items[i].Data = append(l.items[i].Data, data...)
			return
		}
	}
	l.items = append(l.items, NewItem(ident, data...))
}

// Remove deletes the item with the given identifier, if present, per the
// invariant that removing its last data value removes the item entirely.
func (l *ItemList) Remove(ident Ident) {
	for i := range l.items {
		if l.items[i].Ident.Equal(ident) {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// set replaces the whole list, used by the reader when populating a freshly
// parsed tag.
func (l *ItemList) set(items []Item) {
	l.items = items
}
