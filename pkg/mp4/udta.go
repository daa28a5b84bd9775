package mp4

import (
	"bytes"
	"encoding/binary"
	"io"
)

// udta.go descends into udta/meta/ilst (items) and udta/chpl (the embedded
// Nero-style chapter list), the C2/C3 pieces concerned with metadata rather
// than track structure.

func readUdta(r io.ReadSeeker, bounds AtomBounds, cfg ReadConfig) (*udtaNode, error) {
	children, err := scanChildren(r, bounds.ContentPos(), bounds.End())
	if err != nil {
		return nil, err
	}
	udta := &udtaNode{bounds: bounds}

	if cfg.ReadMetaItems {
		if metaChild, ok := findChild(children, fourccMeta); ok {
			meta, err := readMeta(r, metaChild.bounds)
			if err != nil {
				return nil, err
			}
			udta.meta = meta
		}
	}
	if cfg.ReadChapterList {
		if chplChild, ok := findChild(children, fourccChpl); ok {
			chpl, err := readChpl(r, chplChild.bounds)
			if err != nil {
				return nil, err
			}
			udta.chpl = chpl
		}
	}

	return udta, nil
}

func readMeta(r io.ReadSeeker, bounds AtomBounds) (*metaNode, error) {
	// meta carries a 4-byte full head before its children (§4.2).
	children, err := scanChildren(r, bounds.ContentPos()+fullHeadLen, bounds.End())
	if err != nil {
		return nil, err
	}
	meta := &metaNode{bounds: bounds}

	if hdlrChild, ok := findChild(children, fourccHdlr); ok {
		b := hdlrChild.bounds
		meta.hdlr = &b
	}
	if ilstChild, ok := findChild(children, fourccIlst); ok {
		ilst, err := readIlst(r, ilstChild.bounds)
		if err != nil {
			return nil, err
		}
		meta.ilst = ilst
	}

	return meta, nil
}

func readIlst(r io.ReadSeeker, bounds AtomBounds) (*ilstNode, error) {
	children, err := scanChildren(r, bounds.ContentPos(), bounds.End())
	if err != nil {
		return nil, err
	}
	ilst := &ilstNode{bounds: bounds}

	for _, c := range children {
		item, err := readItemAtom(r, c)
		if err != nil {
			return nil, err
		}
		ilst.itemRecords = append(ilst.itemRecords, itemRecord{bounds: c.bounds, item: item})
	}

	return ilst, nil
}

// readItemAtom parses a single metadata item record (§4.2): either the
// freeform marker with mean/name children, or a direct fourcc identifier,
// followed by one or more `data` children.
func readItemAtom(r io.ReadSeeker, rec childRange) (Item, error) {
	children, err := scanChildren(r, rec.bounds.ContentPos(), rec.bounds.End())
	if err != nil {
		return Item{}, err
	}

	var ident Ident
	if rec.head.Fourcc == fourccFreeform {
		mean, err := readFullAtomText(r, children, fourccMean)
		if err != nil {
			return Item{}, err
		}
		name, err := readFullAtomText(r, children, fourccName)
		if err != nil {
			return Item{}, err
		}
		ident = FreeformIdent(mean, name)
	} else {
		ident = FourccIdent(rec.head.Fourcc)
	}

	var values []Data
	for _, c := range children {
		if c.head.Fourcc != fourccData {
			continue
		}
		content, err := readRange(r, c.bounds.ContentPos(), c.bounds.End())
		if err != nil {
			return Item{}, err
		}
		d, err := parseData(content)
		if err != nil {
			return Item{}, err
		}
		values = append(values, d)
	}

	return Item{Ident: ident, Data: values}, nil
}

func readFullAtomText(r io.ReadSeeker, children []childRange, fourcc Fourcc) (string, error) {
	c, ok := findChild(children, fourcc)
	if !ok {
		return "", nil
	}
	if _, err := r.Seek(int64(c.bounds.ContentPos()), io.SeekStart); err != nil {
		return "", ioErr(err, "seeking to %s content", fourcc)
	}
	if _, _, err := readFullHead(r); err != nil {
		return "", err
	}
	payloadLen := c.bounds.End() - (c.bounds.ContentPos() + fullHeadLen)
	buf := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ioErr(err, "reading %s payload", fourcc)
	}
	return string(buf), nil
}

func readRange(r io.ReadSeeker, start, end uint64) ([]byte, error) {
	if _, err := r.Seek(int64(start), io.SeekStart); err != nil {
		return nil, ioErr(err, "seeking to %d", start)
	}
	buf := make([]byte, end-start)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ioErr(err, "reading range [%d,%d)", start, end)
	}
	return buf, nil
}

// readChpl parses the embedded Nero-style chapter list (§6.5/original
// chpl layout): a full head, an entry count byte, then per entry an 8-byte
// big-endian start time in 100ns units followed by a 1-byte title length and
// the title bytes.
func readChpl(r io.ReadSeeker, bounds AtomBounds) (*chplNode, error) {
	if _, err := r.Seek(int64(bounds.ContentPos()), io.SeekStart); err != nil {
		return nil, ioErr(err, "seeking to chpl content")
	}
	if _, _, err := readFullHead(r); err != nil {
		return nil, err
	}
	var countBuf [1]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, ioErr(err, "reading chpl entry count")
	}

	chpl := &chplNode{bounds: bounds}
	for i := 0; i < int(countBuf[0]); i++ {
		var head [9]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return nil, ioErr(err, "reading chpl entry %d header", i)
		}
		start := binary.BigEndian.Uint64(head[0:8])
		titleLen := int(head[8])
		title := make([]byte, titleLen)
		if _, err := io.ReadFull(r, title); err != nil {
			return nil, ioErr(err, "reading chpl entry %d title", i)
		}
		chpl.entries = append(chpl.entries, Chapter{
			Start: chplTimeToDuration(start),
			Title: string(title),
		})
	}

	return chpl, nil
}

// buildUdtaAtom serializes a complete udta atom from tag's current items
// and/or chapter list, per the caller's want flags.
func buildUdtaAtom(tag *Tag, wantItems, wantChpl bool) ([]byte, error) {
	var content bytes.Buffer

	if wantItems {
		metaBytes, err := buildMetaAtom(tag.Items.Items())
		if err != nil {
			return nil, err
		}
		if _, err := content.Write(metaBytes); err != nil {
			return nil, ioErr(err, "writing meta atom")
		}
	}
	if wantChpl {
		chplBytes, err := buildChplAtom(tag.ChapterList.Chapters())
		if err != nil {
			return nil, err
		}
		if _, err := content.Write(chplBytes); err != nil {
			return nil, ioErr(err, "writing chpl atom")
		}
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccUdta}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing udta content")
	}
	return out.Bytes(), nil
}

// buildMetaAtom serializes a complete meta atom: full head, the iTunes
// metadata handler, then the ilst item list.
func buildMetaAtom(items []Item) ([]byte, error) {
	var content bytes.Buffer
	if err := writeFullHead(&content, 0, [3]byte{}); err != nil {
		return nil, err
	}

	hdlrBytes, err := buildMetaHdlrAtom()
	if err != nil {
		return nil, err
	}
	if _, err := content.Write(hdlrBytes); err != nil {
		return nil, ioErr(err, "writing meta hdlr atom")
	}

	ilstBytes, err := buildIlstAtom(items)
	if err != nil {
		return nil, err
	}
	if _, err := content.Write(ilstBytes); err != nil {
		return nil, ioErr(err, "writing ilst atom")
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccMeta}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing meta content")
	}
	return out.Bytes(), nil
}

// buildMetaHdlrAtom serializes the fixed iTunes metadata handler record:
// full head, 4-byte predefined, 4-byte handler type "mdir", 4-byte
// manufacturer "appl", then 8 zero bytes (the rest of the reserved field);
// the name is empty and no terminator byte is written.
func buildMetaHdlrAtom() ([]byte, error) {
	var content bytes.Buffer
	if err := writeFullHead(&content, 0, [3]byte{}); err != nil {
		return nil, err
	}
	var fixed [20]byte
	copy(fixed[4:8], "mdir")
	copy(fixed[8:12], "appl")
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

// buildIlstAtom serializes a complete ilst atom from the given items.
func buildIlstAtom(items []Item) ([]byte, error) {
	var content bytes.Buffer
	for _, it := range items {
		if it.empty() {
			continue
		}
		if err := it.write(&content); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	size := sizeFromContentLen(uint64(content.Len()))
	if err := writeHead(&out, Head{Size: size, Fourcc: fourccIlst}); err != nil {
		return nil, err
	}
	if _, err := out.Write(content.Bytes()); err != nil {
		return nil, ioErr(err, "writing ilst content")
	}
	return out.Bytes(), nil
}
