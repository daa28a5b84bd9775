package mp4

import (
	"encoding/binary"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// DataType is the wire code stored in a data atom's 4-byte type field
// (§6.2).
type DataType uint32

// Recognized data-type codes (§6.2).
const (
	DataTypeReserved DataType = 0
	DataTypeUTF8     DataType = 1
	DataTypeUTF16    DataType = 2
	DataTypeJPEG     DataType = 13
	DataTypePNG      DataType = 14
	DataTypeBESigned DataType = 21
	DataTypeBMP      DataType = 27
)

// dataHeaderLen is the 4-byte type code + 4-byte locale placeholder that
// precede every typed-data payload (§3.4, §6.2).
const dataHeaderLen = 8

// Data is a tagged union over the payload kinds a metadata item's data
// atoms can carry (§3.4). Exactly one of the fields below is meaningful,
// selected by Type.
type Data struct {
	Type DataType
	// Bytes holds the raw payload for Reserved, Jpeg, Png, Bmp and
	// BeSigned variants.
	Bytes []byte
	// Text holds the decoded string for Utf8 and Utf16 variants.
	Text string
}

// Reserved builds an opaque-bytes Data value.
func Reserved(b []byte) Data { return Data{Type: DataTypeReserved, Bytes: b} }

// UTF8 builds a UTF-8 text Data value.
func UTF8(s string) Data { return Data{Type: DataTypeUTF8, Text: s} }

// UTF16 builds a UTF-16 (big-endian on disk) text Data value.
func UTF16(s string) Data { return Data{Type: DataTypeUTF16, Text: s} }

// JPEG builds a JPEG image Data value.
func JPEG(b []byte) Data { return Data{Type: DataTypeJPEG, Bytes: b} }

// PNG builds a PNG image Data value.
func PNG(b []byte) Data { return Data{Type: DataTypePNG, Bytes: b} }

// BMP builds a BMP image Data value.
func BMP(b []byte) Data { return Data{Type: DataTypeBMP, Bytes: b} }

// BESigned builds a big-endian signed integer payload Data value (used for
// tuple/pair fields such as "track N of M").
func BESigned(b []byte) Data { return Data{Type: DataTypeBESigned, Bytes: b} }

var utf16BEEncoding = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// payload returns the raw bytes that follow the 8-byte data-atom header for
// this value, per its Type.
func (d Data) payload() ([]byte, error) {
	switch d.Type {
	case DataTypeUTF8:
		if !utf8.ValidString(d.Text) {
			return nil, newErr(KindUTF8Decoding, "value is not valid UTF-8")
		}
		return []byte(d.Text), nil
	case DataTypeUTF16:
		enc, err := utf16BEEncoding.NewEncoder().String(d.Text)
		if err != nil {
			return nil, wrapErr(KindUTF16Decoding, err, "encoding UTF-16 value")
		}
		return []byte(enc), nil
	case DataTypeReserved, DataTypeJPEG, DataTypePNG, DataTypeBMP, DataTypeBESigned:
		return d.Bytes, nil
	default:
		return nil, newErr(KindUnwritableData, "data type %d has no wire form", d.Type)
	}
}

// serializedLen returns the length of the full data atom (head + 8-byte
// data header + payload) this value would serialize to, without writing.
func (d Data) serializedLen() (uint64, error) {
	payload, err := d.payload()
	if err != nil {
		return 0, err
	}
	return sizeFromContentLen(uint64(dataHeaderLen + len(payload))).Len, nil
}

// write serializes this value as a complete `data` atom.
func (d Data) write(w io.Writer) error {
	payload, err := d.payload()
	if err != nil {
		return err
	}

	size := sizeFromContentLen(uint64(dataHeaderLen + len(payload)))
	if err := writeHead(w, Head{Size: size, Fourcc: fourccData}); err != nil {
		return err
	}

	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(d.Type))
	// bytes 4:8 are the locale placeholder, left zero.
	if _, err := w.Write(header[:]); err != nil {
		return ioErr(err, "writing data atom header")
	}
	if _, err := w.Write(payload); err != nil {
		return ioErr(err, "writing data atom payload")
	}
	return nil
}

// parseData decodes a single `data` atom's content (everything after its
// head) into a typed Data value.
func parseData(content []byte) (Data, error) {
	if len(content) < dataHeaderLen {
		return Data{}, newErr(KindParsing, "data atom content of %d bytes is shorter than the 8 byte header", len(content))
	}

	typ := DataType(binary.BigEndian.Uint32(content[0:4]))
	payload := content[dataHeaderLen:]

	switch typ {
	case DataTypeReserved:
		return Reserved(cloneBytes(payload)), nil
	case DataTypeUTF8:
		if !utf8.Valid(payload) {
			return Data{}, newErr(KindUTF8Decoding, "invalid UTF-8 payload")
		}
		return UTF8(string(payload)), nil
	case DataTypeUTF16:
		s, err := utf16BEEncoding.NewDecoder().String(string(payload))
		if err != nil {
			return Data{}, wrapErr(KindUTF16Decoding, err, "decoding UTF-16 payload")
		}
		return UTF16(s), nil
	case DataTypeJPEG:
		return JPEG(cloneBytes(payload)), nil
	case DataTypePNG:
		return PNG(cloneBytes(payload)), nil
	case DataTypeBMP:
		return BMP(cloneBytes(payload)), nil
	case DataTypeBESigned:
		return BESigned(cloneBytes(payload)), nil
	default:
		return Data{}, newErr(KindUnknownDataType, "unknown data type %d", uint32(typ))
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
