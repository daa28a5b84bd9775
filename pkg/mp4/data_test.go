package mp4

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataWriteParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data Data
	}{
		{name: "utf8", data: UTF8("Hello, World")},
		{name: "utf8 empty", data: UTF8("")},
		{name: "utf8 non-ascii", data: UTF8("café あいう")},
		{name: "utf16", data: UTF16("résumé")},
		{name: "jpeg", data: JPEG([]byte{0xFF, 0xD8, 0xFF, 0xE0})},
		{name: "png", data: PNG([]byte{0x89, 'P', 'N', 'G'})},
		{name: "bmp", data: BMP([]byte{'B', 'M', 0x01})},
		{name: "be signed", data: BESigned([]byte{0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x08})},
		{name: "reserved", data: Reserved([]byte{0xDE, 0xAD, 0xBE, 0xEF})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.data.write(&buf))

			head, err := readHead(&buf)
			require.NoError(t, err)
			assert.Equal(t, fourccData, head.Fourcc)

			content := make([]byte, head.Size.ContentLen())
			_, err = buf.Read(content)
			require.NoError(t, err)

			got, err := parseData(content)
			require.NoError(t, err)
			assert.Equal(t, tt.data.Type, got.Type)
			assert.Equal(t, tt.data.Text, got.Text)
			assert.Equal(t, tt.data.Bytes, got.Bytes)
		})
	}
}

func TestParseDataRejectsShortContent(t *testing.T) {
	_, err := parseData([]byte{0, 0, 0, 1})
	require.Error(t, err)
	assert.True(t, Is(err, KindParsing))
}

func TestParseDataRejectsUnknownType(t *testing.T) {
	content := make([]byte, dataHeaderLen)
	content[3] = 0xFF
	_, err := parseData(content)
	require.Error(t, err)
	assert.True(t, Is(err, KindUnknownDataType))
}

func TestParseDataRejectsInvalidUTF8(t *testing.T) {
	content := make([]byte, dataHeaderLen)
	content[3] = byte(DataTypeUTF8)
	content = append(content, 0xFF, 0xFE)
	_, err := parseData(content)
	require.Error(t, err)
	assert.True(t, Is(err, KindUTF8Decoding))
}

func TestDataSerializedLenMatchesWrite(t *testing.T) {
	d := UTF8("a sample title")
	l, err := d.serializedLen()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, d.write(&buf))
	assert.Equal(t, int(l), buf.Len())
}
