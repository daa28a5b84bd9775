package mp4

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeFromContentLen(t *testing.T) {
	tests := []struct {
		name       string
		contentLen uint64
		wantExt    bool
		wantLen    uint64
	}{
		{name: "empty content", contentLen: 0, wantExt: false, wantLen: 8},
		{name: "small content", contentLen: 100, wantExt: false, wantLen: 108},
		{name: "just under 32-bit boundary", contentLen: 0xFFFFFFFF - 8, wantExt: false, wantLen: 0xFFFFFFFF},
		{name: "crosses 32-bit boundary", contentLen: 0xFFFFFFFF, wantExt: true, wantLen: 0xFFFFFFFF + 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := sizeFromContentLen(tt.contentLen)
			assert.Equal(t, tt.wantExt, size.Ext)
			assert.Equal(t, tt.wantLen, size.Len)
			assert.Equal(t, tt.contentLen, size.ContentLen())
		})
	}
}

func TestReadWriteHeadRoundTrip(t *testing.T) {
	t.Run("short form", func(t *testing.T) {
		head := Head{Size: Size{Len: 42}, Fourcc: fourccFtyp}
		var buf bytes.Buffer
		require.NoError(t, writeHead(&buf, head))
		assert.Equal(t, 8, buf.Len())

		got, err := readHead(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, head, got)
	})

	t.Run("extended form", func(t *testing.T) {
		head := Head{Size: Size{Ext: true, Len: 0x100000000}, Fourcc: fourccMdat}
		var buf bytes.Buffer
		require.NoError(t, writeHead(&buf, head))
		assert.Equal(t, 16, buf.Len())

		got, err := readHead(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, head, got)
	})
}

func TestReadHeadRejectsShortLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 4})
	buf.WriteString("free")

	_, err := readHead(&buf)
	require.Error(t, err)
	assert.True(t, Is(err, KindParsing))
}

func TestAtomBoundsDerivedFields(t *testing.T) {
	b := AtomBounds{Pos: 100, Size: Size{Len: 50}}
	assert.Equal(t, uint64(108), b.ContentPos())
	assert.Equal(t, uint64(150), b.End())
	assert.Equal(t, uint64(50), b.Len())
}

func TestReadFullHeadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFullHead(&buf, 1, [3]byte{0x01, 0x02, 0x03}))

	version, flags, err := readFullHead(&buf)
	require.NoError(t, err)
	assert.Equal(t, byte(1), version)
	assert.Equal(t, [3]byte{0x01, 0x02, 0x03}, flags)
}
