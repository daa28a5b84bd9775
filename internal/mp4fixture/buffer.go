package mp4fixture

import "io"

// Buffer is an in-memory io.ReadWriteSeeker (with Truncate) backing
// apply-path tests, standing in for an *os.File without touching disk.
type Buffer struct {
	data []byte
	pos  int64
}

// NewBuffer seeds a Buffer with data's contents.
func NewBuffer(data []byte) *Buffer {
	cp := append([]byte(nil), data...)
	return &Buffer{data: cp}
}

// Bytes returns the buffer's current contents.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	n := copy(b.data[b.pos:end], p)
	b.pos = end
	return n, nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = b.pos + offset
	case io.SeekEnd:
		newPos = int64(len(b.data)) + offset
	}
	if newPos < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	b.pos = newPos
	return b.pos, nil
}

// Truncate resizes the buffer to size, zero-filling if it grows.
func (b *Buffer) Truncate(size int64) error {
	if size < 0 {
		size = 0
	}
	if size <= int64(len(b.data)) {
		b.data = b.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, b.data)
	b.data = grown
	return nil
}
