package packet

// Buffer accumulates transport bytes until the scanner consumes them.
type Buffer struct {
	data []byte
}

func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Len() int {
	return len(b.data)
}

// Discard drops n bytes from the head, moving the remainder down so the
// backing array never grows past the largest burst seen.
func (b *Buffer) Discard(n int) {
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	remaining := copy(b.data, b.data[n:])
	b.data = b.data[:remaining]
}

func (b *Buffer) Reset() {
	b.data = b.data[:0]
}
