package protocol

// FrameBuffer is a growable FIFO that accumulates bytes across reads until
// a complete frame or token can be extracted
type FrameBuffer struct {
	buf  []byte
	read int
}

// NewFrameBuffer creates a FrameBuffer with the given initial capacity
func NewFrameBuffer(capacity int) *FrameBuffer {
	return &FrameBuffer{
		buf: make([]byte, 0, capacity),
	}
}

// Write appends data to the buffer and returns the number of bytes written
func (f *FrameBuffer) Write(data []byte) int {
	if f.read > 0 && f.read == len(f.buf) {
		// Fully drained - rewind instead of growing
		f.buf = f.buf[:0]
		f.read = 0
	} else if f.read > 0 && len(f.buf)+len(data) > cap(f.buf) {
		// Compact consumed prefix before growing
		n := copy(f.buf, f.buf[f.read:])
		f.buf = f.buf[:n]
		f.read = 0
	}
	f.buf = append(f.buf, data...)
	return len(data)
}

// Data returns the unread bytes. The slice is only valid until the next Write.
func (f *FrameBuffer) Data() []byte {
	return f.buf[f.read:]
}

// Available returns the number of unread bytes
func (f *FrameBuffer) Available() int {
	return len(f.buf) - f.read
}

// Pop removes n bytes from the front
func (f *FrameBuffer) Pop(n int) {
	if n > f.Available() {
		n = f.Available()
	}
	f.read += n
	if f.read == len(f.buf) {
		f.buf = f.buf[:0]
		f.read = 0
	}
}

// IsEmpty returns true if the buffer is empty
func (f *FrameBuffer) IsEmpty() bool {
	return f.Available() == 0
}

// Reset clears the buffer
func (f *FrameBuffer) Reset() {
	f.buf = f.buf[:0]
	f.read = 0
}
