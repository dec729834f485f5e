package protocol

import "testing"

func TestFrameBuffer(t *testing.T) {
	fifo := NewFrameBuffer(4)

	if !fifo.IsEmpty() {
		t.Error("New buffer should be empty")
	}

	written := fifo.Write([]byte{1, 2, 3, 4, 5})
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}

	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}

	fifo.Pop(2)
	if fifo.Available() != 3 {
		t.Errorf("After popping 2, expected 3 bytes available, got %d", fifo.Available())
	}

	data := fifo.Data()
	if len(data) != 3 || data[0] != 3 {
		t.Errorf("After popping 2, expected [3 4 5], got %v", data)
	}

	// Pop more than available drains without panicking
	fifo.Pop(10)
	if !fifo.IsEmpty() {
		t.Errorf("Expected empty buffer, got %d bytes", fifo.Available())
	}
}

func TestFrameBufferCompaction(t *testing.T) {
	fifo := NewFrameBuffer(4)

	fifo.Write([]byte{1, 2, 3})
	fifo.Pop(2)

	// Forces a compaction of the consumed prefix
	fifo.Write([]byte{4, 5, 6})

	data := fifo.Data()
	want := []byte{3, 4, 5, 6}
	if len(data) != len(want) {
		t.Fatalf("Expected %v, got %v", want, data)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("Byte %d: expected %d, got %d", i, want[i], data[i])
		}
	}
}

func TestFrameBufferReset(t *testing.T) {
	fifo := NewFrameBuffer(8)
	fifo.Write([]byte("101"))
	fifo.Reset()

	if fifo.Available() != 0 {
		t.Errorf("After reset, expected 0 available, got %d", fifo.Available())
	}

	fifo.Write([]byte("01"))
	if string(fifo.Data()) != "01" {
		t.Errorf("Expected \"01\" after reset and write, got %q", fifo.Data())
	}
}
