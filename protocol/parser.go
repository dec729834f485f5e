package protocol

import "fmt"

// ResponseParser decodes fixed-width line-state frames from a byte stream
// that may arrive in arbitrary fragments. The wire has no delimiter or
// length prefix, so framing relies entirely on the profile's pin count.
type ResponseParser struct {
	width  int
	offset int
	buffer *FrameBuffer
}

// NewResponseParser creates a parser for the profile's frame width
func NewResponseParser(profile Profile) *ResponseParser {
	return &ResponseParser{
		width:  profile.PinCount,
		offset: profile.PinOffset,
		buffer: NewFrameBuffer(2 * profile.PinCount),
	}
}

// Width returns the frame width in bytes
func (p *ResponseParser) Width() int {
	return p.width
}

// Buffered returns the number of bytes waiting for a complete frame
func (p *ResponseParser) Buffered() int {
	return p.buffer.Available()
}

// Reset discards any partial frame
func (p *ResponseParser) Reset() {
	p.buffer.Reset()
}

// Feed appends data and returns a SnapshotReady event for every complete
// frame at the front of the buffer. A malformed frame produces a single
// ParseError and discards the whole buffer.
func (p *ResponseParser) Feed(data []byte) []Event {
	p.buffer.Write(data)

	var events []Event
	for p.buffer.Available() >= p.width {
		frame := p.buffer.Data()[:p.width]

		snap, err := p.decode(frame)
		if err != nil {
			events = append(events, ParseFailure(err.Error()))
			p.buffer.Reset()
			break
		}

		events = append(events, SnapshotReady(snap))
		p.buffer.Pop(p.width)
	}

	return events
}

// decode converts one frame of exactly width bytes
func (p *ResponseParser) decode(frame []byte) (Snapshot, error) {
	states := make([]PinState, len(frame))
	for i, b := range frame {
		switch b {
		case SymbolLow:
			states[i] = Low
		case SymbolHigh:
			states[i] = High
		default:
			return Snapshot{}, fmt.Errorf("malformed frame %q: byte 0x%02X at position %d is not '0' or '1'", frame, b, i)
		}
	}
	return Snapshot{Offset: p.offset, States: states}, nil
}
