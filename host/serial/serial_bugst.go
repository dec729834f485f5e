//go:build !wasm

package serial

import (
	"errors"
	"fmt"

	bugst "go.bug.st/serial"
)

// BugstPort wraps the go.bug.st/serial implementation
type BugstPort struct {
	port   bugst.Port
	cfg    Config
	ahead  *readAhead
	closed bool
}

// OpenBugst opens a serial port with go.bug.st/serial using 8N1 framing
func OpenBugst(cfg Config) (*BugstPort, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}

	port, err := bugst.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &BugstPort{
		port:  port,
		cfg:   cfg,
		ahead: newReadAhead(port, 256),
	}, nil
}

// Write writes data to the serial port
func (p *BugstPort) Write(b []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	return p.port.Write(b)
}

// BytesAvailable returns the number of bytes ready to be read
func (p *BugstPort) BytesAvailable() (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	return p.ahead.available()
}

// ReadAvailable returns the bytes received so far
func (p *BugstPort) ReadAvailable() ([]byte, error) {
	if p.closed {
		return nil, ErrClosed
	}
	return p.ahead.take()
}

// Close closes the serial port
func (p *BugstPort) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}

// bugstCause maps go.bug.st port error codes to readable causes
func bugstCause(err error) string {
	var code bugst.PortErrorCode
	var ptrErr *bugst.PortError
	var valErr bugst.PortError
	switch {
	case errors.As(err, &ptrErr):
		code = ptrErr.Code()
	case errors.As(err, &valErr):
		code = valErr.Code()
	default:
		return ""
	}

	switch code {
	case bugst.PortBusy:
		return "device busy"
	case bugst.PortNotFound:
		return "device not found"
	case bugst.PermissionDenied:
		return "permission denied"
	case bugst.InvalidSpeed:
		return "unsupported baud rate"
	case bugst.InvalidSerialPort:
		return "not a serial port"
	default:
		return ""
	}
}

var _ Port = (*BugstPort)(nil)
