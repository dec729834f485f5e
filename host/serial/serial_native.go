//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/tarm/serial"
)

// Open opens a hardware serial port with the configured native driver
func Open(cfg Config) (Port, error) {
	if cfg.Device == "" {
		return nil, errors.New("device path cannot be empty")
	}

	switch cfg.Driver {
	case "", DriverTarm:
		port, err := OpenNative(cfg)
		if err != nil {
			return nil, err
		}
		return port, nil
	case DriverBugst:
		port, err := OpenBugst(cfg)
		if err != nil {
			return nil, err
		}
		return port, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// Cause returns a short human-readable reason for an open failure
func Cause(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fs.ErrNotExist):
		return "device not found"
	case errors.Is(err, fs.ErrPermission):
		return "permission denied"
	case errors.Is(err, syscall.EBUSY):
		return "device busy"
	}
	if cause := bugstCause(err); cause != "" {
		return cause
	}
	return err.Error()
}

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port   *serial.Port
	cfg    Config
	ahead  *readAhead
	closed bool
}

// OpenNative opens a serial port with tarm/serial
func OpenNative(cfg Config) (*NativePort, error) {
	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &NativePort{
		port:  port,
		cfg:   cfg,
		ahead: newReadAhead(port, 256),
	}, nil
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	return p.port.Write(b)
}

// BytesAvailable returns the number of bytes ready to be read
func (p *NativePort) BytesAvailable() (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	return p.ahead.available()
}

// ReadAvailable returns the bytes received so far
func (p *NativePort) ReadAvailable() ([]byte, error) {
	if p.closed {
		return nil, ErrClosed
	}
	return p.ahead.take()
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}

var _ Port = (*NativePort)(nil)
