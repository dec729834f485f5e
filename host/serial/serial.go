package serial

import (
	"errors"
	"io"
	"time"
)

// Port represents an open byte-stream connection to a device.
// This abstraction allows for different implementations:
// - Native serial (github.com/tarm/serial or go.bug.st/serial)
// - Simulated device (in-memory responder)
// - Stub ports (for testing)
type Port interface {
	io.Writer

	// Close releases the device. Closing an already closed port is a no-op.
	Close() error

	// BytesAvailable returns how many received bytes can be read right now.
	// It waits at most the configured read timeout for new data.
	BytesAvailable() (int, error)

	// ReadAvailable returns the received bytes without waiting longer than
	// the read timeout. An empty result is not an error.
	ReadAvailable() ([]byte, error)
}

// Opener opens a Port for the given configuration
type Opener func(cfg Config) (Port, error)

// Driver names
const (
	DriverTarm  = "tarm"
	DriverBugst = "bugst"
	DriverSim   = "sim"
)

// Errors returned by drivers
var (
	ErrClosed            = errors.New("port closed")
	ErrUnsupportedDriver = errors.New("unsupported serial driver")
	ErrUnsupportedBaud   = errors.New("unsupported baud rate")
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate
	Baud int

	// ReadTimeout bounds how long a read waits for data (0 = driver minimum)
	ReadTimeout time.Duration

	// Driver selects the backend (tarm, bugst or sim)
	Driver string
}

// Default timing
const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// DefaultConfig returns a default configuration for the native driver
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
		Driver:      DriverTarm,
	}
}

// readAhead adapts a timeout-bounded io.Reader to the available-bytes model
type readAhead struct {
	r       io.Reader
	pending []byte
	scratch []byte
}

func newReadAhead(r io.Reader, size int) *readAhead {
	return &readAhead{
		r:       r,
		scratch: make([]byte, size),
	}
}

// fill performs one bounded read into the pending buffer
func (ra *readAhead) fill() error {
	n, err := ra.r.Read(ra.scratch)
	if n > 0 {
		ra.pending = append(ra.pending, ra.scratch[:n]...)
	}
	// tarm reports a read timeout as a zero-length EOF
	if err == io.EOF && n == 0 {
		return nil
	}
	return err
}

func (ra *readAhead) available() (int, error) {
	if len(ra.pending) == 0 {
		if err := ra.fill(); err != nil {
			return 0, err
		}
	}
	return len(ra.pending), nil
}

func (ra *readAhead) take() ([]byte, error) {
	if len(ra.pending) == 0 {
		if err := ra.fill(); err != nil {
			return nil, err
		}
	}
	out := ra.pending
	ra.pending = nil
	return out, nil
}
