package serial

import (
	"errors"
	"sync"

	"gpiolink/firmware"
	"gpiolink/protocol"
)

// ErrDisconnected is returned by a simulated port after Disconnect
var ErrDisconnected = errors.New("device disconnected")

// SimPort is an in-memory Port backed by a firmware responder.
// Replies are delivered at most chunk bytes per read.
type SimPort struct {
	mu           sync.Mutex
	device       string
	responder    *firmware.Responder
	chunk        int
	outbox       []byte
	closed       bool
	disconnected bool
}

// NewSimPort creates a simulated port. chunk <= 0 delivers everything in one read.
func NewSimPort(device string, responder *firmware.Responder, chunk int) *SimPort {
	return &SimPort{
		device:    device,
		responder: responder,
		chunk:     chunk,
	}
}

// Device returns the name the port was opened with
func (p *SimPort) Device() string {
	return p.device
}

func (p *SimPort) check() error {
	if p.closed {
		return ErrClosed
	}
	if p.disconnected {
		return ErrDisconnected
	}
	return nil
}

// Write hands the bytes to the responder and queues its reply
func (p *SimPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(); err != nil {
		return 0, err
	}
	if p.responder != nil {
		p.outbox = append(p.outbox, p.responder.Handle(b)...)
	}
	return len(b), nil
}

// BytesAvailable returns the number of queued reply bytes
func (p *SimPort) BytesAvailable() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(); err != nil {
		return 0, err
	}
	return len(p.outbox), nil
}

// ReadAvailable returns up to one chunk of queued reply bytes
func (p *SimPort) ReadAvailable() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(); err != nil {
		return nil, err
	}

	n := len(p.outbox)
	if p.chunk > 0 && n > p.chunk {
		n = p.chunk
	}
	if n == 0 {
		return nil, nil
	}

	out := make([]byte, n)
	copy(out, p.outbox)
	p.outbox = p.outbox[n:]
	return out, nil
}

// Inject queues raw bytes as if the device had sent them
func (p *SimPort) Inject(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outbox = append(p.outbox, data...)
}

// Disconnect makes every further operation fail as if the cable was pulled
func (p *SimPort) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = true
}

// Close releases the port. Closing twice is a no-op.
func (p *SimPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.outbox = nil
	return nil
}

// SimDevice is a simulated board whose pin levels survive reconnects
type SimDevice struct {
	Profile   protocol.Profile
	GPIO      *firmware.MemoryGPIO
	Responder *firmware.Responder
	Chunk     int

	// Last is the most recently opened port
	Last *SimPort
}

// NewSimDevice builds a responder for profile over in-memory GPIO
func NewSimDevice(profile protocol.Profile, chunk int) (*SimDevice, error) {
	gpio := firmware.NewMemoryGPIO()
	responder, err := firmware.NewResponder(profile, gpio, nil)
	if err != nil {
		return nil, err
	}
	return &SimDevice{
		Profile:   profile,
		GPIO:      gpio,
		Responder: responder,
		Chunk:     chunk,
	}, nil
}

// SetProfile reflashes the device with another profile. Pin levels reset to low.
func (d *SimDevice) SetProfile(profile protocol.Profile) error {
	gpio := firmware.NewMemoryGPIO()
	responder, err := firmware.NewResponder(profile, gpio, nil)
	if err != nil {
		return err
	}
	d.Profile = profile
	d.GPIO = gpio
	d.Responder = responder
	return nil
}

// Opener returns an Opener that connects to this device
func (d *SimDevice) Opener() Opener {
	return func(cfg Config) (Port, error) {
		if cfg.Baud <= 0 {
			return nil, ErrUnsupportedBaud
		}
		d.Last = NewSimPort(cfg.Device, d.Responder, d.Chunk)
		return d.Last, nil
	}
}

var _ Port = (*SimPort)(nil)
