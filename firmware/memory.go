package firmware

import "fmt"

// MemoryGPIO is an in-memory GPIODriver used by the simulated device and tests
type MemoryGPIO struct {
	levels     map[GPIOPin]bool
	configured map[GPIOPin]bool
}

// NewMemoryGPIO creates a driver with every pin low and unconfigured
func NewMemoryGPIO() *MemoryGPIO {
	return &MemoryGPIO{
		levels:     make(map[GPIOPin]bool),
		configured: make(map[GPIOPin]bool),
	}
}

// ConfigureOutput marks pin as an output
func (m *MemoryGPIO) ConfigureOutput(pin GPIOPin) error {
	m.configured[pin] = true
	return nil
}

// SetPin sets the level of a configured pin
func (m *MemoryGPIO) SetPin(pin GPIOPin, value bool) error {
	if !m.configured[pin] {
		return fmt.Errorf("gpio%d is not configured as output", pin)
	}
	m.levels[pin] = value
	return nil
}

// GetPin returns the level of pin (low if never set)
func (m *MemoryGPIO) GetPin(pin GPIOPin) (bool, error) {
	return m.levels[pin], nil
}

// Drive forces a pin level from outside, as an external circuit would
func (m *MemoryGPIO) Drive(pin GPIOPin, value bool) {
	m.levels[pin] = value
}

var _ GPIODriver = (*MemoryGPIO)(nil)
