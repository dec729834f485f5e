// Package firmware implements the device side of the GPIO token dialect.
// The same responder runs on TinyGo targets and behind the simulated port.
package firmware

import (
	"errors"
	"fmt"

	"gpiolink/protocol"
)

// Responder consumes command tokens, drives the GPIO lines and answers
// read-all requests with a line-state frame
type Responder struct {
	codec  *protocol.Codec
	driver GPIODriver
	pins   []GPIOPin // index i serves protocol pin offset+i
	input  *protocol.FrameBuffer

	// Counters
	handled  uint32
	rejected uint32
}

// NewResponder configures every profile pin as a low output. A nil pin map
// uses the protocol pin number as the hardware pin number.
func NewResponder(profile protocol.Profile, driver GPIODriver, pinMap PinMap) (*Responder, error) {
	codec, err := protocol.NewCodec(profile)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, errors.New("GPIO driver cannot be nil")
	}

	r := &Responder{
		codec:  codec,
		driver: driver,
		pins:   make([]GPIOPin, 0, profile.PinCount),
		input:  protocol.NewFrameBuffer(32),
	}

	for _, id := range profile.Pins() {
		hw := GPIOPin(id)
		if pinMap != nil {
			mapped, ok := pinMap[int(id)]
			if !ok {
				return nil, fmt.Errorf("no hardware pin mapped for %s", id)
			}
			hw = mapped
		}

		if err := driver.ConfigureOutput(hw); err != nil {
			return nil, fmt.Errorf("failed to configure %s: %w", id, err)
		}
		if err := driver.SetPin(hw, false); err != nil {
			return nil, fmt.Errorf("failed to reset %s: %w", id, err)
		}
		r.pins = append(r.pins, hw)
	}

	return r, nil
}

// Handle processes received bytes and returns the reply bytes to transmit.
// Partial tokens are kept until the rest arrives; unknown tokens are dropped.
func (r *Responder) Handle(data []byte) []byte {
	r.input.Write(data)

	var reply []byte
	for !r.input.IsEmpty() {
		cmd, n, err := r.codec.Scan(r.input.Data())
		r.input.Pop(n)
		if errors.Is(err, protocol.ErrIncomplete) {
			break
		}
		if err != nil {
			r.rejected++
			continue
		}

		reply = r.execute(cmd, reply)
	}

	return reply
}

func (r *Responder) execute(cmd protocol.Command, reply []byte) []byte {
	switch cmd.Kind() {
	case protocol.KindReadAll:
		for _, hw := range r.pins {
			level, err := r.driver.GetPin(hw)
			if err == nil && level {
				reply = append(reply, protocol.SymbolHigh)
			} else {
				reply = append(reply, protocol.SymbolLow)
			}
		}
	case protocol.KindSetHigh, protocol.KindSetLow:
		hw := r.pins[int(cmd.Pin())-r.codec.Profile().PinOffset]
		if err := r.driver.SetPin(hw, cmd.Kind() == protocol.KindSetHigh); err != nil {
			r.rejected++
			return reply
		}
	}

	r.handled++
	return reply
}

// Stats returns the number of executed and rejected commands
func (r *Responder) Stats() (handled, rejected uint32) {
	return r.handled, r.rejected
}
