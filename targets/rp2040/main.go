//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"gpiolink/firmware"
	"gpiolink/protocol"
)

// profileName selects the wire dialect; override with
// -ldflags "-X main.profileName=reference"
var profileName = protocol.ProfileLegacy

var (
	responder *firmware.Responder

	// Debug counters
	bytesReceived uint32
	bytesSent     uint32
	msgerrors     uint32

	consecutiveWriteFailures uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	profile, ok := protocol.LookupProfile(profileName)
	if !ok {
		profile = protocol.LegacyProfile()
	}

	// Protocol pin GPn drives machine pin n
	responder, err = firmware.NewResponder(profile, NewRPGPIODriver(), nil)
	if err != nil {
		blinkForever()
	}

	buf := make([]byte, 64)
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
				}
			}()

			n := readUSB(buf)
			if n == 0 {
				return
			}
			bytesReceived += uint32(n)

			if reply := responder.Handle(buf[:n]); len(reply) > 0 {
				writeUSB(reply)
			}
		}()

		// Yield to other goroutines
		time.Sleep(100 * time.Microsecond)
	}
}

// readUSB copies whatever the host has sent into buf
func readUSB(buf []byte) int {
	n := 0
	for n < len(buf) && USBAvailable() > 0 {
		b, err := USBRead()
		if err != nil {
			msgerrors++
			break
		}
		buf[n] = b
		n++
	}
	return n
}

// writeUSB writes the whole reply, dropping it after repeated failures
func writeUSB(data []byte) {
	written := 0
	for written < len(data) {
		n, err := USBWriteBytes(data[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				// Host is gone; stale replies are useless
				consecutiveWriteFailures = 0
				return
			}
			time.Sleep(time.Millisecond)
			continue
		}
		written += n
	}
	consecutiveWriteFailures = 0
	bytesSent += uint32(written)
}

// blinkForever signals a firmware configuration error on the onboard LED
func blinkForever() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.Set(!led.Get())
		time.Sleep(250 * time.Millisecond)
	}
}
