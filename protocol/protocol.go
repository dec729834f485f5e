// Package protocol implements the GPIO line-state wire dialect: command tokens,
// device profiles and the fixed-width response frame parser.
package protocol

import (
	"fmt"
	"strings"
)

// Version represents the gpiolink protocol package version
const Version = "0.1.0"

// Response frame symbols
const (
	SymbolLow  = '0'
	SymbolHigh = '1'
)

// Line terminators
const (
	TerminatorNone Terminator = ""
	TerminatorCRLF Terminator = "crlf"
)

// crlf is the byte form of TerminatorCRLF
var crlf = []byte{'\r', '\n'}

// Baud rates offered by the reference device
var DefaultBaudRates = []int{9600, 38400, 57600, 115200}

// Terminator selects the optional line ending appended to encoded commands
type Terminator string

// Bytes returns the terminator suffix (nil for none)
func (t Terminator) Bytes() []byte {
	if t == TerminatorCRLF {
		return crlf
	}
	return nil
}

// Valid reports whether t is a known terminator
func (t Terminator) Valid() bool {
	return t == TerminatorNone || t == TerminatorCRLF
}

// ParseTerminator accepts "none" or "crlf" in any case; "" means none
func ParseTerminator(name string) (Terminator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return TerminatorNone, nil
	case "crlf":
		return TerminatorCRLF, nil
	default:
		return TerminatorNone, fmt.Errorf("unknown terminator %q (want none or crlf)", name)
	}
}

// UnmarshalText lets config files spell the terminator None, none, CRLF or crlf
func (t *Terminator) UnmarshalText(text []byte) error {
	parsed, err := ParseTerminator(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
