package protocol

import (
	"fmt"
	"strings"
)

// PinID identifies a GPIO line as numbered by the device profile
type PinID int

// String returns the GPn label used by the reference firmware
func (p PinID) String() string {
	return fmt.Sprintf("GP%d", int(p))
}

// PinState is the level of one GPIO line
type PinState uint8

const (
	Low PinState = iota
	High
)

func (s PinState) String() string {
	if s == High {
		return "High"
	}
	return "Low"
}

// Symbol returns the frame character for the state
func (s PinState) Symbol() byte {
	if s == High {
		return SymbolHigh
	}
	return SymbolLow
}

// CommandKind distinguishes the three command variants
type CommandKind uint8

const (
	KindReadAll CommandKind = iota
	KindSetHigh
	KindSetLow
)

func (k CommandKind) String() string {
	switch k {
	case KindReadAll:
		return "ReadAll"
	case KindSetHigh:
		return "SetPinHigh"
	case KindSetLow:
		return "SetPinLow"
	default:
		return "Unknown"
	}
}

// Command is an immutable request for the device. Build one with
// ReadAll, SetPinHigh or SetPinLow.
type Command struct {
	kind CommandKind
	pin  PinID
}

// ReadAll requests a full line-state snapshot
func ReadAll() Command {
	return Command{kind: KindReadAll}
}

// SetPinHigh raises pin p
func SetPinHigh(p PinID) Command {
	return Command{kind: KindSetHigh, pin: p}
}

// SetPinLow lowers pin p
func SetPinLow(p PinID) Command {
	return Command{kind: KindSetLow, pin: p}
}

// Kind returns the command variant
func (c Command) Kind() CommandKind {
	return c.kind
}

// Pin returns the target pin (zero for ReadAll)
func (c Command) Pin() PinID {
	return c.pin
}

func (c Command) String() string {
	if c.kind == KindReadAll {
		return c.kind.String()
	}
	return fmt.Sprintf("%s(%d)", c.kind, int(c.pin))
}

// Snapshot is the state of every pin decoded from one complete frame.
// Index i holds the state of PinID(Offset + i).
type Snapshot struct {
	Offset int
	States []PinState
}

// Len returns the number of pins in the snapshot
func (s Snapshot) Len() int {
	return len(s.States)
}

// Pins returns the pin IDs in ascending order
func (s Snapshot) Pins() []PinID {
	pins := make([]PinID, len(s.States))
	for i := range s.States {
		pins[i] = PinID(s.Offset + i)
	}
	return pins
}

// State returns the level of pin p
func (s Snapshot) State(p PinID) (PinState, bool) {
	i := int(p) - s.Offset
	if i < 0 || i >= len(s.States) {
		return Low, false
	}
	return s.States[i], true
}

// Clone returns a copy that does not share the state slice
func (s Snapshot) Clone() Snapshot {
	states := make([]PinState, len(s.States))
	copy(states, s.States)
	return Snapshot{Offset: s.Offset, States: states}
}

// Frame renders the snapshot back into its wire form
func (s Snapshot) Frame() []byte {
	frame := make([]byte, len(s.States))
	for i, st := range s.States {
		frame[i] = st.Symbol()
	}
	return frame
}

func (s Snapshot) String() string {
	var b strings.Builder
	for i, st := range s.States {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%s", PinID(s.Offset+i), st)
	}
	return b.String()
}

// EventKind distinguishes the events handed to the consumer
type EventKind uint8

const (
	EventDataReceived EventKind = iota
	EventSnapshotReady
	EventParseError
	EventConnectionError
)

func (k EventKind) String() string {
	switch k {
	case EventDataReceived:
		return "DataReceived"
	case EventSnapshotReady:
		return "SnapshotReady"
	case EventParseError:
		return "ParseError"
	case EventConnectionError:
		return "ConnectionError"
	default:
		return "Unknown"
	}
}

// Event is emitted by a poll tick. Data is set for DataReceived, Snapshot for
// SnapshotReady and Description for the two error kinds.
type Event struct {
	Kind        EventKind
	Data        []byte
	Snapshot    Snapshot
	Description string
}

// DataReceived wraps a copy of raw inbound bytes
func DataReceived(data []byte) Event {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Event{Kind: EventDataReceived, Data: buf}
}

// SnapshotReady wraps a decoded snapshot
func SnapshotReady(s Snapshot) Event {
	return Event{Kind: EventSnapshotReady, Snapshot: s}
}

// ParseFailure describes a discarded malformed frame
func ParseFailure(desc string) Event {
	return Event{Kind: EventParseError, Description: desc}
}

// ConnectionFailure describes an I/O fault on the connection
func ConnectionFailure(desc string) Event {
	return Event{Kind: EventConnectionError, Description: desc}
}

func (e Event) String() string {
	switch e.Kind {
	case EventDataReceived:
		return fmt.Sprintf("%s %q", e.Kind, e.Data)
	case EventSnapshotReady:
		return fmt.Sprintf("%s %s", e.Kind, e.Snapshot)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Description)
	}
}
