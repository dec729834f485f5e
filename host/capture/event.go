package capture

import (
	"fmt"
	"strings"
	"time"
)

// Event is one captured occurrence on a session.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one open/close cycle (UUID).
	SessionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Category  Category  `cbor:"4,keyasint"`

	Device  string `cbor:"5,keyasint,omitempty"`
	Profile string `cbor:"6,keyasint,omitempty"`

	// Exactly one payload is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"`
	Snapshot    *SnapshotEvent    `cbor:"12,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEvent       `cbor:"14,keyasint,omitempty"`
}

// Direction of the captured data
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionLocal
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection converts a direction name in any case back to its value
func ParseDirection(name string) (Direction, error) {
	for d := DirectionIn; d <= DirectionLocal; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown capture direction %q", name)
}

// Category classifies the event
type Category uint8

const (
	CategoryTraffic Category = iota
	CategoryCommand
	CategorySnapshot
	CategoryState
	CategoryError
)

func (c Category) String() string {
	switch c {
	case CategoryTraffic:
		return "TRAFFIC"
	case CategoryCommand:
		return "COMMAND"
	case CategorySnapshot:
		return "SNAPSHOT"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory converts a category name in any case back to its value
func ParseCategory(name string) (Category, error) {
	for c := CategoryTraffic; c <= CategoryError; c++ {
		if strings.EqualFold(c.String(), name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown capture category %q", name)
}

// FrameEvent carries raw bytes read from or written to the port
type FrameEvent struct {
	Size int    `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint,omitempty"`
}

// CommandEvent describes an encoded command
type CommandEvent struct {
	Kind  string `cbor:"1,keyasint"`
	Pin   int    `cbor:"2,keyasint,omitempty"`
	Token string `cbor:"3,keyasint"`
}

// SnapshotEvent holds a decoded frame
type SnapshotEvent struct {
	Frame  string `cbor:"1,keyasint"`
	Offset int    `cbor:"2,keyasint"`
}

// StateChangeEvent records a session state transition
type StateChangeEvent struct {
	OldState string `cbor:"1,keyasint"`
	NewState string `cbor:"2,keyasint"`
	Reason   string `cbor:"3,keyasint,omitempty"`
}

// ErrorKind tells parse errors from connection errors
type ErrorKind uint8

const (
	ErrorParse ErrorKind = iota
	ErrorConnection
)

func (k ErrorKind) String() string {
	if k == ErrorParse {
		return "parse"
	}
	return "connection"
}

// ErrorEvent records a parse or connection error
type ErrorEvent struct {
	Kind    ErrorKind `cbor:"1,keyasint"`
	Message string    `cbor:"2,keyasint"`
}

// String renders the event on a single line for replay output
func (e Event) String() string {
	head := fmt.Sprintf("%s %-5s %-8s", e.Timestamp.Format("15:04:05.000"), e.Direction, e.Category)

	switch {
	case e.Frame != nil:
		return fmt.Sprintf("%s %d bytes %q", head, e.Frame.Size, e.Frame.Data)
	case e.Command != nil:
		if e.Command.Kind == "ReadAll" {
			return fmt.Sprintf("%s %s token=%q", head, e.Command.Kind, e.Command.Token)
		}
		return fmt.Sprintf("%s %s(%d) token=%q", head, e.Command.Kind, e.Command.Pin, e.Command.Token)
	case e.Snapshot != nil:
		return fmt.Sprintf("%s %s (offset %d)", head, e.Snapshot.Frame, e.Snapshot.Offset)
	case e.StateChange != nil:
		line := fmt.Sprintf("%s %s -> %s", head, e.StateChange.OldState, e.StateChange.NewState)
		if e.StateChange.Reason != "" {
			line += ": " + e.StateChange.Reason
		}
		if e.Device != "" {
			line += " [" + e.Device + "]"
		}
		return line
	case e.Error != nil:
		return fmt.Sprintf("%s %s: %s", head, e.Error.Kind, e.Error.Message)
	default:
		return head
	}
}
