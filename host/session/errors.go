package session

import (
	"errors"
	"fmt"

	"gpiolink/host/serial"
)

var (
	// ErrAlreadyOpen is returned by Open while a connection is open.
	ErrAlreadyOpen = errors.New("session already open")

	// ErrNotConnected is returned by Send unless the session is open.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionLost is returned when a write fault drops the connection.
	ErrConnectionLost = errors.New("connection lost")

	// ErrSessionOpen is returned when the profile is changed on an open session.
	ErrSessionOpen = errors.New("cannot change profile while session is open")
)

// ConnectError indicates that the port could not be opened.
type ConnectError struct {
	Device string
	Baud   int
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("cannot open %s at %d baud: %s", e.Device, e.Baud, e.Cause())
}

// Cause returns a human-readable reason for the failure.
func (e *ConnectError) Cause() string {
	if errors.Is(e.Err, serial.ErrUnsupportedBaud) {
		return serial.ErrUnsupportedBaud.Error()
	}
	return serial.Cause(e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
