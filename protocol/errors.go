package protocol

import (
	"errors"
	"fmt"
)

// ErrIncomplete is returned by Scan when the stream ends inside a token
var ErrIncomplete = errors.New("incomplete token")

// InvalidPinError indicates a pin outside the profile's numbering range.
type InvalidPinError struct {
	Pin PinID
	Min PinID
	Max PinID
}

func (e *InvalidPinError) Error() string {
	return fmt.Sprintf("invalid pin %d: valid range is %d-%d", int(e.Pin), int(e.Min), int(e.Max))
}

// UnknownTokenError indicates bytes that do not match any token of the profile.
type UnknownTokenError struct {
	Token []byte
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown command token %q", e.Token)
}

// ProfileError indicates an unusable device profile.
type ProfileError struct {
	Profile string
	Reason  string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("profile %q: %s", e.Profile, e.Reason)
}

// IsInvalidPin returns true if err is or wraps an InvalidPinError.
func IsInvalidPin(err error) bool {
	var target *InvalidPinError
	return errors.As(err, &target)
}
