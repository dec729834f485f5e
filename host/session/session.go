package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gpiolink/host/capture"
	"gpiolink/host/serial"
	"gpiolink/protocol"
)

// State is the connection state of a Session
type State int

const (
	StateClosed State = iota
	StateOpen
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session owns one byte-stream port and the parser fed from it.
//
// A Session is not safe for concurrent use. All calls are expected to come
// from a single goroutine, usually a poller.Scheduler.
type Session struct {
	cfg     Config
	profile protocol.Profile
	codec   *protocol.Codec
	parser  *protocol.ResponseParser
	log     *slog.Logger

	port      serial.Port
	device    string
	baud      int
	sessionID string

	state  State
	reason string

	// events raised outside Poll, delivered by the next Poll
	pending []protocol.Event
}

// New creates a closed session for the given device profile
func New(profile protocol.Profile, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		cfg: cfg,
		log: cfg.Logger,
	}
	if err := s.setProfile(profile); err != nil {
		return nil, err
	}
	return s, nil
}

// State returns the current connection state
func (s *Session) State() State {
	return s.state
}

// Reason returns why the session is Failed, or "" otherwise
func (s *Session) Reason() string {
	return s.reason
}

// Device returns the device of the current or last connection
func (s *Session) Device() string {
	return s.device
}

// Baud returns the baud rate of the current or last connection
func (s *Session) Baud() int {
	return s.baud
}

// SessionID returns the capture ID of the current or last connection
func (s *Session) SessionID() string {
	return s.sessionID
}

// Profile returns the active device profile
func (s *Session) Profile() protocol.Profile {
	return s.profile
}

// SetProfile switches the device profile. The session must not be open.
func (s *Session) SetProfile(profile protocol.Profile) error {
	if s.state == StateOpen {
		return ErrSessionOpen
	}
	if err := s.setProfile(profile); err != nil {
		return err
	}
	s.log.Info("profile selected", "profile", profile.Name, "pins", profile.PinCount, "offset", profile.PinOffset)
	return nil
}

func (s *Session) setProfile(profile protocol.Profile) error {
	codec, err := protocol.NewCodec(profile)
	if err != nil {
		return err
	}
	s.profile = profile
	s.codec = codec
	s.parser = protocol.NewResponseParser(profile)
	return nil
}

// Open connects to device at baud.
// On failure the session moves to Failed and no handle is kept.
func (s *Session) Open(device string, baud int) error {
	if s.state == StateOpen {
		return ErrAlreadyOpen
	}

	s.device = device
	s.baud = baud
	s.sessionID = uuid.NewString()

	if !s.profile.SupportsBaud(baud) {
		err := &ConnectError{Device: device, Baud: baud, Err: serial.ErrUnsupportedBaud}
		s.openFailed(err)
		return err
	}

	port, err := s.cfg.Opener(serial.Config{
		Device:      device,
		Baud:        baud,
		ReadTimeout: s.cfg.ReadTimeout,
		Driver:      s.cfg.Driver,
	})
	if err != nil {
		connErr := &ConnectError{Device: device, Baud: baud, Err: err}
		s.openFailed(connErr)
		return connErr
	}

	s.port = port
	s.parser.Reset()
	s.transition(StateOpen, "")
	return nil
}

func (s *Session) openFailed(err *ConnectError) {
	s.log.Warn("open failed", "device", err.Device, "baud", err.Baud, "error", err.Err)
	s.record(capture.Event{
		Direction: capture.DirectionLocal,
		Category:  capture.CategoryError,
		Error:     &capture.ErrorEvent{Kind: capture.ErrorConnection, Message: err.Error()},
	})
	s.transition(StateFailed, err.Cause())
}

// Close releases the port and discards any partial frame.
// Errors from the driver are logged, never returned.
func (s *Session) Close() {
	switch s.state {
	case StateClosed:
		return
	case StateOpen:
		s.release()
	}
	s.transition(StateClosed, "")
}

func (s *Session) release() {
	if s.port != nil {
		if err := s.port.Close(); err != nil {
			s.log.Warn("close failed", "device", s.device, "error", err)
		}
		s.port = nil
	}
	s.parser.Reset()
}

// Token returns the wire token for cmd under the active profile
func (s *Session) Token(cmd protocol.Command) (string, error) {
	return s.codec.Token(cmd)
}

// Send encodes cmd and writes it to the port
func (s *Session) Send(cmd protocol.Command) error {
	if s.state != StateOpen {
		return ErrNotConnected
	}

	token, err := s.codec.Token(cmd)
	if err != nil {
		return err
	}
	data := append([]byte(token), s.profile.Terminator.Bytes()...)

	s.record(capture.Event{
		Direction: capture.DirectionOut,
		Category:  capture.CategoryCommand,
		Command:   &capture.CommandEvent{Kind: cmd.Kind().String(), Pin: int(cmd.Pin()), Token: token},
	})

	n, err := s.port.Write(data)
	if err != nil {
		s.fault(fmt.Sprintf("write failed: %v", err))
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	if n < len(data) {
		s.fault(fmt.Sprintf("short write: %d of %d bytes", n, len(data)))
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrConnectionLost, n, len(data))
	}

	s.log.Debug("sent", "command", cmd.String(), "bytes", len(data))
	s.record(capture.Event{
		Direction: capture.DirectionOut,
		Category:  capture.CategoryTraffic,
		Frame:     &capture.FrameEvent{Size: len(data), Data: data},
	})
	return nil
}

// Poll reads whatever the device has sent and returns the resulting events.
// Events queued by an earlier failure are returned first.
func (s *Session) Poll() []protocol.Event {
	events := s.pending
	s.pending = nil

	if s.state != StateOpen {
		return events
	}

	n, err := s.port.BytesAvailable()
	if err != nil {
		s.fault(fmt.Sprintf("read failed: %v", err))
		return s.drainPending(events)
	}
	if n == 0 {
		return events
	}

	data, err := s.port.ReadAvailable()
	if err != nil {
		s.fault(fmt.Sprintf("read failed: %v", err))
		return s.drainPending(events)
	}
	if len(data) == 0 {
		return events
	}

	s.log.Debug("received", "bytes", len(data), "data", string(data))
	s.record(capture.Event{
		Direction: capture.DirectionIn,
		Category:  capture.CategoryTraffic,
		Frame:     &capture.FrameEvent{Size: len(data), Data: data},
	})
	events = append(events, protocol.DataReceived(data))

	for _, ev := range s.parser.Feed(data) {
		switch ev.Kind {
		case protocol.EventSnapshotReady:
			s.record(capture.Event{
				Direction: capture.DirectionIn,
				Category:  capture.CategorySnapshot,
				Snapshot:  &capture.SnapshotEvent{Frame: string(ev.Snapshot.Frame()), Offset: ev.Snapshot.Offset},
			})
		case protocol.EventParseError:
			s.log.Warn("parse error", "device", s.device, "error", ev.Description)
			s.record(capture.Event{
				Direction: capture.DirectionIn,
				Category:  capture.CategoryError,
				Error:     &capture.ErrorEvent{Kind: capture.ErrorParse, Message: ev.Description},
			})
		}
		events = append(events, ev)
	}

	return events
}

func (s *Session) drainPending(events []protocol.Event) []protocol.Event {
	events = append(events, s.pending...)
	s.pending = nil
	return events
}

// fault drops the connection after an I/O error
func (s *Session) fault(reason string) {
	s.log.Warn("connection fault", "device", s.device, "reason", reason)
	s.release()
	s.pending = append(s.pending, protocol.ConnectionFailure(reason))
	s.record(capture.Event{
		Direction: capture.DirectionLocal,
		Category:  capture.CategoryError,
		Error:     &capture.ErrorEvent{Kind: capture.ErrorConnection, Message: reason},
	})
	s.transition(StateFailed, reason)
}

func (s *Session) transition(to State, reason string) {
	from := s.state
	s.state = to
	s.reason = reason

	if reason != "" {
		s.log.Info("state changed", "device", s.device, "from", from.String(), "to", to.String(), "reason", reason)
	} else {
		s.log.Info("state changed", "device", s.device, "from", from.String(), "to", to.String())
	}
	s.record(capture.Event{
		Direction: capture.DirectionLocal,
		Category:  capture.CategoryState,
		StateChange: &capture.StateChangeEvent{
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}

func (s *Session) record(ev capture.Event) {
	ev.Timestamp = time.Now()
	ev.SessionID = s.sessionID
	ev.Device = s.device
	ev.Profile = s.profile.Name
	s.cfg.Capture.Log(ev)
}
