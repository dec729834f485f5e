package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

// Codec translates commands to and from the token vocabulary of one profile.
// It holds no mutable state and may be shared.
type Codec struct {
	profile  Profile
	reverse  map[string]Command
	maxToken int
}

// NewCodec validates the profile and builds its reverse lookup table
func NewCodec(profile Profile) (*Codec, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	c := &Codec{
		profile: profile,
		reverse: make(map[string]Command, 2*profile.PinCount+1),
	}
	c.index(profile.Tokens.ReadAll, ReadAll())
	for _, pin := range profile.Pins() {
		c.index(profile.Tokens.High[pin], SetPinHigh(pin))
		c.index(profile.Tokens.Low[pin], SetPinLow(pin))
	}

	return c, nil
}

func (c *Codec) index(token string, cmd Command) {
	c.reverse[token] = cmd
	if len(token) > c.maxToken {
		c.maxToken = len(token)
	}
}

// Profile returns the profile the codec was built from
func (c *Codec) Profile() Profile {
	return c.profile
}

// Token returns the bare token for cmd, without terminator
func (c *Codec) Token(cmd Command) (string, error) {
	switch cmd.Kind() {
	case KindReadAll:
		return c.profile.Tokens.ReadAll, nil
	case KindSetHigh, KindSetLow:
		if !c.profile.Contains(cmd.Pin()) {
			return "", &InvalidPinError{Pin: cmd.Pin(), Min: c.profile.MinPin(), Max: c.profile.MaxPin()}
		}
		if cmd.Kind() == KindSetHigh {
			return c.profile.Tokens.High[cmd.Pin()], nil
		}
		return c.profile.Tokens.Low[cmd.Pin()], nil
	default:
		return "", fmt.Errorf("unsupported command kind %d", cmd.Kind())
	}
}

// Encode returns the exact bytes to transmit for cmd
func (c *Codec) Encode(cmd Command) ([]byte, error) {
	token, err := c.Token(cmd)
	if err != nil {
		return nil, err
	}

	term := c.profile.Terminator.Bytes()
	out := make([]byte, 0, len(token)+len(term))
	out = append(out, token...)
	out = append(out, term...)
	return out, nil
}

// Decode maps one encoded command back to its Command. A trailing
// terminator is accepted whether or not the profile uses one.
func (c *Codec) Decode(data []byte) (Command, error) {
	token := strings.TrimSuffix(string(data), string(crlf))
	cmd, ok := c.reverse[token]
	if !ok {
		return Command{}, &UnknownTokenError{Token: []byte(token)}
	}
	return cmd, nil
}

// Scan extracts the next command from the front of a byte stream. It returns
// the number of bytes consumed, which is non-zero for skipped blank lines and
// unknown tokens even when err is set. ErrIncomplete means more input is
// needed before anything further can be decided.
func (c *Codec) Scan(stream []byte) (Command, int, error) {
	if c.profile.Terminator == TerminatorCRLF {
		return c.scanLine(stream)
	}
	return c.scanPrefix(stream)
}

func (c *Codec) scanLine(stream []byte) (Command, int, error) {
	skipped := 0
	for bytes.HasPrefix(stream[skipped:], crlf) {
		skipped += len(crlf)
	}
	rest := stream[skipped:]

	idx := bytes.Index(rest, crlf)
	if idx < 0 {
		// A runaway line can never become a token; drop all but a possible
		// half terminator
		if len(rest) > c.maxToken+1 {
			n := len(rest) - 1
			return Command{}, skipped + n, &UnknownTokenError{Token: append([]byte(nil), rest[:n]...)}
		}
		return Command{}, skipped, ErrIncomplete
	}

	n := skipped + idx + len(crlf)
	cmd, ok := c.reverse[string(rest[:idx])]
	if !ok {
		return Command{}, n, &UnknownTokenError{Token: append([]byte(nil), rest[:idx]...)}
	}
	return cmd, n, nil
}

func (c *Codec) scanPrefix(stream []byte) (Command, int, error) {
	if len(stream) == 0 {
		return Command{}, 0, ErrIncomplete
	}

	// Tokens are prefix-free, so the first match is the only match
	limit := min(len(stream), c.maxToken)
	for l := 1; l <= limit; l++ {
		if cmd, ok := c.reverse[string(stream[:l])]; ok {
			return cmd, l, nil
		}
	}

	if len(stream) < c.maxToken {
		for token := range c.reverse {
			if strings.HasPrefix(token, string(stream)) {
				return Command{}, 0, ErrIncomplete
			}
		}
	}

	return Command{}, 1, &UnknownTokenError{Token: []byte{stream[0]}}
}
