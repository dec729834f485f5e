package protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TokenTable maps every command of a profile to its wire token
type TokenTable struct {
	ReadAll string           `yaml:"read_all" json:"read_all"`
	High    map[PinID]string `yaml:"high" json:"high"`
	Low     map[PinID]string `yaml:"low" json:"low"`
}

// Profile describes one device revision's wire dialect
type Profile struct {
	Name       string     `yaml:"name" json:"name"`
	PinCount   int        `yaml:"pin_count" json:"pin_count"`
	PinOffset  int        `yaml:"pin_offset" json:"pin_offset"`
	Terminator Terminator `yaml:"terminator" json:"terminator"`
	BaudRates  []int      `yaml:"baud_rates" json:"baud_rates"`
	Tokens     TokenTable `yaml:"tokens" json:"tokens"`
}

// MinPin returns the lowest valid pin ID
func (p Profile) MinPin() PinID {
	return PinID(p.PinOffset)
}

// MaxPin returns the highest valid pin ID
func (p Profile) MaxPin() PinID {
	return PinID(p.PinOffset + p.PinCount - 1)
}

// Contains reports whether pin is inside the profile's numbering range
func (p Profile) Contains(pin PinID) bool {
	return pin >= p.MinPin() && pin <= p.MaxPin()
}

// Pins returns every pin ID of the profile in ascending order
func (p Profile) Pins() []PinID {
	pins := make([]PinID, 0, p.PinCount)
	for id := p.MinPin(); id <= p.MaxPin(); id++ {
		pins = append(pins, id)
	}
	return pins
}

// SupportsBaud reports whether baud is in the profile's rate set.
// An empty set accepts any positive rate.
func (p Profile) SupportsBaud(baud int) bool {
	if baud <= 0 {
		return false
	}
	if len(p.BaudRates) == 0 {
		return true
	}
	for _, b := range p.BaudRates {
		if b == baud {
			return true
		}
	}
	return false
}

// Validate checks that the token table is complete and unambiguous
func (p Profile) Validate() error {
	fail := func(format string, args ...any) error {
		return &ProfileError{Profile: p.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if p.PinCount < 1 {
		return fail("pin_count must be at least 1, got %d", p.PinCount)
	}
	if p.PinOffset < 0 {
		return fail("pin_offset must not be negative, got %d", p.PinOffset)
	}
	if !p.Terminator.Valid() {
		return fail("unknown terminator %q", p.Terminator)
	}

	// owner maps each token to the command that uses it
	owner := make(map[string]string)
	add := func(token, name string) error {
		if token == "" {
			return fail("%s has no token", name)
		}
		if strings.ContainsAny(token, "\r\n") {
			return fail("%s token %q contains a line terminator", name, token)
		}
		if prev, dup := owner[token]; dup {
			return fail("token %q is used by both %s and %s", token, prev, name)
		}
		owner[token] = name
		return nil
	}

	if err := add(p.Tokens.ReadAll, "ReadAll"); err != nil {
		return err
	}
	for _, pin := range p.Pins() {
		if err := add(p.Tokens.High[pin], SetPinHigh(pin).String()); err != nil {
			return err
		}
		if err := add(p.Tokens.Low[pin], SetPinLow(pin).String()); err != nil {
			return err
		}
	}
	for pin := range p.Tokens.High {
		if !p.Contains(pin) {
			return fail("high token for pin %d outside range %d-%d", int(pin), int(p.MinPin()), int(p.MaxPin()))
		}
	}
	for pin := range p.Tokens.Low {
		if !p.Contains(pin) {
			return fail("low token for pin %d outside range %d-%d", int(pin), int(p.MinPin()), int(p.MaxPin()))
		}
	}

	// Without a terminator the stream is only decodable if no token is a
	// prefix of another
	if p.Terminator == TerminatorNone {
		tokens := make([]string, 0, len(owner))
		for tok := range owner {
			tokens = append(tokens, tok)
		}
		sort.Strings(tokens)
		for i := 1; i < len(tokens); i++ {
			if strings.HasPrefix(tokens[i], tokens[i-1]) {
				return fail("token %q is a prefix of %q", tokens[i-1], tokens[i])
			}
		}
	}

	return nil
}

// ShiftedTokens builds the decimal-digit table used by the legacy firmware:
// raising pin p sends p, lowering it sends p+lowShift.
func ShiftedTokens(offset, count, lowShift int, readAll string) TokenTable {
	table := TokenTable{
		ReadAll: readAll,
		High:    make(map[PinID]string, count),
		Low:     make(map[PinID]string, count),
	}
	for i := 0; i < count; i++ {
		p := offset + i
		table.High[PinID(p)] = strconv.Itoa(p)
		table.Low[PinID(p)] = strconv.Itoa(p + lowShift)
	}
	return table
}

// Builtin profile names
const (
	ProfileReference = "reference"
	ProfileLegacy    = "legacy"
)

// ReferenceProfile returns the six-pin reference board dialect
func ReferenceProfile() Profile {
	table := TokenTable{
		ReadAll: "?",
		High:    make(map[PinID]string, 6),
		Low:     make(map[PinID]string, 6),
	}
	for i := 0; i < 6; i++ {
		table.High[PinID(i+1)] = string(rune('A' + i))
		table.Low[PinID(i+1)] = string(rune('a' + i))
	}
	return Profile{
		Name:       ProfileReference,
		PinCount:   6,
		PinOffset:  1,
		Terminator: TerminatorCRLF,
		BaudRates:  append([]int(nil), DefaultBaudRates...),
		Tokens:     table,
	}
}

// LegacyProfile returns the four-pin GP2..GP5 dialect with the +4 low encoding
func LegacyProfile() Profile {
	return Profile{
		Name:       ProfileLegacy,
		PinCount:   4,
		PinOffset:  2,
		Terminator: TerminatorNone,
		BaudRates:  append([]int(nil), DefaultBaudRates...),
		Tokens:     ShiftedTokens(2, 4, 4, "0"),
	}
}

// Profiles returns the builtin profiles keyed by name
func Profiles() map[string]Profile {
	return map[string]Profile{
		ProfileReference: ReferenceProfile(),
		ProfileLegacy:    LegacyProfile(),
	}
}

// LookupProfile returns the builtin profile with the given name
func LookupProfile(name string) (Profile, bool) {
	p, ok := Profiles()[name]
	return p, ok
}
