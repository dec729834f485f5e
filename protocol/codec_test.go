package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func mustCodec(t *testing.T, profile Profile) *Codec {
	t.Helper()
	codec, err := NewCodec(profile)
	if err != nil {
		t.Fatalf("NewCodec(%s) failed: %v", profile.Name, err)
	}
	return codec
}

func allCommands(profile Profile) []Command {
	cmds := []Command{ReadAll()}
	for _, pin := range profile.Pins() {
		cmds = append(cmds, SetPinHigh(pin), SetPinLow(pin))
	}
	return cmds
}

func TestEncodeInjective(t *testing.T) {
	for _, profile := range Profiles() {
		codec := mustCodec(t, profile)

		seen := make(map[string]Command)
		for _, cmd := range allCommands(profile) {
			wire, err := codec.Encode(cmd)
			if err != nil {
				t.Errorf("[%s] Encode(%s) failed: %v", profile.Name, cmd, err)
				continue
			}
			if prev, dup := seen[string(wire)]; dup {
				t.Errorf("[%s] %s and %s both encode to %q", profile.Name, prev, cmd, wire)
			}
			seen[string(wire)] = cmd
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, profile := range Profiles() {
		codec := mustCodec(t, profile)

		for _, cmd := range allCommands(profile) {
			wire, err := codec.Encode(cmd)
			if err != nil {
				t.Fatalf("[%s] Encode(%s) failed: %v", profile.Name, cmd, err)
			}

			decoded, err := codec.Decode(wire)
			if err != nil {
				t.Errorf("[%s] Decode(%q) failed: %v", profile.Name, wire, err)
				continue
			}
			if decoded != cmd {
				t.Errorf("[%s] Round trip mismatch: %s -> %q -> %s", profile.Name, cmd, wire, decoded)
			}
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	codec := mustCodec(t, ReferenceProfile())

	first, _ := codec.Encode(SetPinHigh(4))
	second, _ := codec.Encode(SetPinHigh(4))
	if !bytes.Equal(first, second) {
		t.Errorf("Encode is not deterministic: %q vs %q", first, second)
	}
}

func TestEncodeTerminator(t *testing.T) {
	ref := mustCodec(t, ReferenceProfile())
	wire, err := ref.Encode(ReadAll())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(wire) != "?\r\n" {
		t.Errorf("Expected %q, got %q", "?\r\n", wire)
	}

	bare := ReferenceProfile()
	bare.Terminator = TerminatorNone
	codec := mustCodec(t, bare)
	wire, _ = codec.Encode(ReadAll())
	if string(wire) != "?" {
		t.Errorf("Expected %q without terminator, got %q", "?", wire)
	}

	// Terminator is framing only: the bare token is the same
	refToken, _ := ref.Token(SetPinLow(2))
	bareToken, _ := codec.Token(SetPinLow(2))
	if refToken != bareToken {
		t.Errorf("Terminator changed token identity: %q vs %q", refToken, bareToken)
	}
}

func TestEncodeLegacyLowShift(t *testing.T) {
	codec := mustCodec(t, LegacyProfile())

	low, err := codec.Encode(SetPinLow(3))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// Legacy rule: lowering pin p reuses the raise token of index p+4
	if string(low) != "7" {
		t.Errorf("Expected SetPinLow(3) to encode as %q, got %q", "7", low)
	}

	high, _ := codec.Encode(SetPinHigh(3))
	if string(high) != "3" {
		t.Errorf("Expected SetPinHigh(3) to encode as %q, got %q", "3", high)
	}
	if bytes.Equal(low, high) {
		t.Error("Low and high tokens must differ")
	}
}

func TestEncodeInvalidPin(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		cmd     Command
	}{
		{"reference below range", ReferenceProfile(), SetPinHigh(0)},
		{"reference above range", ReferenceProfile(), SetPinLow(7)},
		{"legacy pin 1", LegacyProfile(), SetPinHigh(1)},
		{"legacy pin 6", LegacyProfile(), SetPinLow(6)},
		{"negative pin", LegacyProfile(), SetPinHigh(-3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := mustCodec(t, tt.profile)
			wire, err := codec.Encode(tt.cmd)
			if err == nil {
				t.Fatalf("Expected error, got %q", wire)
			}

			var pinErr *InvalidPinError
			if !errors.As(err, &pinErr) {
				t.Fatalf("Expected InvalidPinError, got %T: %v", err, err)
			}
			if pinErr.Pin != tt.cmd.Pin() {
				t.Errorf("Expected error for pin %d, got %d", tt.cmd.Pin(), pinErr.Pin)
			}
			if wire != nil {
				t.Errorf("Expected no bytes on error, got %q", wire)
			}
		})
	}
}

func TestDecodeUnknownToken(t *testing.T) {
	codec := mustCodec(t, LegacyProfile())

	_, err := codec.Decode([]byte("x"))
	var tokErr *UnknownTokenError
	if !errors.As(err, &tokErr) {
		t.Fatalf("Expected UnknownTokenError, got %v", err)
	}
	if string(tokErr.Token) != "x" {
		t.Errorf("Expected token %q, got %q", "x", tokErr.Token)
	}
}

func TestScanPrefixStream(t *testing.T) {
	codec := mustCodec(t, LegacyProfile())

	stream := []byte("2x70")
	var got []Command
	var unknown int

	for len(stream) > 0 {
		cmd, n, err := codec.Scan(stream)
		if errors.Is(err, ErrIncomplete) {
			break
		}
		stream = stream[n:]
		if err != nil {
			unknown++
			continue
		}
		got = append(got, cmd)
	}

	want := []Command{SetPinHigh(2), SetPinLow(3), ReadAll()}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Command %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if unknown != 1 {
		t.Errorf("Expected 1 unknown token, got %d", unknown)
	}
}

func TestScanMultiByteTokenIncomplete(t *testing.T) {
	profile := Profile{
		Name:      "wide",
		PinCount:  1,
		PinOffset: 1,
		Tokens: TokenTable{
			ReadAll: "RD",
			High:    map[PinID]string{1: "H1"},
			Low:     map[PinID]string{1: "L1"},
		},
	}
	codec := mustCodec(t, profile)

	_, n, err := codec.Scan([]byte("H"))
	if !errors.Is(err, ErrIncomplete) || n != 0 {
		t.Fatalf("Expected ErrIncomplete with 0 consumed, got n=%d err=%v", n, err)
	}

	cmd, n, err := codec.Scan([]byte("H1RD"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if cmd != SetPinHigh(1) || n != 2 {
		t.Errorf("Expected SetPinHigh(1) consuming 2, got %s consuming %d", cmd, n)
	}
}

func TestScanLineStream(t *testing.T) {
	codec := mustCodec(t, ReferenceProfile())

	cmd, n, err := codec.Scan([]byte("\r\nB\r\n?"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if cmd != SetPinHigh(2) {
		t.Errorf("Expected SetPinHigh(2), got %s", cmd)
	}
	if n != 5 {
		t.Errorf("Expected 5 bytes consumed, got %d", n)
	}

	_, n, err = codec.Scan([]byte("?"))
	if !errors.Is(err, ErrIncomplete) || n != 0 {
		t.Errorf("Expected ErrIncomplete for unterminated token, got n=%d err=%v", n, err)
	}

	_, n, err = codec.Scan([]byte("zz\r\n"))
	var tokErr *UnknownTokenError
	if !errors.As(err, &tokErr) || n != 4 {
		t.Errorf("Expected unknown token consuming 4, got n=%d err=%v", n, err)
	}

	_, n, err = codec.Scan([]byte("garbage-line"))
	if !errors.As(err, &tokErr) || n != len("garbage-line")-1 {
		t.Errorf("Expected runaway line to be dropped, got n=%d err=%v", n, err)
	}
}
