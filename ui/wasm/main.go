//go:build js && wasm

package main

import (
	"encoding/hex"
	"syscall/js"

	"gpiolink/protocol"
)

// One parser per profile; WebSerial reads arrive in arbitrary chunks
var parsers = map[string]*protocol.ResponseParser{}

func main() {
	// Export functions to JavaScript
	js.Global().Set("gpiolinkWasm", js.ValueOf(map[string]interface{}{
		"encodeCommand": js.FuncOf(encodeCommandWrapper),
		"decodeToken":   js.FuncOf(decodeTokenWrapper),
		"feedResponse":  js.FuncOf(feedResponseWrapper),
		"resetParser":   js.FuncOf(resetParserWrapper),
		"profiles":      js.FuncOf(profilesWrapper),
		"version":       protocol.Version,
	}))

	// Keep the program running
	select {}
}

func lookupProfile(name string) (protocol.Profile, string) {
	profile, ok := protocol.LookupProfile(name)
	if !ok {
		return protocol.Profile{}, "unknown profile " + name
	}
	return profile, ""
}

// encodeCommandWrapper encodes a command for the given profile
// Args: profile (string), kind ("read"|"high"|"low"), pin (number, ignored for read)
// Returns: {text: string, hex: string, error: string}
func encodeCommandWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeEncodeResult(nil, "missing profile or kind argument")
	}
	profile, errMsg := lookupProfile(args[0].String())
	if errMsg != "" {
		return makeEncodeResult(nil, errMsg)
	}

	var cmd protocol.Command
	switch args[1].String() {
	case "read":
		cmd = protocol.ReadAll()
	case "high", "low":
		if len(args) < 3 {
			return makeEncodeResult(nil, "missing pin argument")
		}
		pin := protocol.PinID(args[2].Int())
		if args[1].String() == "high" {
			cmd = protocol.SetPinHigh(pin)
		} else {
			cmd = protocol.SetPinLow(pin)
		}
	default:
		return makeEncodeResult(nil, "unknown command kind "+args[1].String())
	}

	codec, err := protocol.NewCodec(profile)
	if err != nil {
		return makeEncodeResult(nil, err.Error())
	}
	data, err := codec.Encode(cmd)
	if err != nil {
		return makeEncodeResult(nil, err.Error())
	}
	return makeEncodeResult(data, "")
}

// decodeTokenWrapper maps wire text back to a command
// Args: profile (string), text (string)
// Returns: {command: string, kind: string, pin: number, error: string}
func decodeTokenWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeDecodeResult(protocol.Command{}, "missing profile or text argument")
	}
	profile, errMsg := lookupProfile(args[0].String())
	if errMsg != "" {
		return makeDecodeResult(protocol.Command{}, errMsg)
	}

	codec, err := protocol.NewCodec(profile)
	if err != nil {
		return makeDecodeResult(protocol.Command{}, err.Error())
	}
	cmd, err := codec.Decode([]byte(args[1].String()))
	if err != nil {
		return makeDecodeResult(protocol.Command{}, err.Error())
	}
	return makeDecodeResult(cmd, "")
}

// feedResponseWrapper feeds received bytes to the profile's parser
// Args: profile (string), text (string)
// Returns: array of {kind: string, data: string, pins: {GPn: 0|1}, description: string}
func feedResponseWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf([]interface{}{})
	}
	name := args[0].String()
	profile, errMsg := lookupProfile(name)
	if errMsg != "" {
		return js.ValueOf([]interface{}{map[string]interface{}{
			"kind":        protocol.EventParseError.String(),
			"description": errMsg,
		}})
	}

	parser, ok := parsers[name]
	if !ok {
		parser = protocol.NewResponseParser(profile)
		parsers[name] = parser
	}

	data := []byte(args[1].String())
	events := append([]protocol.Event{protocol.DataReceived(data)}, parser.Feed(data)...)

	out := make([]interface{}, 0, len(events))
	for _, ev := range events {
		entry := map[string]interface{}{
			"kind":        ev.Kind.String(),
			"description": ev.Description,
		}
		switch ev.Kind {
		case protocol.EventDataReceived:
			entry["data"] = string(ev.Data)
		case protocol.EventSnapshotReady:
			pins := map[string]interface{}{}
			for _, pin := range ev.Snapshot.Pins() {
				state, _ := ev.Snapshot.State(pin)
				pins[pin.String()] = int(state)
			}
			entry["pins"] = pins
		}
		out = append(out, entry)
	}
	return js.ValueOf(out)
}

// resetParserWrapper discards a profile's partial frame (call on disconnect)
// Args: profile (string)
func resetParserWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	if parser, ok := parsers[args[0].String()]; ok {
		parser.Reset()
	}
	return nil
}

// profilesWrapper lists the builtin profiles
// Returns: array of {name, pinCount, pinOffset, terminator, baudRates}
func profilesWrapper(this js.Value, args []js.Value) interface{} {
	out := []interface{}{}
	for _, name := range []string{protocol.ProfileLegacy, protocol.ProfileReference} {
		p, _ := protocol.LookupProfile(name)
		rates := make([]interface{}, len(p.BaudRates))
		for i, r := range p.BaudRates {
			rates[i] = r
		}
		out = append(out, map[string]interface{}{
			"name":       p.Name,
			"pinCount":   p.PinCount,
			"pinOffset":  p.PinOffset,
			"terminator": string(p.Terminator),
			"baudRates":  rates,
		})
	}
	return js.ValueOf(out)
}

func makeEncodeResult(data []byte, errMsg string) js.Value {
	return js.ValueOf(map[string]interface{}{
		"text":  string(data),
		"hex":   hex.EncodeToString(data),
		"error": errMsg,
	})
}

func makeDecodeResult(cmd protocol.Command, errMsg string) js.Value {
	if errMsg != "" {
		return js.ValueOf(map[string]interface{}{"error": errMsg})
	}
	return js.ValueOf(map[string]interface{}{
		"command": cmd.String(),
		"kind":    cmd.Kind().String(),
		"pin":     int(cmd.Pin()),
		"error":   "",
	})
}
