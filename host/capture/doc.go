// Package capture records session traffic as a CBOR event stream.
//
// Capture is separate from operational logging: the session logs what it
// does through log/slog, and reports every byte it exchanges, every decoded
// snapshot and every state transition to a capture Logger. A FileLogger
// persists those events, and a Reader replays them with optional filtering.
//
// Each successful open of a session gets a fresh SessionID so several
// connections can share one capture file.
package capture
