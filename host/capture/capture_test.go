package capture

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	events []Event
}

func (r *recordingLogger) Log(e Event) {
	r.events = append(r.events, e)
}

func sampleEvents(base time.Time) []Event {
	return []Event{
		{
			Timestamp: base,
			SessionID: "sess-a",
			Direction: DirectionLocal,
			Category:  CategoryState,
			Device:    "/dev/ttyACM0",
			StateChange: &StateChangeEvent{
				OldState: "Closed",
				NewState: "Open",
			},
		},
		{
			Timestamp: base.Add(time.Millisecond),
			SessionID: "sess-a",
			Direction: DirectionOut,
			Category:  CategoryCommand,
			Command:   &CommandEvent{Kind: "SetPinHigh", Pin: 3, Token: "3"},
		},
		{
			Timestamp: base.Add(2 * time.Millisecond),
			SessionID: "sess-b",
			Direction: DirectionIn,
			Category:  CategoryTraffic,
			Frame:     &FrameEvent{Size: 4, Data: []byte("1010")},
		},
		{
			Timestamp: base.Add(3 * time.Millisecond),
			SessionID: "sess-b",
			Direction: DirectionIn,
			Category:  CategorySnapshot,
			Snapshot:  &SnapshotEvent{Frame: "1010", Offset: 2},
		},
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	event := sampleEvents(time.Now())[1]

	data, err := EncodeEvent(event)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)

	assert.True(t, event.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, event.SessionID, decoded.SessionID)
	assert.Equal(t, event.Command, decoded.Command)
	assert.Nil(t, decoded.Frame)
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cap")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range sampleEvents(base) {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	// logging after close is ignored
	logger.Log(Event{SessionID: "late"})

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var got []Event
	for {
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, e)
	}

	require.Len(t, got, 4)
	assert.Equal(t, "Open", got[0].StateChange.NewState)
	assert.Equal(t, []byte("1010"), got[2].Frame.Data)
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cap")
	events := sampleEvents(time.Now())

	for _, e := range events[:2] {
		logger, err := NewFileLogger(path)
		require.NoError(t, err)
		logger.Log(e)
		require.NoError(t, logger.Close())
	}

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestFileLoggerCountsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cap")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	events := sampleEvents(time.Now())
	logger.Log(events[0])
	n, lastErr := logger.Dropped()
	assert.Equal(t, 0, n)
	assert.NoError(t, lastErr)

	// pull the file out from under the logger
	require.NoError(t, logger.file.Close())
	logger.Log(events[1])
	logger.Log(events[2])

	n, lastErr = logger.Dropped()
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, lastErr, os.ErrClosed)

	huge := events[2]
	huge.Frame = &FrameEvent{Size: maxRecord + 1, Data: make([]byte, maxRecord+1)}
	_, err = EncodeEvent(huge)
	assert.ErrorContains(t, err, "exceeds")
}

func TestReaderTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cap")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range sampleEvents(time.Now()) {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0644))

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	for i := 0; i < 3; i++ {
		_, err := reader.Next()
		require.NoError(t, err)
	}
	_, err = reader.Next()
	assert.ErrorIs(t, err, ErrTruncated)
	assert.ErrorContains(t, err, "after 3 records")
}

func TestDecodeRejectsDuplicateKeys(t *testing.T) {
	// map{2: "a", 2: "b"}
	_, err := DecodeEvent([]byte{0xa2, 0x02, 0x61, 'a', 0x02, 0x61, 'b'})
	assert.Error(t, err)
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cap")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range sampleEvents(base) {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())

	readAll := func(filter Filter) []Event {
		reader, err := NewFilteredReader(path, filter)
		require.NoError(t, err)
		defer reader.Close()

		var out []Event
		for {
			e, err := reader.Next()
			if err == io.EOF {
				return out
			}
			require.NoError(t, err)
			out = append(out, e)
		}
	}

	assert.Len(t, readAll(Filter{SessionID: "sess-b"}), 2)

	in := DirectionIn
	assert.Len(t, readAll(Filter{Direction: &in}), 2)

	snap := CategorySnapshot
	got := readAll(Filter{Category: &snap})
	require.Len(t, got, 1)
	assert.Equal(t, "1010", got[0].Snapshot.Frame)

	start := base.Add(time.Millisecond)
	end := base.Add(3 * time.Millisecond)
	assert.Len(t, readAll(Filter{TimeStart: &start, TimeEnd: &end}), 2)
}

func TestMultiLogger(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	multi := NewMultiLogger(a, nil, b)

	multi.Log(Event{SessionID: "x"})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(logger).Log(sampleEvents(time.Now())[1])

	out := buf.String()
	assert.Contains(t, out, "session_id=sess-a")
	assert.Contains(t, out, "command=SetPinHigh")
	assert.Contains(t, out, "pin=3")
}

func TestEventString(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := sampleEvents(base)

	assert.Contains(t, events[0].String(), "Closed -> Open [/dev/ttyACM0]")
	assert.Contains(t, events[1].String(), `SetPinHigh(3) token="3"`)
	assert.Contains(t, events[2].String(), `4 bytes "1010"`)
	assert.Contains(t, events[3].String(), "1010 (offset 2)")

	errEvent := Event{Category: CategoryError, Error: &ErrorEvent{Kind: ErrorParse, Message: "bad"}}
	assert.Contains(t, errEvent.String(), "parse: bad")
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("out")
	require.NoError(t, err)
	assert.Equal(t, DirectionOut, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("SNAPSHOT")
	require.NoError(t, err)
	assert.Equal(t, CategorySnapshot, c)

	_, err = ParseCategory("nope")
	assert.Error(t, err)
}
