package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gpiolink/host/capture"
)

// replayFilter builds a capture filter from the replay flags. Empty
// arguments leave that field unfiltered.
func replayFilter(sessionID, direction, category, from, to string) (capture.Filter, error) {
	filter := capture.Filter{SessionID: sessionID}

	if direction != "" {
		d, err := capture.ParseDirection(direction)
		if err != nil {
			return capture.Filter{}, err
		}
		filter.Direction = &d
	}
	if category != "" {
		c, err := capture.ParseCategory(category)
		if err != nil {
			return capture.Filter{}, err
		}
		filter.Category = &c
	}
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return capture.Filter{}, fmt.Errorf("replay-from: %w", err)
		}
		filter.TimeStart = &t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return capture.Filter{}, fmt.Errorf("replay-to: %w", err)
		}
		filter.TimeEnd = &t
	}
	if filter.TimeStart != nil && filter.TimeEnd != nil && !filter.TimeStart.Before(*filter.TimeEnd) {
		return capture.Filter{}, fmt.Errorf("replay-from must be before replay-to")
	}
	return filter, nil
}

// replay prints the events of a capture file that match filter. A file
// cut off mid-record is reported but still counts as a successful replay.
func replay(out io.Writer, path string, filter capture.Filter) error {
	reader, err := capture.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer reader.Close()

	count := 0
	lastSession := ""
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, capture.ErrTruncated) {
			fmt.Fprintf(out, "Warning: %v\n", err)
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read capture: %w", err)
		}

		if event.SessionID != lastSession {
			fmt.Fprintf(out, "== session %s\n", event.SessionID)
			lastSession = event.SessionID
		}
		fmt.Fprintln(out, event.String())
		count++
	}

	fmt.Fprintf(out, "%d events\n", count)
	return nil
}
