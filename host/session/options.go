package session

import (
	"log/slog"
	"time"

	"gpiolink/host/capture"
	"gpiolink/host/serial"
)

// Config holds the session configuration.
type Config struct {
	// Opener opens the byte-stream port (default serial.Open)
	Opener serial.Opener

	// Driver is passed to the opener in serial.Config
	Driver string

	// ReadTimeout bounds each poll's read
	ReadTimeout time.Duration

	// Logger receives operational logs (default discards)
	Logger *slog.Logger

	// Capture receives traffic and state events (default discards)
	Capture capture.Logger
}

func defaultConfig() Config {
	return Config{
		Opener:      serial.Open,
		Driver:      serial.DriverTarm,
		ReadTimeout: serial.DefaultReadTimeout,
		Logger:      slog.New(slog.DiscardHandler),
		Capture:     capture.NoopLogger{},
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithOpener replaces the function used to open ports.
//
// Example:
//
//	dev, _ := serial.NewSimDevice(protocol.LegacyProfile(), 1)
//	s, _ := session.New(protocol.LegacyProfile(), session.WithOpener(dev.Opener()))
func WithOpener(opener serial.Opener) Option {
	return func(c *Config) {
		if opener != nil {
			c.Opener = opener
		}
	}
}

// WithDriver selects the native serial driver by name.
func WithDriver(driver string) Option {
	return func(c *Config) {
		c.Driver = driver
	}
}

// WithReadTimeout sets how long a poll may wait for input.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithCapture sets the capture sink for traffic and state events.
func WithCapture(logger capture.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Capture = logger
		}
	}
}
