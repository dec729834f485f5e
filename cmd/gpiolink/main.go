// Command gpiolink is an interactive console for GPIO boards that speak the
// single-token serial protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gpiolink/config"
	"gpiolink/host/capture"
	"gpiolink/host/poller"
	"gpiolink/host/serial"
	"gpiolink/host/session"
	"gpiolink/protocol"
)

var (
	configPath    = flag.String("config", "", "YAML configuration file")
	device        = flag.String("device", "", "Serial device path (e.g. /dev/ttyACM0, COM3)")
	baud          = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	driver        = flag.String("driver", serial.DriverTarm, "Serial driver: tarm, bugst or sim")
	profileName   = flag.String("profile", protocol.ProfileLegacy, "Device profile")
	listPorts     = flag.Bool("list", false, "List serial ports and exit")
	captureFile   = flag.String("capture", "", "Append a CBOR capture of the session to this file")
	replayFile    = flag.String("replay", "", "Print a capture file and exit")
	replaySession = flag.String("replay-session", "", "Only replay events of this session ID")
	replayDir     = flag.String("replay-direction", "", "Only replay events in this direction: in, out or local")
	replayCat     = flag.String("replay-category", "", "Only replay events of this category: traffic, command, snapshot, state or error")
	replayFrom    = flag.String("replay-from", "", "Only replay events at or after this RFC 3339 time")
	replayTo      = flag.String("replay-to", "", "Only replay events before this RFC 3339 time")
	logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	pollInterval  = flag.Duration("poll", poller.DefaultInterval, "Poll interval")
	readTimeout   = flag.Duration("read-timeout", serial.DefaultReadTimeout, "Read timeout per poll")
	simChunk      = flag.Int("sim-chunk", 0, "Bytes per read from the simulated device (0 = all)")
)

func main() {
	flag.Parse()

	if *replayFile != "" {
		filter, err := replayFilter(*replaySession, *replayDir, *replayCat, *replayFrom, *replayTo)
		if err == nil {
			err = replay(os.Stdout, *replayFile, filter)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listPorts {
		if err := printPorts(os.Stdout, serial.ListPorts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, then applies explicitly set flags
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = *device
		case "baud":
			cfg.Baud = *baud
		case "driver":
			cfg.Driver = *driver
		case "profile":
			cfg.Profile = *profileName
		case "capture":
			cfg.CaptureFile = *captureFile
		case "log-level":
			cfg.LogLevel = *logLevel
		case "poll":
			cfg.PollInterval = *pollInterval
		case "read-timeout":
			cfg.ReadTimeout = *readTimeout
		case "sim-chunk":
			cfg.SimChunk = *simChunk
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config) error {
	profile, err := cfg.DeviceProfile()
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}

	term, err := newTerminal()
	if err != nil {
		return err
	}
	defer term.Close()

	logger := slog.New(slog.NewTextHandler(term.Stderr(), &slog.HandlerOptions{Level: level}))

	var sink capture.Logger = capture.NoopLogger{}
	if cfg.CaptureFile != "" {
		fileLog, err := capture.NewFileLogger(cfg.CaptureFile)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer func() {
			if err := fileLog.Close(); err != nil {
				logger.Warn("failed to close capture file", "error", err)
			}
			if n, err := fileLog.Dropped(); n > 0 {
				logger.Warn("capture events dropped", "file", cfg.CaptureFile, "count", n, "last_error", err)
			}
		}()
		sink = capture.NewMultiLogger(fileLog, capture.NewSlogAdapter(logger))
		logger.Info("capturing session", "file", cfg.CaptureFile)
	}

	opener, sim, err := newOpener(cfg, profile)
	if err != nil {
		return err
	}

	sess, err := session.New(profile,
		session.WithOpener(opener),
		session.WithDriver(cfg.Driver),
		session.WithReadTimeout(cfg.ReadTimeout),
		session.WithLogger(logger),
		session.WithCapture(sink),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	con := &console{
		out:       term.Stdout(),
		cfg:       cfg,
		sess:      sess,
		listPorts: serial.ListPorts,
	}
	if sim != nil {
		con.onProfile = sim.SetProfile
	}

	sched := poller.New(cfg.PollInterval, sess.Poll, con.render)
	con.submit = func(fn func()) error {
		submitCtx, done := context.WithTimeout(ctx, 5*time.Second)
		defer done()
		return sched.Submit(submitCtx, fn)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	fmt.Fprintf(con.out, "gpiolink %s - profile %s (%d pins, GP%d-GP%d)\n",
		protocol.Version, profile.Name, profile.PinCount, profile.MinPin(), profile.MaxPin())

	if cfg.Device != "" {
		con.execute("open")
	}

	term.Run(ctx, cancel, con)

	cancel()
	<-stopped
	sess.Close()
	return nil
}

// newOpener picks the port opener for the configured driver.
// The simulated device is returned so profile changes can follow it.
func newOpener(cfg *config.Config, profile protocol.Profile) (serial.Opener, *serial.SimDevice, error) {
	if cfg.Driver != serial.DriverSim {
		return serial.Open, nil, nil
	}
	dev, err := serial.NewSimDevice(profile, cfg.SimChunk)
	if err != nil {
		return nil, nil, err
	}
	return dev.Opener(), dev, nil
}
