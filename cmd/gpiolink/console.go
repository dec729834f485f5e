package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gpiolink/config"
	"gpiolink/host/serial"
	"gpiolink/host/session"
	"gpiolink/protocol"
)

// console turns typed commands into session calls and renders poll events
type console struct {
	out  io.Writer
	cfg  *config.Config
	sess *session.Session

	// submit runs fn on the goroutine that owns the session
	submit func(fn func()) error

	listPorts func() ([]serial.PortDescriptor, error)

	// onProfile is told about profile switches (simulated device)
	onProfile func(protocol.Profile) error
}

// execute runs one command line and reports whether the console should exit
func (c *console) execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "ports", "ls":
		if err := printPorts(c.out, c.listPorts); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	case "open", "o":
		c.cmdOpen(args)
	case "close", "c":
		c.run(func() {
			c.sess.Close()
			fmt.Fprintln(c.out, "Disconnected")
		})
	case "read", "r":
		c.send(protocol.ReadAll())
	case "high", "h", "low", "l":
		c.cmdSet(cmd, args)
	case "status", "s":
		c.run(c.printStatus)
	case "profile", "p":
		c.cmdProfile(args)
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

// run executes fn on the session goroutine
func (c *console) run(fn func()) {
	if err := c.submit(fn); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  ports                 List serial ports
  open [device] [baud]  Connect (defaults from config)
  close                 Disconnect
  read                  Request all pin states
  high <pin>            Raise a pin
  low <pin>             Lower a pin
  status                Show connection state
  profile [name]        Show or switch the device profile
  help                  Show this help
  quit                  Exit`)
}

func (c *console) cmdOpen(args []string) {
	dev := c.cfg.Device
	baud := c.cfg.Baud
	if len(args) > 0 {
		dev = args[0]
	}
	if len(args) > 1 {
		b, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(c.out, "Invalid baud rate: %s\n", args[1])
			return
		}
		baud = b
	}
	if dev == "" {
		fmt.Fprintln(c.out, "Usage: open <device> [baud]")
		return
	}

	c.run(func() {
		if err := c.sess.Open(dev, baud); err != nil {
			fmt.Fprintf(c.out, "Open failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "Connected to %s at %d baud\n", dev, baud)
	})
}

func (c *console) cmdSet(cmd string, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(c.out, "Usage: %s <pin>\n", cmd)
		return
	}
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(args[0]), "GP"))
	if err != nil {
		fmt.Fprintf(c.out, "Invalid pin: %s\n", args[0])
		return
	}

	pin := protocol.PinID(n)
	if cmd == "high" || cmd == "h" {
		c.send(protocol.SetPinHigh(pin))
	} else {
		c.send(protocol.SetPinLow(pin))
	}
}

func (c *console) send(command protocol.Command) {
	c.run(func() {
		if err := c.sess.Send(command); err != nil {
			fmt.Fprintf(c.out, "Send failed: %v\n", err)
			return
		}
		token, _ := c.sess.Token(command)
		fmt.Fprintf(c.out, "Sent: %s %q\n", command, token)
	})
}

func (c *console) printStatus() {
	profile := c.sess.Profile()
	fmt.Fprintf(c.out, "State:   %s\n", c.sess.State())
	if c.sess.Device() != "" {
		fmt.Fprintf(c.out, "Device:  %s @ %d baud\n", c.sess.Device(), c.sess.Baud())
	}
	if reason := c.sess.Reason(); reason != "" {
		fmt.Fprintf(c.out, "Reason:  %s\n", reason)
	}
	fmt.Fprintf(c.out, "Profile: %s (%d pins, GP%d-GP%d, terminator %q)\n",
		profile.Name, profile.PinCount, profile.MinPin(), profile.MaxPin(), profile.Terminator)
}

func (c *console) cmdProfile(args []string) {
	if len(args) == 0 {
		current := c.sess.Profile().Name
		for _, name := range c.cfg.ProfileNames() {
			marker := " "
			if name == current {
				marker = "*"
			}
			fmt.Fprintf(c.out, "%s %s\n", marker, name)
		}
		return
	}

	profile, err := c.cfg.LookupProfile(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	c.run(func() {
		if err := c.sess.SetProfile(profile); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		if c.onProfile != nil {
			if err := c.onProfile(profile); err != nil {
				fmt.Fprintf(c.out, "Error: %v\n", err)
				return
			}
		}
		fmt.Fprintf(c.out, "Profile set to %s\n", profile.Name)
	})
}

// render prints the events of one poll tick
func (c *console) render(events []protocol.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case protocol.EventDataReceived:
			fmt.Fprintf(c.out, "Received: %q\n", ev.Data)
		case protocol.EventSnapshotReady:
			fmt.Fprintf(c.out, "Snapshot: %s\n", ev.Snapshot)
		case protocol.EventParseError:
			fmt.Fprintf(c.out, "Parse error: %s\n", ev.Description)
		case protocol.EventConnectionError:
			fmt.Fprintf(c.out, "Connection error: %s\n", ev.Description)
		}
	}
}

func printPorts(out io.Writer, list func() ([]serial.PortDescriptor, error)) error {
	ports, err := list()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found")
		return nil
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	for _, p := range ports {
		fmt.Fprintf(out, "  %s\n", p)
	}
	return nil
}
