// Package config loads the gpiolink YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gpiolink/host/serial"
	"gpiolink/protocol"
)

// Config is the on-disk configuration of a gpiolink console
type Config struct {
	Device       string        `yaml:"device"`
	Baud         int           `yaml:"baud"`
	Driver       string        `yaml:"driver"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`

	// Profile names a builtin profile or an entry of Profiles
	Profile  string             `yaml:"profile"`
	Profiles []protocol.Profile `yaml:"profiles"`

	CaptureFile string `yaml:"capture_file"`
	LogLevel    string `yaml:"log_level"`

	// SimChunk limits how many bytes the simulated device returns per read
	SimChunk int `yaml:"sim_chunk"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load parses a YAML (or JSON) document and applies defaults
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses the configuration at path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.Baud == 0 {
		cfg.Baud = serial.DefaultBaud
	}
	if cfg.Driver == "" {
		cfg.Driver = serial.DriverTarm
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = serial.DefaultReadTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Profile == "" {
		cfg.Profile = protocol.ProfileLegacy
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Driver {
	case serial.DriverTarm, serial.DriverBugst, serial.DriverSim:
	default:
		return fmt.Errorf("driver %q: %w", c.Driver, serial.ErrUnsupportedDriver)
	}
	if c.Baud < 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.ReadTimeout < 0 || c.PollInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.SimChunk < 0 {
		return fmt.Errorf("sim_chunk must not be negative, got %d", c.SimChunk)
	}

	seen := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("custom profile without a name")
		}
		if seen[p.Name] {
			return fmt.Errorf("profile %q defined twice", p.Name)
		}
		seen[p.Name] = true
		if err := p.Validate(); err != nil {
			return err
		}
	}

	if _, err := c.DeviceProfile(); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// LookupProfile resolves name against the custom profiles, then the builtin ones
func (c *Config) LookupProfile(name string) (protocol.Profile, error) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	if p, ok := protocol.LookupProfile(name); ok {
		return p, nil
	}
	return protocol.Profile{}, fmt.Errorf("unknown profile %q", name)
}

// DeviceProfile returns the selected device profile
func (c *Config) DeviceProfile() (protocol.Profile, error) {
	return c.LookupProfile(c.Profile)
}

// ProfileNames lists every selectable profile, custom ones first
func (c *Config) ProfileNames() []string {
	var names []string
	custom := make(map[string]bool)
	for _, p := range c.Profiles {
		names = append(names, p.Name)
		custom[p.Name] = true
	}
	for _, name := range []string{protocol.ProfileLegacy, protocol.ProfileReference} {
		if !custom[name] {
			names = append(names, name)
		}
	}
	return names
}

// SlogLevel converts LogLevel to a slog.Level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
