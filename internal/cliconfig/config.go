package cliconfig

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/servolink/internal/ports"
	"github.com/bft-labs/servolink/pkg/frame"
)

// Config holds CLI configuration for servolink.
type Config struct {
	WritePort string
	ReadPort  string

	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string
	ReadTimeout time.Duration

	DebounceWindow time.Duration
	Trigger        string
	// StopPacket is the hex form of the packet sent on presence,
	// e.g. "A1 00 00 00 9E". Empty means the built-in stop packet.
	StopPacket string

	Reconnect        bool
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	AnimateInterval time.Duration
	AnimateStep     int

	StateAddr   string
	WatchConfig bool
	ConfigPath  string
	LogLevel    string

	// ExitOnEOF stops the bridge when stdin is exhausted. Disable it for
	// sensor-only runs with stdin at /dev/null.
	ExitOnEOF bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BaudRate:         ports.DefaultBaudRate,
		DataBits:         ports.DefaultDataBits,
		StopBits:         ports.DefaultStopBits,
		Parity:           ports.DefaultParity,
		ReadTimeout:      ports.DefaultReadTimeout,
		DebounceWindow:   2 * time.Second,
		Trigger:          "1",
		ReconnectInitial: 500 * time.Millisecond,
		ReconnectMax:     10 * time.Second,
		AnimateInterval:  30 * time.Millisecond,
		AnimateStep:      2,
		LogLevel:         "info",
		ExitOnEOF:        true,
	}
}

// Validate checks the configuration for errors and normalizes serial options.
func (c *Config) Validate() error {
	if c.WritePort == "" {
		return fmt.Errorf("write-port is required")
	}
	if c.ReadPort == "" {
		return fmt.Errorf("read-port is required")
	}

	opts, err := c.PortOptions().Normalize()
	if err != nil {
		return err
	}
	c.BaudRate, c.DataBits, c.StopBits, c.Parity = opts.BaudRate, opts.DataBits, opts.StopBits, opts.Parity
	c.ReadTimeout = opts.ReadTimeout

	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative")
	}
	if strings.ContainsAny(c.Trigger, "\r\n") {
		return fmt.Errorf("trigger must not contain line breaks")
	}
	if c.Trigger == "" {
		c.Trigger = "1"
	}
	if _, err := c.StopPacketBytes(); err != nil {
		return err
	}

	if c.Reconnect {
		if c.ReconnectInitial <= 0 {
			return fmt.Errorf("reconnect initial backoff must be positive")
		}
		if c.ReconnectMax < c.ReconnectInitial {
			return fmt.Errorf("reconnect max backoff must be at least the initial backoff")
		}
	}

	if c.AnimateInterval <= 0 {
		return fmt.Errorf("animate interval must be positive")
	}
	if c.AnimateStep <= 0 {
		return fmt.Errorf("animate step must be positive")
	}
	return nil
}

// PortOptions returns the serial options shared by both ports.
func (c Config) PortOptions() ports.PortOptions {
	return ports.PortOptions{
		BaudRate:    c.BaudRate,
		DataBits:    c.DataBits,
		StopBits:    c.StopBits,
		Parity:      c.Parity,
		ReadTimeout: c.ReadTimeout,
	}
}

// StopPacketBytes parses StopPacket. It returns the zero packet when unset.
// Spaces and colons between bytes are accepted.
func (c Config) StopPacketBytes() (frame.Packet, error) {
	var p frame.Packet
	if c.StopPacket == "" {
		return p, nil
	}
	s := strings.NewReplacer(" ", "", ":", "").Replace(c.StopPacket)
	b, err := hex.DecodeString(s)
	if err != nil {
		return p, fmt.Errorf("parse stop-packet: %w", err)
	}
	if len(b) != frame.Size {
		return p, fmt.Errorf("parse stop-packet: %w: got %d bytes", frame.ErrPacketLength, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
