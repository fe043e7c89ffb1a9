package servolink

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/servolink/internal/app"
	"github.com/bft-labs/servolink/internal/domain"
	"github.com/bft-labs/servolink/pkg/command"
	"github.com/bft-labs/servolink/pkg/frame"
)

// Default tunables.
const (
	DefaultDebounceWindow  = app.DefaultDebounceWindow
	DefaultTrigger         = app.DefaultTrigger
	DefaultAnimateInterval = 30 * time.Millisecond
	DefaultAnimateStep     = 2
)

// Config configures a Bridge.
type Config struct {
	// WritePort is the device the actuator listens on. Required.
	WritePort string
	// ReadPort is the device the presence sensor writes to. Required.
	ReadPort string

	// Serial holds the line settings shared by both ports.
	Serial PortOptions

	// DebounceWindow is the minimum spacing between two presence detections.
	DebounceWindow time.Duration
	// Trigger is the sensor line that signals presence.
	Trigger string
	// StopPacket is sent on every presence detection. The zero value
	// selects command.StopPacket.
	StopPacket frame.Packet

	// Reconnect reopens a port after open or I/O failures instead of
	// ending the worker that owns it.
	Reconnect        bool
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	// AnimateInterval and AnimateStep control how fast the reported
	// current angle follows the target.
	AnimateInterval time.Duration
	AnimateStep     int

	// ConfigPath is the file the configuration was loaded from, if any.
	// Plugins that reload configuration use it.
	ConfigPath string
}

// SetDefaults fills unset fields with default values.
func (c *Config) SetDefaults() {
	if c.DebounceWindow == 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}
	if c.Trigger == "" {
		c.Trigger = DefaultTrigger
	}
	if c.StopPacket == (frame.Packet{}) {
		c.StopPacket = command.StopPacket
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = app.DefaultBackoffInitial
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = app.DefaultBackoffMax
	}
	if c.AnimateInterval <= 0 {
		c.AnimateInterval = DefaultAnimateInterval
	}
	if c.AnimateStep <= 0 {
		c.AnimateStep = DefaultAnimateStep
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.WritePort == "" {
		return fmt.Errorf("%w: write port is required", domain.ErrInvalidConfig)
	}
	if c.ReadPort == "" {
		return fmt.Errorf("%w: read port is required", domain.ErrInvalidConfig)
	}
	opts, err := c.Serial.Normalize()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	c.Serial = opts
	if c.DebounceWindow < 0 {
		return fmt.Errorf("%w: negative debounce window", domain.ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Trigger, "\r\n") {
		return fmt.Errorf("%w: trigger contains a line break", domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) portConfig(path string) app.PortConfig {
	return app.PortConfig{
		Path:           path,
		Options:        c.Serial,
		Reconnect:      c.Reconnect,
		BackoffInitial: c.ReconnectInitial,
		BackoffMax:     c.ReconnectMax,
	}
}
