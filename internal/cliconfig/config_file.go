package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	WritePort        string `toml:"write_port"`
	ReadPort         string `toml:"read_port"`
	BaudRate         int    `toml:"baud_rate"`
	DataBits         int    `toml:"data_bits"`
	StopBits         int    `toml:"stop_bits"`
	Parity           string `toml:"parity"`
	ReadTimeout      string `toml:"read_timeout"`
	DebounceWindow   string `toml:"debounce_window"`
	Trigger          string `toml:"trigger"`
	StopPacket       string `toml:"stop_packet"`
	Reconnect        *bool  `toml:"reconnect"`
	ReconnectInitial string `toml:"reconnect_initial"`
	ReconnectMax     string `toml:"reconnect_max"`
	AnimateInterval  string `toml:"animate_interval"`
	AnimateStep      int    `toml:"animate_step"`
	StateAddr        string `toml:"state_addr"`
	WatchConfig      *bool  `toml:"watch_config"`
	LogLevel         string `toml:"log_level"`
	ExitOnEOF        *bool  `toml:"exit_on_eof"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.servolink/config.toml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".servolink", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("write-port", fc.WritePort, &cfg.WritePort)
	s.setString("read-port", fc.ReadPort, &cfg.ReadPort)
	s.setString("parity", fc.Parity, &cfg.Parity)
	s.setString("trigger", fc.Trigger, &cfg.Trigger)
	s.setString("stop-packet", fc.StopPacket, &cfg.StopPacket)
	s.setString("state-addr", fc.StateAddr, &cfg.StateAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("baud", fc.BaudRate, &cfg.BaudRate)
	s.setInt("data-bits", fc.DataBits, &cfg.DataBits)
	s.setInt("stop-bits", fc.StopBits, &cfg.StopBits)
	s.setInt("animate-step", fc.AnimateStep, &cfg.AnimateStep)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"read-timeout", fc.ReadTimeout, &cfg.ReadTimeout},
		{"debounce", fc.DebounceWindow, &cfg.DebounceWindow},
		{"reconnect-initial", fc.ReconnectInitial, &cfg.ReconnectInitial},
		{"reconnect-max", fc.ReconnectMax, &cfg.ReconnectMax},
		{"animate-interval", fc.AnimateInterval, &cfg.AnimateInterval},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("reconnect", fc.Reconnect, &cfg.Reconnect)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)
	s.setBool("exit-on-eof", fc.ExitOnEOF, &cfg.ExitOnEOF)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
