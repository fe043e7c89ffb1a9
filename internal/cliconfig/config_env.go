package cliconfig

import "os"

// EnvPrefix is the prefix of every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SERVOLINK_"

// ApplyEnvConfig applies configuration from environment variables (SERVOLINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("write-port", env("WRITE_PORT"), &cfg.WritePort)
	s.setString("read-port", env("READ_PORT"), &cfg.ReadPort)
	s.setString("parity", env("PARITY"), &cfg.Parity)
	s.setString("trigger", env("TRIGGER"), &cfg.Trigger)
	s.setString("stop-packet", env("STOP_PACKET"), &cfg.StopPacket)
	s.setString("state-addr", env("STATE_ADDR"), &cfg.StateAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	ints := []struct {
		flag string
		name string
		dst  *int
	}{
		{"baud", "BAUD_RATE", &cfg.BaudRate},
		{"data-bits", "DATA_BITS", &cfg.DataBits},
		{"stop-bits", "STOP_BITS", &cfg.StopBits},
		{"animate-step", "ANIMATE_STEP", &cfg.AnimateStep},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, env(i.name), i.dst); err != nil {
			return err
		}
	}

	if err := s.setDuration("read-timeout", env("READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("debounce", env("DEBOUNCE_WINDOW"), &cfg.DebounceWindow); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-initial", env("RECONNECT_INITIAL"), &cfg.ReconnectInitial); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max", env("RECONNECT_MAX"), &cfg.ReconnectMax); err != nil {
		return err
	}
	if err := s.setDuration("animate-interval", env("ANIMATE_INTERVAL"), &cfg.AnimateInterval); err != nil {
		return err
	}

	s.setBoolFromString("reconnect", env("RECONNECT"), &cfg.Reconnect)
	s.setBoolFromString("watch-config", env("WATCH_CONFIG"), &cfg.WatchConfig)
	s.setBoolFromString("exit-on-eof", env("EXIT_ON_EOF"), &cfg.ExitOnEOF)

	return nil
}
