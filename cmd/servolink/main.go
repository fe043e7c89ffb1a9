package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bft-labs/servolink/internal/cliconfig"
	servolog "github.com/bft-labs/servolink/pkg/log"
)

const helpDescription = `
Drive a servo pointer over one serial port and stop it when the presence
sensor on a second port fires.

Angles are read from stdin, one per line; "stop" sends a stop command.
Sensor triggers are debounced so one presence produces one stop.

Configure via file ($HOME/.servolink/config.toml), SERVOLINK_* environment
variables, or flags; flags win.
`

var exampleUsage = strings.TrimSpace(`
  servolink --write-port /dev/ttyUSB0 --read-port /dev/ttyUSB1
  echo 90 | servolink --config ./servolink.toml
  servolink encode -- -45
  servolink ports
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	log := servolog.NewConsoleLogger(os.Stderr, zerolog.InfoLevel)

	root := newRootCmd(&log)
	root.AddCommand(newEncodeCmd(), newPortsCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("servolink")
		os.Exit(1)
	}
}

func newRootCmd(log *zerolog.Logger) *cobra.Command {
	cfg := cliconfig.DefaultConfig()

	root := &cobra.Command{
		Use:           "servolink",
		Short:         "Serial bridge between a servo actuator and a presence sensor",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg); err != nil {
				return err
			}
			lvl, err := servolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			*log = log.Level(lvl)
			log.Info().Interface("config", cfg).Msg("configuration")

			return run(cmd.Context(), cfg, cmd.InOrStdin(), *log)
		},
	}

	f := root.Flags()
	f.StringVar(&cfg.ConfigPath, "config", "", "path to config file (default: $HOME/.servolink/config.toml)")
	f.StringVar(&cfg.WritePort, "write-port", cfg.WritePort, "serial device of the actuator")
	f.StringVar(&cfg.ReadPort, "read-port", cfg.ReadPort, "serial device of the presence sensor")

	f.IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "baud rate for both ports")
	f.IntVar(&cfg.DataBits, "data-bits", cfg.DataBits, "data bits (5-8)")
	f.IntVar(&cfg.StopBits, "stop-bits", cfg.StopBits, "stop bits (1 or 2)")
	f.StringVar(&cfg.Parity, "parity", cfg.Parity, "parity: N, E or O")
	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "sensor port read timeout")

	f.DurationVar(&cfg.DebounceWindow, "debounce", cfg.DebounceWindow, "minimum time between two presence stops")
	f.StringVar(&cfg.Trigger, "trigger", cfg.Trigger, "sensor line that signals presence")
	f.StringVar(&cfg.StopPacket, "stop-packet", cfg.StopPacket, "hex stop packet override, e.g. \"FF 00 00 00 FF\"")

	f.BoolVar(&cfg.Reconnect, "reconnect", cfg.Reconnect, "reopen ports after failures instead of giving up")
	f.DurationVar(&cfg.ReconnectInitial, "reconnect-initial", cfg.ReconnectInitial, "initial reconnect backoff")
	f.DurationVar(&cfg.ReconnectMax, "reconnect-max", cfg.ReconnectMax, "maximum reconnect backoff")

	f.DurationVar(&cfg.AnimateInterval, "animate-interval", cfg.AnimateInterval, "angle animation tick")
	f.IntVar(&cfg.AnimateStep, "animate-step", cfg.AnimateStep, "degrees per animation tick")
	if err := f.MarkHidden("animate-interval"); err != nil {
		log.Info().Err(err).Msg("failed to hide animate-interval flag")
	}

	f.StringVar(&cfg.StateAddr, "state-addr", cfg.StateAddr, "serve the WebSocket state feed on this address (e.g. :8090)")
	f.BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload debounce_window when the config file changes")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	f.BoolVar(&cfg.ExitOnEOF, "exit-on-eof", cfg.ExitOnEOF, "stop when stdin closes; set false to run until a signal")

	return root
}
