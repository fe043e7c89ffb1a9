package main

import (
	"fmt"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/servolink/internal/cliconfig"
	"github.com/bft-labs/servolink/pkg/servolink"
)

// loadConfig layers the config file and SERVOLINK_* variables under the
// flags that were set explicitly, then validates the result.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfg.ConfigPath == "" {
		cfg.ConfigPath = cliconfig.DefaultConfigPath()
	}
	if cfg.ConfigPath != "" && cliconfig.FileExists(cfg.ConfigPath) {
		fc, err := cliconfig.LoadFileConfig(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if changed["config"] {
		return fmt.Errorf("config file %s not found", cfg.ConfigPath)
	} else {
		cfg.ConfigPath = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

// bridgeConfig converts the CLI configuration to the library form.
func bridgeConfig(cfg cliconfig.Config) (servolink.Config, error) {
	stop, err := cfg.StopPacketBytes()
	if err != nil {
		return servolink.Config{}, err
	}
	return servolink.Config{
		WritePort:        cfg.WritePort,
		ReadPort:         cfg.ReadPort,
		Serial:           cfg.PortOptions(),
		DebounceWindow:   cfg.DebounceWindow,
		Trigger:          cfg.Trigger,
		StopPacket:       stop,
		Reconnect:        cfg.Reconnect,
		ReconnectInitial: cfg.ReconnectInitial,
		ReconnectMax:     cfg.ReconnectMax,
		AnimateInterval:  cfg.AnimateInterval,
		AnimateStep:      cfg.AnimateStep,
		ConfigPath:       cfg.ConfigPath,
	}, nil
}
