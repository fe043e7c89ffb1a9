package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/bft-labs/servolink/internal/cliconfig"
	servolog "github.com/bft-labs/servolink/pkg/log"
	"github.com/bft-labs/servolink/pkg/servolink"
	"github.com/bft-labs/servolink/plugins/configwatcher"
	"github.com/bft-labs/servolink/plugins/statefeed"
)

// run starts the bridge and feeds it angles from in until a signal, or
// until EOF when cfg.ExitOnEOF is set.
func run(ctx context.Context, cfg cliconfig.Config, in io.Reader, log zerolog.Logger) error {
	libCfg, err := bridgeConfig(cfg)
	if err != nil {
		return err
	}

	opts := []servolink.Option{
		servolink.WithLogger(servolog.NewZerologAdapterWithLogger(log)),
	}
	if cfg.WatchConfig && cfg.ConfigPath != "" {
		opts = append(opts, configwatcher.WithDefaultConfigWatcher())
	}
	if cfg.StateAddr != "" {
		opts = append(opts, statefeed.WithStateFeed(statefeed.Config{Addr: cfg.StateAddr}))
	}

	b, err := servolink.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	inputDone := make(chan error, 1)
	go func() { inputDone <- feedAngles(ctx, in, b, log) }()

	waitForShutdown(ctx, inputDone, cfg.ExitOnEOF, log)

	if err := b.Stop(); err != nil {
		return fmt.Errorf("stop bridge: %w", err)
	}
	return nil
}

// waitForShutdown returns when ctx is done, or when input ends and
// exitOnEOF is set. Otherwise the end of input only stops angle feeding.
func waitForShutdown(ctx context.Context, inputDone <-chan error, exitOnEOF bool, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("received signal, stopping...")
			return
		case err := <-inputDone:
			inputDone = nil
			if err != nil {
				log.Error().Err(err).Msg("reading input failed")
			}
			if exitOnEOF {
				log.Info().Msg("input closed, stopping...")
				return
			}
			log.Info().Msg("input closed, running until signal")
		}
	}
}

// angleSink receives commands parsed from the input.
type angleSink interface {
	SetAngle(angle int) error
	SendStop() error
}

// feedAngles reads one command per line: an integer angle or "stop".
// Invalid lines are logged and skipped. It returns nil at EOF.
func feedAngles(ctx context.Context, in io.Reader, sink angleSink, log zerolog.Logger) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.EqualFold(line, "stop") {
			if err := sink.SendStop(); err != nil {
				log.Warn().Err(err).Msg("stop not sent")
			}
			continue
		}

		angle, err := strconv.Atoi(line)
		if err != nil {
			log.Warn().Str("input", line).Msg("not an angle, ignored")
			continue
		}
		if err := sink.SetAngle(angle); err != nil {
			if errors.Is(err, servolink.ErrAngleOutOfRange) {
				log.Warn().Int("angle", angle).Msg("angle out of range, ignored")
				continue
			}
			log.Warn().Err(err).Int("angle", angle).Msg("angle not sent")
		}
	}
	return sc.Err()
}
