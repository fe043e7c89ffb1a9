package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/servolink/internal/domain"
	"github.com/bft-labs/servolink/internal/ports"
	"github.com/bft-labs/servolink/internal/timeutil"
	"github.com/bft-labs/servolink/pkg/log"
)

// PortConfig describes how a worker acquires its serial port.
type PortConfig struct {
	Path    string
	Options ports.PortOptions

	// Reconnect makes open failures and I/O errors trigger a reopen
	// with exponential backoff instead of ending the worker.
	Reconnect      bool
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// portHandle owns the serial port of one worker and guarantees the port
// is closed exactly once per successful open.
type portHandle struct {
	cfg     PortConfig
	opener  ports.PortOpener
	logger  log.Logger
	backoff *backoff
	worker  string

	port ports.SerialPort
}

func newPortHandle(worker string, cfg PortConfig, opener ports.PortOpener, logger log.Logger, clock timeutil.Clock) *portHandle {
	return &portHandle{
		cfg:     cfg,
		opener:  opener,
		logger:  logger,
		backoff: newBackoff(cfg.BackoffInitial, cfg.BackoffMax, clock),
		worker:  worker,
	}
}

// open acquires the port. Without Reconnect the first failure is returned
// wrapped in domain.ErrPortOpen.
func (h *portHandle) open(ctx context.Context) (ports.SerialPort, error) {
	for {
		port, err := h.opener.Open(h.cfg.Path, h.cfg.Options)
		if err == nil {
			h.backoff.Reset()
			h.port = port
			h.logger.Info("serial port opened",
				log.String("worker", h.worker),
				log.String("port", h.cfg.Path),
				log.Stringer("mode", h.cfg.Options),
			)
			return port, nil
		}

		h.logger.Error("serial port open failed",
			log.String("worker", h.worker),
			log.String("port", h.cfg.Path),
			log.Err(err),
		)
		if !h.cfg.Reconnect {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrPortOpen, h.cfg.Path, err)
		}

		h.logger.Info("reopening serial port",
			log.String("worker", h.worker),
			log.Duration("backoff", h.backoff.Current()),
		)
		if err := h.backoff.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

// reopen closes the current port and opens it again.
func (h *portHandle) reopen(ctx context.Context) (ports.SerialPort, error) {
	h.close()
	if err := h.backoff.Wait(ctx); err != nil {
		return nil, err
	}
	return h.open(ctx)
}

func (h *portHandle) close() {
	if h.port == nil {
		return
	}
	if err := h.port.Close(); err != nil {
		h.logger.Warn("serial port close failed",
			log.String("worker", h.worker),
			log.String("port", h.cfg.Path),
			log.Err(err),
		)
	}
	h.port = nil
}
