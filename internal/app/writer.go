package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bft-labs/servolink/internal/ports"
	"github.com/bft-labs/servolink/internal/timeutil"
	"github.com/bft-labs/servolink/pkg/frame"
	"github.com/bft-labs/servolink/pkg/log"
	"github.com/bft-labs/servolink/pkg/queue"
)

// ErrShortWrite is returned when the port accepted fewer bytes than a packet.
var ErrShortWrite = errors.New("short write")

// Writer drains the transmit queue to the write port. Packets are written
// in queue order, one Write call each; failed packets are logged and dropped.
type Writer struct {
	cfg    PortConfig
	opener ports.PortOpener
	queue  *queue.Queue
	logger log.Logger
	events WriterEvents
	clock  timeutil.Clock
}

// NewWriter creates a writer. events and clock may be nil.
func NewWriter(cfg PortConfig, opener ports.PortOpener, q *queue.Queue, logger log.Logger, events WriterEvents, clock timeutil.Clock) *Writer {
	if events == nil {
		events = nopEvents{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Writer{
		cfg:    cfg,
		opener: opener,
		queue:  q,
		logger: logger,
		events: events,
		clock:  clock,
	}
}

// Run opens the write port and transmits queued packets until the close
// marker is dequeued (returns nil) or ctx is done (returns ctx.Err()).
// Packets queued before the close marker are always written first.
func (w *Writer) Run(ctx context.Context) error {
	h := newPortHandle("writer", w.cfg, w.opener, w.logger, w.clock)
	port, err := h.open(ctx)
	if err != nil {
		return err
	}
	defer h.close()

	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Warn("writer cancelled",
				log.Int("pending", w.queue.Len()),
				log.Err(err),
			)
			return err
		}
		if item.IsClose() {
			w.logger.Info("writer stopping, queue drained")
			return nil
		}

		p := item.Packet()
		if err := writePacket(port, p); err != nil {
			w.logger.Error("packet write failed",
				log.String("port", w.cfg.Path),
				log.Stringer("packet", p),
				log.Err(err),
			)
			w.events.OnWriteError(p, err)

			if !w.cfg.Reconnect {
				continue
			}
			if port, err = h.reopen(ctx); err != nil {
				return err
			}
			continue
		}

		w.logger.Debug("packet written",
			log.String("port", w.cfg.Path),
			log.Stringer("packet", p),
		)
		w.events.OnPacketWritten(p)
	}
}

func writePacket(port ports.SerialPort, p frame.Packet) error {
	n, err := port.Write(p.Bytes())
	if err != nil {
		return err
	}
	if n != frame.Size {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, frame.Size)
	}
	return nil
}
