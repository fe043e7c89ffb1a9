package app

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logadapter "github.com/bft-labs/servolink/internal/adapters/log"
	"github.com/bft-labs/servolink/internal/adapters/serial"
	"github.com/bft-labs/servolink/internal/domain"
	"github.com/bft-labs/servolink/internal/ports"
	"github.com/bft-labs/servolink/pkg/command"
	"github.com/bft-labs/servolink/pkg/frame"
	"github.com/bft-labs/servolink/pkg/queue"
)

type recordingEvents struct {
	mu         sync.Mutex
	written    []frame.Packet
	failed     []frame.Packet
	presence   []time.Time
	suppressed int
}

func (r *recordingEvents) OnPacketWritten(p frame.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written = append(r.written, p)
}

func (r *recordingEvents) OnWriteError(p frame.Packet, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, p)
}

func (r *recordingEvents) OnPresenceDetected(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence = append(r.presence, at)
}

func (r *recordingEvents) OnTriggerSuppressed(time.Time, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppressed++
}

func (r *recordingEvents) Written() []frame.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]frame.Packet(nil), r.written...)
}

func mustAngle(t *testing.T, angle int) frame.Packet {
	t.Helper()
	p, err := command.BuildSetAngle(angle)
	if err != nil {
		t.Fatalf("BuildSetAngle(%d): %v", angle, err)
	}
	return p
}

func writerConfig() PortConfig {
	return PortConfig{Path: "/dev/ttyWRITE", Options: ports.DefaultPortOptions()}
}

func TestWriter_DrainsQueueInOrderThenStops(t *testing.T) {
	port := serial.NewTestablePort()
	opener := serial.NewMockOpener()
	opener.Add("/dev/ttyWRITE", port)

	q := queue.New()
	packets := []frame.Packet{mustAngle(t, 90), mustAngle(t, -90), command.BuildStop()}
	for _, p := range packets {
		if err := q.Enqueue(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	events := &recordingEvents{}
	w := NewWriter(writerConfig(), opener, q, logadapter.NewRecorder(), events, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	writes := port.Writes()
	if len(writes) != len(packets) {
		t.Fatalf("got %d writes, want %d", len(writes), len(packets))
	}
	for i, p := range packets {
		if !bytes.Equal(writes[i], p.Bytes()) {
			t.Errorf("write %d = % X, want % X", i, writes[i], p.Bytes())
		}
	}
	if got := port.CloseCalls(); got != 1 {
		t.Errorf("port closed %d times, want 1", got)
	}
	if got := len(events.Written()); got != 3 {
		t.Errorf("OnPacketWritten called %d times, want 3", got)
	}
}

func TestWriter_OpenFailure(t *testing.T) {
	opener := serial.NewMockOpener()
	cause := errors.New("permission denied")
	opener.Fail("/dev/ttyWRITE", cause)

	rec := logadapter.NewRecorder()
	w := NewWriter(writerConfig(), opener, queue.New(), rec, nil, nil)

	err := w.Run(context.Background())
	if !errors.Is(err, domain.ErrPortOpen) {
		t.Errorf("Run() = %v, want ErrPortOpen", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Run() = %v, want wrapped cause", err)
	}
	if rec.Count("serial port open failed") != 1 {
		t.Error("open failure was not logged")
	}
}

func TestWriter_WriteErrorIsLoggedAndDropped(t *testing.T) {
	port := serial.NewTestablePort()
	port.WriteErr = errors.New("io error")
	opener := serial.NewMockOpener()
	opener.Add("/dev/ttyWRITE", port)

	q := queue.New()
	first, second := mustAngle(t, 10), mustAngle(t, 20)
	_ = q.Enqueue(first)
	_ = q.Enqueue(second)
	_ = q.Close()

	rec := logadapter.NewRecorder()
	events := &recordingEvents{}
	w := NewWriter(writerConfig(), opener, q, rec, events, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	writes := port.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], second.Bytes()) {
		t.Errorf("writes = % X, want only the second packet", writes)
	}
	if rec.Count("packet write failed") != 1 {
		t.Error("write failure was not logged")
	}
	if len(events.failed) != 1 || events.failed[0] != first {
		t.Errorf("failed = %v, want [%v]", events.failed, first)
	}
}

func TestWriter_ShortWrite(t *testing.T) {
	port := serial.NewTestablePort()
	port.ShortWrite = true

	err := writePacket(port, command.BuildStop())
	if !errors.Is(err, ErrShortWrite) {
		t.Errorf("writePacket() = %v, want ErrShortWrite", err)
	}
}

func TestWriter_ReconnectsAfterWriteError(t *testing.T) {
	bad := serial.NewTestablePort()
	bad.WriteErr = errors.New("device unplugged")
	good := serial.NewTestablePort()

	opener := serial.NewMockOpener()
	opener.Add("/dev/ttyWRITE", bad)
	opener.Add("/dev/ttyWRITE", good)

	cfg := writerConfig()
	cfg.Reconnect = true
	cfg.BackoffInitial = time.Millisecond
	cfg.BackoffMax = time.Millisecond

	q := queue.New()
	lost, next := mustAngle(t, 1), mustAngle(t, 2)
	_ = q.Enqueue(lost)
	_ = q.Enqueue(next)
	_ = q.Close()

	w := NewWriter(cfg, opener, q, logadapter.NewRecorder(), nil, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if got := bad.CloseCalls(); got != 1 {
		t.Errorf("failed port closed %d times, want 1", got)
	}
	if got := good.CloseCalls(); got != 1 {
		t.Errorf("new port closed %d times, want 1", got)
	}
	writes := good.Writes()
	if len(writes) != 1 || !bytes.Equal(writes[0], next.Bytes()) {
		t.Errorf("new port writes = % X, want only the next packet", writes)
	}
	if n := len(opener.Calls()); n != 2 {
		t.Errorf("Open called %d times, want 2", n)
	}
}

func TestWriter_ContextCancel(t *testing.T) {
	port := serial.NewTestablePort()
	opener := serial.NewMockOpener()
	opener.Add("/dev/ttyWRITE", port)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWriter(writerConfig(), opener, queue.New(), logadapter.NewRecorder(), nil, nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("writer did not stop after cancel")
	}
	if got := port.CloseCalls(); got != 1 {
		t.Errorf("port closed %d times, want 1", got)
	}
}
