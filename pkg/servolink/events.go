package servolink

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/servolink/internal/app"
	"github.com/bft-labs/servolink/internal/domain"
	"github.com/bft-labs/servolink/pkg/frame"
)

// AngleState is a snapshot of the current and target angle.
type AngleState = domain.AngleState

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// PresenceEvent is emitted when the sensor reports presence and a stop
// command was queued.
type PresenceEvent struct {
	At time.Time
}

// AngleEvent is emitted when the target changes or the current angle moves.
type AngleEvent struct {
	State AngleState
}

// PacketEvent reports the outcome of a single packet write.
type PacketEvent struct {
	Packet frame.Packet
	Err    error
}

// EventHandler receives bridge events. Embed BaseEventHandler to
// implement only the methods you need.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnPresenceDetected(PresenceEvent)
	OnAngleChanged(AngleEvent)
	OnPacketWritten(PacketEvent)
	OnWriteError(PacketEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnPresenceDetected(PresenceEvent) {}
func (BaseEventHandler) OnAngleChanged(AngleEvent)        {}
func (BaseEventHandler) OnPacketWritten(PacketEvent)      {}
func (BaseEventHandler) OnWriteError(PacketEvent)         {}

// EventType names an event delivered to subscribers.
type EventType string

const (
	EventStateChanged     EventType = "state_changed"
	EventPresenceDetected EventType = "presence_detected"
	EventAngleChanged     EventType = "angle_changed"
	EventPacketWritten    EventType = "packet_written"
	EventWriteError       EventType = "write_error"
)

// Event is the subscriber form of every handler callback. Data holds the
// matching *Event struct value.
type Event struct {
	Type EventType
	Time time.Time
	Data interface{}
}

// subscriberBuffer is the channel capacity of each subscriber; events
// that do not fit are dropped for that subscriber.
const subscriberBuffer = 64

type eventBus struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[string]chan Event)}
}

func (b *eventBus) subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *eventBus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

func (b *eventBus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// emitter adapts the internal worker callbacks to the EventHandler and
// the subscriber bus.
type emitter struct {
	handler EventHandler
	bus     *eventBus
	now     func() time.Time
}

func (e *emitter) publish(t EventType, data interface{}) {
	e.bus.publish(Event{Type: t, Time: e.now(), Data: data})
}

func (e *emitter) OnStateChange(previous, current app.State, reason string) {
	ev := StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	}
	if e.handler != nil {
		e.handler.OnStateChange(ev)
	}
	e.publish(EventStateChanged, ev)
}

func (e *emitter) OnPresenceDetected(at time.Time) {
	ev := PresenceEvent{At: at}
	if e.handler != nil {
		e.handler.OnPresenceDetected(ev)
	}
	e.publish(EventPresenceDetected, ev)
}

func (e *emitter) OnTriggerSuppressed(time.Time, time.Duration) {}

func (e *emitter) OnAngleChanged(s AngleState) {
	ev := AngleEvent{State: s}
	if e.handler != nil {
		e.handler.OnAngleChanged(ev)
	}
	e.publish(EventAngleChanged, ev)
}

func (e *emitter) OnPacketWritten(p frame.Packet) {
	ev := PacketEvent{Packet: p}
	if e.handler != nil {
		e.handler.OnPacketWritten(ev)
	}
	e.publish(EventPacketWritten, ev)
}

func (e *emitter) OnWriteError(p frame.Packet, err error) {
	ev := PacketEvent{Packet: p, Err: err}
	if e.handler != nil {
		e.handler.OnWriteError(ev)
	}
	e.publish(EventWriteError, ev)
}
