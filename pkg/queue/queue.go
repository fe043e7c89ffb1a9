package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/servolink/pkg/frame"
)

// ErrClosed is returned when enqueueing after the close marker.
var ErrClosed = errors.New("queue: closed")

// Item is either a packet or the close marker.
type Item struct {
	packet frame.Packet
	close  bool
}

// CloseMarker is the sentinel item that tells the consumer to stop.
var CloseMarker = Item{close: true}

// IsClose reports whether the item is the close marker.
func (i Item) IsClose() bool { return i.close }

// Packet returns the packet carried by the item. It is the zero packet for
// the close marker.
func (i Item) Packet() frame.Packet { return i.packet }

// Queue is a multi-producer, single-consumer FIFO of packets.
type Queue struct {
	mu     sync.Mutex
	items  []Item
	closed bool

	// ready holds at most one wake-up token for a waiting consumer.
	ready chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

// Enqueue appends p. It never blocks.
// Returns ErrClosed once the close marker has been enqueued.
func (q *Queue) Enqueue(p frame.Packet) error {
	return q.push(Item{packet: p})
}

// Close appends the close marker behind all queued packets.
// Returns ErrClosed if the marker was already enqueued.
func (q *Queue) Close() error {
	return q.push(CloseMarker)
}

func (q *Queue) push(it Item) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, it)
	if it.close {
		q.closed = true
	}
	q.mu.Unlock()

	q.signal()
	return nil
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest item, blocking until one is
// available. Returns ctx.Err() if the context is done first.
func (q *Queue) Dequeue(ctx context.Context) (Item, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items[0] = Item{}
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()

			if remaining > 0 {
				q.signal()
			}
			return it, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of queued items, including a pending close marker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether the close marker has been enqueued.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
