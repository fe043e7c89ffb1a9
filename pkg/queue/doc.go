// Package queue provides the transmit queue shared by command producers and
// the serial writer.
//
// The queue is an unbounded FIFO. Any number of goroutines may call
// [Queue.Enqueue]; it never blocks. A single consumer calls [Queue.Dequeue],
// which blocks until an item is available or the context is done.
//
// # Shutdown
//
// [Queue.Close] appends a close marker behind everything already queued.
// The consumer sees the marker only after draining earlier packets:
//
//	for {
//	    item, err := q.Dequeue(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    if item.IsClose() {
//	        return nil
//	    }
//	    write(item.Packet())
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package queue
