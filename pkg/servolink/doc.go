// Package servolink bridges a control application to a servo actuator and
// a presence sensor over two serial ports.
//
// Angle commands from the caller and stop commands triggered by the sensor
// share one transmit queue. A writer goroutine drains the queue to the
// actuator port; a reader goroutine polls the sensor port and queues a stop
// command when it sees the trigger line, at most once per debounce window.
//
// # Basic Usage
//
//	cfg := servolink.Config{
//	    WritePort: "/dev/ttyUSB0",
//	    ReadPort:  "/dev/ttyUSB1",
//	}
//
//	b, err := servolink.New(cfg, servolink.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = b.SetAngle(90) // queued, never blocks on I/O
//
//	if err := b.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Ordering
//
// Commands are written in the order they were queued, whichever goroutine
// queued them. A stop from the sensor does not overtake an angle queued
// before it, and an angle queued after a stop overrides it.
//
// # Events
//
// Implement [EventHandler] (embedding [BaseEventHandler]) and pass it via
// [WithEventHandler], or call [Bridge.Subscribe] for a channel of [Event]
// values. Handler methods run on the worker goroutines and must return
// quickly. Subscribers that fall behind lose events.
//
// # Lifecycle States
//
// A Bridge is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateDegraded], [StateStopping] or [StateCrashed]. A worker whose port
// cannot be opened exits on its own and the bridge becomes degraded; set
// Config.Reconnect to keep retrying instead.
//
// # Plugins
//
//	import "github.com/bft-labs/servolink/plugins/configwatcher"
//	import "github.com/bft-labs/servolink/plugins/statefeed"
//
//	b, err := servolink.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	    statefeed.WithStateFeed(statefeed.Config{Addr: ":8090"}),
//	)
package servolink
