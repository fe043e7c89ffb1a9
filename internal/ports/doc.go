// Package ports defines the interfaces that connect the servolink
// application layer to serial hardware.
//
//   - [SerialPort]: an open serial handle owned by exactly one worker
//   - [PortOpener]: acquires a SerialPort for a path and [PortOptions]
//
// The application layer (internal/app) depends only on these interfaces.
// internal/adapters/serial implements them with go.bug.st/serial for real
// devices and with an in-memory port for tests.
package ports
