package domain

import "errors"

// Errors returned by the public API. Check them with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running bridge.
	ErrAlreadyRunning = errors.New("servolink: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped bridge.
	ErrNotRunning = errors.New("servolink: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("servolink: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("servolink: invalid configuration")

	// ErrPortOpen is returned by a worker whose serial port could not be opened.
	// It is fatal to that worker only.
	ErrPortOpen = errors.New("servolink: serial port open failed")
)
