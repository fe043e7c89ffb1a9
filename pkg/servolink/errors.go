package servolink

import (
	"github.com/bft-labs/servolink/internal/app"
	"github.com/bft-labs/servolink/internal/domain"
	"github.com/bft-labs/servolink/pkg/command"
	"github.com/bft-labs/servolink/pkg/queue"
)

// Errors returned by the bridge. Check them with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrPortOpen        = domain.ErrPortOpen
	ErrAngleOutOfRange = command.ErrAngleOutOfRange
	ErrQueueClosed     = queue.ErrClosed
	ErrShortWrite      = app.ErrShortWrite
)
