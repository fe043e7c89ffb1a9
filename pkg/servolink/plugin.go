package servolink

import "context"

// Plugin extends a Bridge with optional behavior that lives as long as
// the bridge runs.
type Plugin interface {
	// Name returns a short identifier used in logs.
	Name() string

	// Initialize is called from Start before the workers launch. ctx is
	// cancelled when the bridge stops. A returned error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called from Stop after the workers have exited.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on initialization.
type PluginConfig struct {
	// Bridge is the running bridge.
	Bridge *Bridge

	// ConfigPath is the configuration file path, empty if none.
	ConfigPath string

	Logger Logger
}
