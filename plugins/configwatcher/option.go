package configwatcher

import "github.com/bft-labs/servolink/pkg/servolink"

// WithConfigWatcher returns a servolink Option that enables config file
// watching.
//
// Usage:
//
//	b, err := servolink.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) servolink.Option {
	return servolink.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher enables config watching with default settings.
func WithDefaultConfigWatcher() servolink.Option {
	return WithConfigWatcher(DefaultConfig())
}
