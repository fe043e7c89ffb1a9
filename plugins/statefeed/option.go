package statefeed

import "github.com/bft-labs/servolink/pkg/servolink"

// WithStateFeed returns a servolink Option that serves the state feed.
//
// Usage:
//
//	b, err := servolink.New(cfg, statefeed.WithStateFeed(statefeed.Config{Addr: ":8090"}))
func WithStateFeed(cfg Config) servolink.Option {
	return servolink.WithPlugin(New(cfg))
}
