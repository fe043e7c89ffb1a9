// Package log provides the logging abstraction used by servolink components.
//
// Components depend on the Logger interface only. A zerolog adapter is
// provided for production use and a no-op logger for tests and for
// embedders that do not want output.
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//	logger.Info("packet written", log.Hex("packet", p.Bytes()), log.String("port", path))
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
