// Package domain contains the core entities and errors shared by the
// servolink application layer and its public API.
//
// It has no dependencies on serial I/O, logging or configuration.
//
//   - [AngleState]: current and target angle snapshot for display clients
//   - [AngleTracker]: moves the current angle toward the target in steps
//   - error values checked with errors.Is across package boundaries
package domain
