// Package command translates high-level servo intents into frame packets.
//
// Callers never concatenate bytes themselves: a [Command] is built through a
// validating constructor and rendered with [Command.Packet].
//
//	p, err := command.BuildSetAngle(-90)
//	if errors.Is(err, command.ErrAngleOutOfRange) {
//	    // surface to the user
//	}
//
// The stop command is a fixed literal, [StopPacket], shared by every caller.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package command
