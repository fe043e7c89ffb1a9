package log

// Version information for the log module.
// 2.0.0 added Hex, Time and Stringer fields and dropped the unused numeric helpers.
const (
	// Version is the current version of the log module.
	Version = "2.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "2.0.0"
)
