package invoke

// Version information for the invoke module.
const (
	// Version is the current version of the invoke module.
	Version = "1.1.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.1.0"
)
