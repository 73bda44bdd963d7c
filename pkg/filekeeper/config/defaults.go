// Package config provides configuration management for filekeeper.
package config

// Default configuration values for filekeeper.
const (
	// DefaultMode is the path validation mode applied when none is set.
	DefaultMode = "strict"

	// DefaultMaxDepth bounds directory nesting during scans.
	DefaultMaxDepth = 32

	// DefaultMaxFiles bounds the number of files examined per scan.
	DefaultMaxFiles = 1_000_000

	// DefaultMaxFileSize is the largest file the hasher will digest.
	DefaultMaxFileSize = "10GB"

	// DefaultHashConcurrency is the hashing worker pool size.
	DefaultHashConcurrency = 4

	// DefaultStrategy selects which duplicate to keep.
	DefaultStrategy = "newest"

	// DefaultOnConflict resolves destination collisions when organizing.
	DefaultOnConflict = "rename"

	// DefaultRetentionDays is the number of days to retain manifests.
	DefaultRetentionDays = 90
)

// DefaultExclusions contains paths excluded from scanning by default.
var DefaultExclusions = []string{
	"/proc",
	"/sys",
	"/dev",
}
