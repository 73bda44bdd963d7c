// Package scanner provides parallel directory scanning for the
// filekeeper engine. It walks a validated root with fastwalk,
// accumulating per-path errors without aborting, and stops cleanly
// at configurable depth and file-count ceilings.
package scanner

import (
	"github.com/mwhitney/filekeeper/pkg/filekeeper/pathval"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

// Defaults applied by Options.Validate.
const (
	DefaultMaxDepth = 32
	DefaultMaxFiles = 1_000_000
)

// Options configures a scan.
type Options struct {
	// Root is the validated directory the scan starts from.
	Root pathval.ValidatedPath

	// MaxDepth bounds directory nesting relative to Root. The root
	// itself is depth 0. Subtrees below the ceiling are skipped and
	// the result is marked truncated.
	MaxDepth int

	// MaxFiles bounds the number of files examined. The scan stops
	// cleanly once the ceiling is reached and marks the result
	// truncated.
	MaxFiles int64

	// IncludeHidden includes dot-prefixed files and directories.
	// Hidden entries are skipped by default.
	IncludeHidden bool

	// Exclude contains glob patterns for paths to skip. Patterns are
	// matched against the basename and the full path.
	Exclude []string

	// OnProgress is called periodically with scan progress. It must be
	// safe to call from multiple goroutines.
	OnProgress func(types.ScanProgress)
}

// Validate applies defaults for unset or invalid values.
func (o *Options) Validate() error {
	if o.MaxDepth < 1 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxFiles < 1 {
		o.MaxFiles = DefaultMaxFiles
	}
	return nil
}
