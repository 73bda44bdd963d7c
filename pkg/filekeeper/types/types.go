// Package types provides core data types for the filekeeper organization engine.
// It includes structures for file entries, scan results, duplicate groups, and
// organization plans, along with utility functions for parsing and formatting
// file sizes.
package types

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// FileEntry is an immutable snapshot of a file taken at scan time.
// A file may change between scan and action; callers performing destructive
// operations re-verify size and content immediately before acting.
type FileEntry struct {
	// Name is the base name of the file.
	Name string `json:"name"`

	// Path is the absolute path to the file.
	Path string `json:"path"`

	// Size is the file size in bytes at scan time.
	Size int64 `json:"size"`

	// Extension is the file extension including the dot, lowercased.
	Extension string `json:"extension"`

	// Created is the creation time of the file. On systems that do not
	// expose birth time it falls back to the modification time.
	Created time.Time `json:"created,omitempty"`

	// Modified is the last modification time of the file.
	Modified time.Time `json:"modified"`

	// Mode is the file's permission and mode bits.
	Mode os.FileMode `json:"mode"`
}

// NewFileEntry builds a FileEntry from a path and its stat result.
func NewFileEntry(path string, info os.FileInfo) FileEntry {
	name := filepath.Base(path)
	return FileEntry{
		Name:      name,
		Path:      path,
		Size:      info.Size(),
		Extension: strings.ToLower(filepath.Ext(name)),
		Created:   createTime(info),
		Modified:  info.ModTime(),
		Mode:      info.Mode(),
	}
}

// Hidden reports whether the entry is a hidden file (name begins with a dot).
func (f FileEntry) Hidden() bool {
	return strings.HasPrefix(f.Name, ".")
}

// HumanSize returns the file size formatted as a human-readable string.
func (f FileEntry) HumanSize() string {
	return FormatSize(f.Size)
}

// ScanResult contains the aggregated results of a scan operation.
type ScanResult struct {
	// Files contains all files discovered under the scan root.
	Files []FileEntry `json:"files"`

	// DirsScanned is the total number of directories traversed.
	DirsScanned int64 `json:"dirs_scanned"`

	// FilesScanned is the total number of files examined.
	FilesScanned int64 `json:"files_scanned"`

	// TotalSize is the sum of all file sizes in bytes.
	TotalSize int64 `json:"total_size"`

	// Truncated indicates the scan stopped at a resource ceiling
	// (max file count or max depth) before exhausting the tree.
	Truncated bool `json:"truncated,omitempty"`

	// Elapsed is the total time taken to complete the scan.
	Elapsed time.Duration `json:"elapsed"`

	// Errors contains any per-path errors encountered during scanning.
	Errors []ScanError `json:"errors,omitempty"`
}

// ScanError pairs a path with the error encountered there.
type ScanError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ScanProgress reports real-time scan progress.
type ScanProgress struct {
	DirsScanned  int64  `json:"dirs_scanned"`
	FilesScanned int64  `json:"files_scanned"`
	BytesScanned int64  `json:"bytes_scanned"`
	CurrentPath  string `json:"current_path"`
}

// DuplicateGroup is a set of files sharing identical size and content digest.
// A group always has at least two members; all members have non-zero size.
type DuplicateGroup struct {
	// Digest is the content digest shared by every member.
	Digest string `json:"digest"`

	// Files are the members of the group.
	Files []FileEntry `json:"files"`

	// RecommendedKeep is the path of the highest-scored member under the
	// requested retention strategy.
	RecommendedKeep string `json:"recommended_keep"`

	// WastedBytes is the space reclaimable by keeping one copy:
	// member size times (member count - 1).
	WastedBytes int64 `json:"wasted_bytes"`
}

// ConflictPolicy governs what happens when a planned destination already exists.
type ConflictPolicy string

const (
	// ConflictRename appends a numeric disambiguator, e.g. "name (1).ext",
	// probing sequentially until a free name is found.
	ConflictRename ConflictPolicy = "rename"

	// ConflictSkip leaves the source untouched and records a skip reason.
	ConflictSkip ConflictPolicy = "skip"

	// ConflictOverwrite unconditionally replaces the destination.
	ConflictOverwrite ConflictPolicy = "overwrite"

	// ConflictOverwriteIfNewer replaces the destination only when the
	// source's modification time is strictly newer.
	ConflictOverwriteIfNewer ConflictPolicy = "overwrite_if_newer"
)

// ParseConflictPolicy parses a policy name, defaulting to rename for "".
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(s)) {
	case "", ConflictRename:
		return ConflictRename, nil
	case ConflictSkip:
		return ConflictSkip, nil
	case ConflictOverwrite:
		return ConflictOverwrite, nil
	case ConflictOverwriteIfNewer:
		return ConflictOverwriteIfNewer, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", s)
	}
}

// MoveIntent is a single planned move within an OrganizationPlan.
type MoveIntent struct {
	// Source is the current path of the file.
	Source string `json:"source"`

	// Destination is the planned path after the move.
	Destination string `json:"destination"`

	// Category is the category assigned by the categorizer.
	Category string `json:"category"`

	// HasConflict indicates the original destination was already occupied.
	HasConflict bool `json:"has_conflict"`

	// Resolution describes how a conflict was resolved, empty when none.
	Resolution string `json:"resolution,omitempty"`
}

// SkippedFile records a file excluded from a plan and why.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// OrganizationPlan is a pure description of moves to perform. Generating a
// plan never mutates the filesystem; execution consumes a plan and is the
// only place mutation occurs.
type OrganizationPlan struct {
	// Moves are the planned moves in execution order.
	Moves []MoveIntent `json:"moves"`

	// Conflicts is the number of moves whose destination was occupied.
	Conflicts int `json:"conflicts"`

	// Skipped are files excluded from the plan with reasons.
	Skipped []SkippedFile `json:"skipped,omitempty"`

	// CategoryCounts maps category name to number of files planned into it.
	CategoryCounts map[string]int `json:"category_counts"`

	// EstimatedDuration is a rough prediction of execution time.
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// FileAccessDeniedError reports a file the process lacks permission to
// read or modify. It unwraps to fs.ErrPermission so errors.Is checks
// against the standard sentinel keep working.
type FileAccessDeniedError struct {
	Path string
}

// Error implements the error interface.
func (e *FileAccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Path)
}

// Unwrap returns fs.ErrPermission.
func (e *FileAccessDeniedError) Unwrap() error { return fs.ErrPermission }

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It supports plain bytes ("1024"), and K/M/G/T suffixes with optional B/iB
// ("100K", "50MiB", "2GB"). Decimal values are truncated to the nearest byte.
//
// Returns ErrInvalidSize if the format is not recognized.
// Returns ErrNegativeSize if the value is negative.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units for consistency with common filesystem tools.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
