// Package output provides formatters for displaying filekeeper results
// in various output formats (pretty, plain, json).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.FormatScan(&buf, report); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/organizer"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

// FileRow is a single file prepared for display.
type FileRow struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	Modified  time.Time `json:"modified"`
}

// ScanReport contains scan results prepared for display.
type ScanReport struct {
	Source       string            `json:"source"`
	Files        []FileRow         `json:"files"`
	DirsScanned  int64             `json:"dirs_scanned"`
	FilesScanned int64             `json:"files_scanned"`
	TotalSize    int64             `json:"total_size"`
	Truncated    bool              `json:"truncated"`
	Elapsed      time.Duration     `json:"elapsed"`
	Errors       []types.ScanError `json:"errors,omitempty"`
}

// NewScanReport converts a scan result for display.
func NewScanReport(source string, r *types.ScanResult) *ScanReport {
	files := make([]FileRow, len(r.Files))
	for i, f := range r.Files {
		files[i] = FileRow{
			Path:      f.Path,
			Name:      f.Name,
			Size:      f.Size,
			SizeHuman: f.HumanSize(),
			Modified:  f.Modified,
		}
	}
	return &ScanReport{
		Source:       source,
		Files:        files,
		DirsScanned:  r.DirsScanned,
		FilesScanned: r.FilesScanned,
		TotalSize:    r.TotalSize,
		Truncated:    r.Truncated,
		Elapsed:      r.Elapsed,
		Errors:       r.Errors,
	}
}

// GroupRow is a duplicate group prepared for display.
type GroupRow struct {
	Digest          string    `json:"digest"`
	Files           []FileRow `json:"files"`
	RecommendedKeep string    `json:"recommended_keep"`
	WastedBytes     int64     `json:"wasted_bytes"`
}

// DupesReport contains duplicate detection results prepared for display.
type DupesReport struct {
	Source      string     `json:"source"`
	Strategy    string     `json:"strategy"`
	Groups      []GroupRow `json:"groups"`
	TotalWasted int64      `json:"total_wasted"`
}

// NewDupesReport converts duplicate groups for display.
func NewDupesReport(source, strategy string, groups []types.DuplicateGroup) *DupesReport {
	report := &DupesReport{
		Source:   source,
		Strategy: strategy,
		Groups:   make([]GroupRow, len(groups)),
	}
	for i, g := range groups {
		row := GroupRow{
			Digest:          g.Digest,
			RecommendedKeep: g.RecommendedKeep,
			WastedBytes:     g.WastedBytes,
			Files:           make([]FileRow, len(g.Files)),
		}
		for j, f := range g.Files {
			row.Files[j] = FileRow{
				Path:      f.Path,
				Name:      f.Name,
				Size:      f.Size,
				SizeHuman: f.HumanSize(),
				Modified:  f.Modified,
			}
		}
		report.Groups[i] = row
		report.TotalWasted += g.WastedBytes
	}
	return report
}

// MoveRow is a planned or executed move prepared for display.
type MoveRow struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Category    string `json:"category"`
	Renamed     bool   `json:"renamed"`
}

// PlanReport contains an organization plan prepared for display.
type PlanReport struct {
	Source            string              `json:"source"`
	DryRun            bool                `json:"dry_run"`
	Moves             []MoveRow           `json:"moves"`
	Skipped           []types.SkippedFile `json:"skipped,omitempty"`
	Conflicts         int                 `json:"conflicts"`
	CategoryCounts    map[string]int      `json:"category_counts"`
	EstimatedDuration time.Duration       `json:"estimated_duration"`
}

// NewPlanReport converts an organization plan for display.
func NewPlanReport(source string, plan *types.OrganizationPlan, dryRun bool) *PlanReport {
	moves := make([]MoveRow, len(plan.Moves))
	for i, m := range plan.Moves {
		moves[i] = MoveRow{
			Source:      m.Source,
			Destination: m.Destination,
			Category:    m.Category,
			Renamed:     m.HasConflict,
		}
	}
	return &PlanReport{
		Source:            source,
		DryRun:            dryRun,
		Moves:             moves,
		Skipped:           plan.Skipped,
		Conflicts:         plan.Conflicts,
		CategoryCounts:    plan.CategoryCounts,
		EstimatedDuration: plan.EstimatedDuration,
	}
}

// OrganizeReport contains organization execution results prepared for display.
type OrganizeReport struct {
	Source     string                `json:"source"`
	Moved      int                   `json:"moved"`
	Skipped    int                   `json:"skipped"`
	Failed     int                   `json:"failed"`
	BytesMoved int64                 `json:"bytes_moved"`
	ManifestID string                `json:"manifest_id,omitempty"`
	Errors     []organizer.MoveError `json:"errors,omitempty"`
}

// NewOrganizeReport converts an execution result for display.
func NewOrganizeReport(source string, r *organizer.Result) *OrganizeReport {
	return &OrganizeReport{
		Source:     source,
		Moved:      r.Statistics.Moved,
		Skipped:    r.Statistics.Skipped,
		Failed:     r.Statistics.Failed,
		BytesMoved: r.Statistics.BytesMoved,
		ManifestID: r.ManifestID,
		Errors:     r.Errors,
	}
}

// UndoReport contains undo results prepared for display.
type UndoReport struct {
	ManifestID  string                `json:"manifest_id"`
	Description string                `json:"description,omitempty"`
	Restored    int                   `json:"restored"`
	Failed      []manifest.UndoFailure `json:"failed,omitempty"`
}

// NewUndoReport converts an undo result for display.
func NewUndoReport(m *manifest.Manifest, r *manifest.UndoResult) *UndoReport {
	return &UndoReport{
		ManifestID:  m.ID,
		Description: m.Description,
		Restored:    r.Restored,
		Failed:      r.Failed,
	}
}

// HistoryRow is a recorded manifest prepared for display.
type HistoryRow struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Actions     int       `json:"actions"`
}

// HistoryReport lists recorded manifests, newest first.
type HistoryReport struct {
	Manifests []HistoryRow `json:"manifests"`
}

// NewHistoryReport converts stored manifests for display.
func NewHistoryReport(manifests []manifest.Manifest) *HistoryReport {
	rows := make([]HistoryRow, len(manifests))
	for i, m := range manifests {
		rows[i] = HistoryRow{
			ID:          m.ID,
			Timestamp:   m.Timestamp,
			Description: m.Description,
			Actions:     len(m.Actions),
		}
	}
	return &HistoryReport{Manifests: rows}
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	FormatScan(w *bytes.Buffer, r *ScanReport) error
	FormatDupes(w *bytes.Buffer, r *DupesReport) error
	FormatPlan(w *bytes.Buffer, r *PlanReport) error
	FormatOrganize(w *bytes.Buffer, r *OrganizeReport) error
	FormatUndo(w *bytes.Buffer, r *UndoReport) error
	FormatHistory(w *bytes.Buffer, r *HistoryReport) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
