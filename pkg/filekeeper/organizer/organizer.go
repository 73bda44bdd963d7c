// Package organizer plans and executes file moves into category
// directories. Plan generation is pure; execution consumes a plan, is the
// only place mutation occurs, and records every applied move into a
// rollback manifest.
package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/logging"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/pathval"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/rules"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

var logger = logging.Get("organizer")

// perFileCost is the per-move constant behind EstimatedDuration.
const perFileCost = 15 * time.Millisecond

// Options configures planning and execution.
type Options struct {
	// OnConflict is the policy for occupied destinations.
	// Defaults to rename.
	OnConflict types.ConflictPolicy

	// DryRun executes nothing: the plan is produced and returned but no
	// file's path, size, or mtime changes.
	DryRun bool
}

// Stamper finalizes a manifest's integrity fields before persistence.
// The integrity service implements it.
type Stamper interface {
	Stamp(m *manifest.Manifest) error
}

// Statistics summarizes an execution.
type Statistics struct {
	Moved          int            `json:"moved"`
	Skipped        int            `json:"skipped"`
	Failed         int            `json:"failed"`
	BytesMoved     int64          `json:"bytes_moved"`
	Duration       time.Duration  `json:"duration"`
	CategoryCounts map[string]int `json:"category_counts"`
}

// MoveError records one move that failed during execution.
type MoveError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Result reports the outcome of executing a plan.
type Result struct {
	Statistics Statistics        `json:"statistics"`
	Actions    []manifest.Action `json:"actions"`
	Errors     []MoveError       `json:"errors,omitempty"`
	ManifestID string            `json:"manifest_id,omitempty"`
}

// Organizer builds and executes organization plans.
type Organizer struct {
	categorizer *rules.Categorizer
	validator   *pathval.Validator
	store       *manifest.Store
}

// New creates an Organizer.
func New(categorizer *rules.Categorizer, validator *pathval.Validator, store *manifest.Store) *Organizer {
	return &Organizer{
		categorizer: categorizer,
		validator:   validator,
		store:       store,
	}
}

// Plan builds an organization plan for the files under root. Destinations
// are root/<Category>/<name>. Hidden files are always skipped. Conflict
// detection probes the existing filesystem and destinations claimed by
// earlier moves in the same plan; the filesystem is never mutated.
func (o *Organizer) Plan(root pathval.ValidatedPath, files []types.FileEntry, opts Options) *types.OrganizationPlan {
	policy := opts.OnConflict
	if policy == "" {
		policy = types.ConflictRename
	}

	plan := &types.OrganizationPlan{
		Moves:          []types.MoveIntent{},
		CategoryCounts: map[string]int{},
	}
	claimed := map[string]struct{}{}

	for _, file := range files {
		if file.Hidden() {
			plan.Skipped = append(plan.Skipped, types.SkippedFile{
				Path: file.Path, Reason: "hidden file",
			})
			continue
		}

		category := o.categorizer.Categorize(file)
		dest := filepath.Join(root.String(), category, file.Name)

		if dest == file.Path {
			plan.Skipped = append(plan.Skipped, types.SkippedFile{
				Path: file.Path, Reason: "already organized",
			})
			continue
		}

		intent := types.MoveIntent{
			Source:      file.Path,
			Destination: dest,
			Category:    category,
		}

		if occupied(dest, claimed) {
			intent.HasConflict = true
			plan.Conflicts++

			switch policy {
			case types.ConflictRename:
				intent.Destination = nextFreeName(dest, claimed)
				intent.Resolution = fmt.Sprintf("renamed to %s", filepath.Base(intent.Destination))
			case types.ConflictSkip:
				plan.Skipped = append(plan.Skipped, types.SkippedFile{
					Path: file.Path, Reason: "destination occupied",
				})
				continue
			case types.ConflictOverwrite:
				intent.Resolution = "overwrite"
			case types.ConflictOverwriteIfNewer:
				intent.Resolution = "overwrite if newer"
			}
		}

		claimed[intent.Destination] = struct{}{}
		plan.Moves = append(plan.Moves, intent)
		plan.CategoryCounts[category]++
	}

	plan.EstimatedDuration = time.Duration(len(plan.Moves)) * perFileCost
	return plan
}

// Organize plans and, unless DryRun is set, executes in one call.
func (o *Organizer) Organize(ctx context.Context, root pathval.ValidatedPath, files []types.FileEntry, opts Options, stamper Stamper) (*types.OrganizationPlan, *Result, error) {
	plan := o.Plan(root, files, opts)
	if opts.DryRun {
		return plan, &Result{Statistics: Statistics{
			Skipped:        len(plan.Skipped),
			CategoryCounts: plan.CategoryCounts,
		}}, nil
	}

	result, err := o.Execute(ctx, root, plan, opts, stamper)
	return plan, result, err
}

// Execute applies a plan move by move. One file's failure is recorded and
// does not halt the batch. Applied moves are appended to a rollback
// manifest in apply order; the manifest is stamped and persisted after the
// batch completes. A directory-scoped advisory lock serializes concurrent
// executions against the same root.
func (o *Organizer) Execute(ctx context.Context, root pathval.ValidatedPath, plan *types.OrganizationPlan, opts Options, stamper Stamper) (*Result, error) {
	start := time.Now()

	unlock, err := lockRoot(ctx, root.String())
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", root.String(), err)
	}
	defer unlock()

	policy := opts.OnConflict
	if policy == "" {
		policy = types.ConflictRename
	}

	m := o.store.New(fmt.Sprintf("organize %s (%d moves)", root.String(), len(plan.Moves)))
	result := &Result{Statistics: Statistics{CategoryCounts: map[string]int{}}}

	for _, move := range plan.Moves {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		applied, err := o.applyMove(move, policy, m)
		if err != nil {
			result.Errors = append(result.Errors, MoveError{Source: move.Source, Error: err.Error()})
			result.Statistics.Failed++
			continue
		}
		if !applied {
			result.Statistics.Skipped++
			continue
		}

		result.Statistics.Moved++
		result.Statistics.CategoryCounts[move.Category]++
		if info, statErr := os.Stat(move.Destination); statErr == nil {
			result.Statistics.BytesMoved += info.Size()
		}
	}
	result.Statistics.Skipped += len(plan.Skipped)
	result.Statistics.Duration = time.Since(start)
	result.Actions = m.Actions

	if len(m.Actions) > 0 {
		if err := stamper.Stamp(m); err != nil {
			return result, fmt.Errorf("stamping manifest: %w", err)
		}
		if err := o.store.Persist(ctx, m); err != nil {
			return result, fmt.Errorf("persisting manifest: %w", err)
		}
		result.ManifestID = m.ID
	}

	logger.Info("organize complete", "root", root.String(),
		"moved", result.Statistics.Moved, "skipped", result.Statistics.Skipped,
		"failed", result.Statistics.Failed)
	return result, nil
}

// applyMove performs one move, re-resolving conflicts against the live
// filesystem. Returns false when the move was skipped by policy.
func (o *Organizer) applyMove(move types.MoveIntent, policy types.ConflictPolicy, m *manifest.Manifest) (bool, error) {
	source, err := o.validator.Validate(move.Source)
	if err != nil {
		return false, fmt.Errorf("source failed validation: %w", err)
	}

	dest, err := o.validator.Validate(move.Destination)
	if err != nil {
		return false, fmt.Errorf("destination failed validation: %w", err)
	}
	destPath := dest.String()

	srcInfo, err := os.Stat(source.String())
	if err != nil {
		return false, fmt.Errorf("source no longer accessible: %w", err)
	}

	// The filesystem may have changed since planning; re-check the
	// destination under the live state.
	if destInfo, err := os.Stat(destPath); err == nil {
		switch policy {
		case types.ConflictSkip:
			return false, nil
		case types.ConflictOverwriteIfNewer:
			if !srcInfo.ModTime().After(destInfo.ModTime()) {
				return false, nil
			}
		case types.ConflictRename:
			destPath = nextFreeName(destPath, map[string]struct{}{})
		case types.ConflictOverwrite:
			// Replace unconditionally.
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return false, fmt.Errorf("creating category directory: %w", err)
	}

	if err := moveFile(source.String(), destPath); err != nil {
		return false, err
	}

	m.Actions = append(m.Actions, manifest.Action{
		Type:         manifest.ActionMove,
		OriginalPath: source.String(),
		CurrentPath:  destPath,
		Timestamp:    time.Now().UTC(),
	})
	return true, nil
}

// occupied reports whether dest exists on disk or is claimed by an
// earlier move in the same plan.
func occupied(dest string, claimed map[string]struct{}) bool {
	if _, ok := claimed[dest]; ok {
		return true
	}
	_, err := os.Lstat(dest)
	return err == nil
}

// nextFreeName probes "name (1).ext", "name (2).ext", ... until a name is
// free both on disk and among destinations claimed by this plan.
func nextFreeName(dest string, claimed map[string]struct{}) string {
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if !occupied(candidate, claimed) {
			return candidate
		}
	}
}
