package dupes

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/pathval"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

// DeleteFailure records one path that could not be deleted.
type DeleteFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// DeleteResult reports the outcome of a deletion batch.
type DeleteResult struct {
	// Deleted lists paths successfully removed.
	Deleted []string `json:"deleted"`

	// Failed lists paths that could not be removed, with reasons.
	Failed []DeleteFailure `json:"failed,omitempty"`

	// BytesFreed is the total size of the deleted files.
	BytesFreed int64 `json:"bytes_freed"`
}

// DeleteOptions configures a deletion batch.
type DeleteOptions struct {
	// ExpectedSizes maps path to the size observed at scan time. When a
	// path is present, deletion is refused if the file's current size
	// differs, catching files changed between scan and action.
	ExpectedSizes map[string]int64

	// DryRun reports what would be deleted without touching anything.
	DryRun bool
}

// Deleter removes duplicate files with re-validation, backups, and
// rollback recording.
type Deleter struct {
	validator *pathval.Validator
	store     *manifest.Store
}

// Stamper finalizes a manifest's integrity fields before persistence.
// The integrity service implements it.
type Stamper interface {
	Stamp(m *manifest.Manifest) error
}

// NewDeleter creates a Deleter.
func NewDeleter(validator *pathval.Validator, store *manifest.Store) *Deleter {
	return &Deleter{validator: validator, store: store}
}

// Delete removes the given paths. Each path is re-validated through the
// path validator and re-checked on disk immediately before unlinking, and
// a backup is taken so the deletion can be undone. One path's failure is
// recorded and does not abort the batch.
//
// The rollback manifest records actions in the order they were applied and
// is stamped and persisted after the batch completes; nothing is persisted
// for a dry run or when no file was actually deleted.
func (d *Deleter) Delete(ctx context.Context, paths []string, opts DeleteOptions, stamper Stamper) (*DeleteResult, *manifest.Manifest, error) {
	result := &DeleteResult{Deleted: []string{}}
	m := d.store.New(fmt.Sprintf("delete %d duplicate files", len(paths)))

	for _, raw := range paths {
		if err := ctx.Err(); err != nil {
			return result, nil, err
		}

		if err := d.deleteOne(raw, opts, m, result); err != nil {
			result.Failed = append(result.Failed, DeleteFailure{Path: raw, Error: err.Error()})
		}
	}

	if opts.DryRun || len(m.Actions) == 0 {
		return result, nil, nil
	}

	if err := stamper.Stamp(m); err != nil {
		return result, nil, fmt.Errorf("stamping manifest: %w", err)
	}
	if err := d.store.Persist(ctx, m); err != nil {
		return result, nil, fmt.Errorf("persisting manifest: %w", err)
	}

	logger.Info("deletion batch complete",
		"deleted", len(result.Deleted), "failed", len(result.Failed),
		"freed", result.BytesFreed, "manifest", m.ID)
	return result, m, nil
}

// deleteOne validates, verifies, backs up, and unlinks a single path.
func (d *Deleter) deleteOne(raw string, opts DeleteOptions, m *manifest.Manifest, result *DeleteResult) error {
	validated, err := d.validator.Validate(raw)
	if err != nil {
		return err
	}
	path := validated.String()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file no longer accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("refusing to delete a directory")
	}
	if expected, ok := opts.ExpectedSizes[raw]; ok && info.Size() != expected {
		return fmt.Errorf("file changed since scan (size %d, expected %d)", info.Size(), expected)
	}

	if opts.DryRun {
		result.Deleted = append(result.Deleted, path)
		result.BytesFreed += info.Size()
		return nil
	}

	backupPath, err := d.store.BackupFile(m, path)
	if err != nil {
		return fmt.Errorf("backup failed, file not deleted: %w", err)
	}

	if err := os.Remove(path); err != nil {
		// The file survives, so the backup copy has nothing to roll back.
		if rmErr := os.Remove(backupPath); rmErr != nil {
			logger.Warn("could not clean up backup copy", "path", backupPath, "error", rmErr)
		}
		if os.IsPermission(err) {
			return &types.FileAccessDeniedError{Path: path}
		}
		return err
	}

	m.Actions = append(m.Actions, manifest.Action{
		Type:         manifest.ActionDelete,
		OriginalPath: path,
		BackupPath:   backupPath,
		Timestamp:    time.Now().UTC(),
	})
	result.Deleted = append(result.Deleted, path)
	result.BytesFreed += info.Size()
	return nil
}
