package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/pathval"
)

// Verifier checks a manifest's integrity before undo is honored.
// The integrity service implements it.
type Verifier interface {
	Verify(m *Manifest) error
}

// UndoFailure records one action that could not be reversed.
type UndoFailure struct {
	Action Action `json:"action"`
	Error  string `json:"error"`
}

// UndoResult reports the outcome of replaying a manifest in reverse.
type UndoResult struct {
	// ManifestID is the manifest that was replayed.
	ManifestID string `json:"manifest_id"`

	// Restored counts actions successfully reversed.
	Restored int `json:"restored"`

	// Failed lists actions that could not be reversed.
	Failed []UndoFailure `json:"failed,omitempty"`
}

// Undo verifies m and replays its actions in reverse apply order. A
// verification failure is fatal: no filesystem mutation is performed once
// tampering is suspected. Per-action failures during replay are recorded
// and do not abort the remaining actions.
//
// Every target path is re-validated through the supplied validator before
// it is touched.
func (s *Store) Undo(ctx context.Context, m *Manifest, verifier Verifier, validator *pathval.Validator) (*UndoResult, error) {
	if err := verifier.Verify(m); err != nil {
		logger.Error("undo refused", "id", m.ID, "error", err)
		return nil, err
	}

	result := &UndoResult{ManifestID: m.ID}

	for i := len(m.Actions) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		action := m.Actions[i]
		if err := s.undoAction(action, validator); err != nil {
			logger.Warn("undo action failed", "id", m.ID, "type", action.Type, "error", err)
			result.Failed = append(result.Failed, UndoFailure{
				Action: action,
				Error:  err.Error(),
			})
			continue
		}
		result.Restored++
	}

	logger.Info("undo complete", "id", m.ID, "restored", result.Restored, "failed", len(result.Failed))
	return result, nil
}

// undoAction reverses a single recorded mutation.
func (s *Store) undoAction(action Action, validator *pathval.Validator) error {
	original, err := validator.Validate(action.OriginalPath)
	if err != nil {
		return fmt.Errorf("validating original path: %w", err)
	}

	switch action.Type {
	case ActionMove:
		current, err := validator.Validate(action.CurrentPath)
		if err != nil {
			return fmt.Errorf("validating current path: %w", err)
		}
		if _, err := os.Stat(current.String()); err != nil {
			return fmt.Errorf("moved file no longer present: %w", err)
		}
		if _, err := os.Stat(original.String()); err == nil {
			return fmt.Errorf("original path is occupied")
		}
		if err := os.MkdirAll(original.Dir(), 0o755); err != nil {
			return fmt.Errorf("recreating original directory: %w", err)
		}
		return rename(current.String(), original.String())

	case ActionCopy:
		current, err := validator.Validate(action.CurrentPath)
		if err != nil {
			return fmt.Errorf("validating current path: %w", err)
		}
		return os.Remove(current.String())

	case ActionDelete:
		if action.BackupPath == "" {
			return fmt.Errorf("no backup recorded, cannot restore")
		}
		if _, err := os.Stat(action.BackupPath); err != nil {
			return fmt.Errorf("backup missing: %w", err)
		}
		if _, err := os.Stat(original.String()); err == nil {
			return fmt.Errorf("original path is occupied")
		}
		if err := os.MkdirAll(original.Dir(), 0o755); err != nil {
			return fmt.Errorf("recreating original directory: %w", err)
		}
		return copyFile(action.BackupPath, original.String())

	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

// rename moves a file, falling back to copy+remove when the rename crosses
// a filesystem boundary.
func rename(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// isCrossDevice reports whether err is an EXDEV rename failure.
func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
