package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

// lockFileName is the advisory lock marker written inside the root being
// organized. It serializes concurrent organize batches against the same
// directory; it does not guard against unrelated writers.
const lockFileName = ".filekeeper.lock"

// lockAcquireTimeout bounds how long Execute waits for a concurrent batch
// on the same root before giving up.
const lockAcquireTimeout = 30 * time.Second

// lockRoot takes the directory-scoped advisory lock for root and returns
// the release function.
func lockRoot(ctx context.Context, root string) (func(), error) {
	lockPath := filepath.Join(root, lockFileName)
	fl := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	acquired, err := fl.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquiring directory lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("directory is locked by another organize operation")
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn("releasing directory lock", "path", lockPath, "error", err)
		}
		_ = os.Remove(lockPath)
	}, nil
}

// moveFile renames src to dst, falling back to copy+remove when the
// rename crosses a filesystem boundary.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst preserving mode and modification time, so an
// undo across filesystems restores the original metadata.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
