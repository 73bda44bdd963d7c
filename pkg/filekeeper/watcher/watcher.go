// Package watcher keeps the digest cache honest. It watches directories
// for filesystem changes and drops cached digests for any path that is
// written, created, removed, or renamed, so a later dedupe pass rehashes
// the file instead of trusting a stale entry.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/hashcache"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/logging"
)

// Watcher invalidates digest cache entries in response to filesystem events.
type Watcher struct {
	cache   *hashcache.Cache
	watcher *fsnotify.Watcher
	paths   map[string]bool
	mu      sync.Mutex
	closed  bool
}

// New creates a Watcher that invalidates entries in cache.
func New(cache *hashcache.Cache) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		cache:   cache,
		watcher: fsw,
		paths:   make(map[string]bool),
	}, nil
}

// Watch starts watching a directory tree. Watches are added to the root
// and every subdirectory; symlinks are not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Unwatch stops watching a directory tree.
func (w *Watcher) Unwatch(root string) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	for path := range w.paths {
		if path == absRoot || isSubPath(path, absRoot) {
			_ = w.watcher.Remove(path)
			delete(w.paths, path)
		}
	}
}

// Run processes events until the context is cancelled. The optional
// onChange callback is invoked after each invalidation.
func (w *Watcher) Run(ctx context.Context, onChange func(path string, op fsnotify.Op)) {
	logger := logging.Get("watcher")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
			if onChange != nil {
				onChange(event.Name, event.Op)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(event.Name)
	case event.Op&fsnotify.Write != 0:
		_ = w.cache.Invalidate(event.Name)
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		// A rename is a remove at this name; a later create covers the
		// new name.
		w.handleRemove(event.Name)
	}
}

// handleCreate drops any stale digest for the path and, for directories,
// starts watching the new subtree.
func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		return // Already gone.
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return
	}

	if !info.IsDir() {
		_ = w.cache.Invalidate(path)
		return
	}

	_ = w.addWatch(path)
	_ = filepath.WalkDir(path, func(subpath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() && subpath != path {
			_ = w.addWatch(subpath)
		}
		return nil
	})
}

func (w *Watcher) handleRemove(path string) {
	w.mu.Lock()
	if w.paths[path] {
		_ = w.watcher.Remove(path)
		delete(w.paths, path)
	}
	for childPath := range w.paths {
		if isSubPath(childPath, path) {
			_ = w.watcher.Remove(childPath)
			delete(w.paths, childPath)
		}
	}
	w.mu.Unlock()

	// The removed path may have been a directory, so drop the whole
	// prefix as well as the exact entry.
	_ = w.cache.Invalidate(path)
	_ = w.cache.InvalidatePrefix(path)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
