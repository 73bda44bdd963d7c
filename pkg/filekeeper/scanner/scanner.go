package scanner

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/logging"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

// errCeiling aborts the walk when MaxFiles is reached. It never escapes Scan.
var errCeiling = errors.New("scan ceiling reached")

// Scanner walks a directory tree in parallel and collects file entries.
type Scanner struct {
	opts Options
	root string

	dirsScanned  atomic.Int64
	filesScanned atomic.Int64
	bytesScanned atomic.Int64
	truncated    atomic.Bool

	currentPath  atomic.Value
	lastProgress atomic.Int64

	results   []types.FileEntry
	resultsMu sync.Mutex

	errors   []types.ScanError
	errorsMu sync.Mutex
}

// New creates a Scanner. Options are validated and defaults applied.
func New(opts Options) *Scanner {
	_ = opts.Validate()

	s := &Scanner{
		opts:    opts,
		root:    opts.Root.String(),
		results: make([]types.FileEntry, 0),
		errors:  make([]types.ScanError, 0),
	}
	s.currentPath.Store("")
	return s
}

// Scan walks the root and returns the aggregated result. It blocks until
// the walk completes, a ceiling is hit, or the context is cancelled.
func (s *Scanner) Scan(ctx context.Context) (*types.ScanResult, error) {
	logger := logging.Get("scanner")
	start := time.Now()

	s.currentPath.Store(s.root)
	s.reportProgressForce()

	conf := fastwalk.Config{
		Follow: false,
	}

	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		<-walkCtx.Done()
		close(done)
	}()

	err := fastwalk.Walk(&conf, s.root, s.walkCallback(done))
	if err != nil && !errors.Is(err, errCeiling) && !errors.Is(err, fastwalk.ErrSkipFiles) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	s.reportProgressForce()

	result := &types.ScanResult{
		Files:        s.results,
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		TotalSize:    s.bytesScanned.Load(),
		Truncated:    s.truncated.Load(),
		Elapsed:      time.Since(start),
		Errors:       s.errors,
	}
	logger.Debug("scan complete",
		"root", s.root,
		"files", result.FilesScanned,
		"dirs", result.DirsScanned,
		"truncated", result.Truncated,
		"errors", len(result.Errors),
		"elapsed", result.Elapsed)
	return result, nil
}

func (s *Scanner) walkCallback(done <-chan struct{}) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-done:
			return fastwalk.ErrSkipFiles
		default:
		}

		// Record errors and continue past them.
		if err != nil {
			s.addError(path, err)
			return nil
		}

		if path == s.root {
			s.dirsScanned.Add(1)
			return nil
		}

		name := filepath.Base(path)
		if !s.opts.IncludeHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if s.isExcluded(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if s.depth(path) > s.opts.MaxDepth {
				s.truncated.Store(true)
				return fastwalk.SkipDir
			}
			s.dirsScanned.Add(1)
			s.currentPath.Store(path)
			s.reportProgress()
			return nil
		}

		if d.Type().IsRegular() {
			return s.processFile(path, d)
		}
		return nil
	}
}

// processFile stats a regular file and appends it to the results. It
// returns errCeiling once the file-count ceiling is crossed.
func (s *Scanner) processFile(path string, d fs.DirEntry) error {
	if s.filesScanned.Add(1) > s.opts.MaxFiles {
		s.filesScanned.Add(-1)
		s.truncated.Store(true)
		return errCeiling
	}

	info, err := d.Info()
	if err != nil {
		s.addError(path, err)
		s.filesScanned.Add(-1)
		return nil
	}

	s.bytesScanned.Add(info.Size())

	entry := types.NewFileEntry(path, info)

	s.resultsMu.Lock()
	s.results = append(s.results, entry)
	s.resultsMu.Unlock()

	s.reportProgress()
	return nil
}

// depth is the number of path segments below the scan root.
func (s *Scanner) depth(path string) int {
	rel := strings.TrimPrefix(path, s.root+string(filepath.Separator))
	if rel == path || rel == "" {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func (s *Scanner) addError(path string, err error) {
	s.errorsMu.Lock()
	s.errors = append(s.errors, types.ScanError{
		Path:  path,
		Error: err.Error(),
	})
	s.errorsMu.Unlock()
}

// reportProgress calls the progress callback, throttled to every 10ms.
func (s *Scanner) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return
	}
	s.sendProgress()
}

// reportProgressForce bypasses the throttle for scan start and end.
func (s *Scanner) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.sendProgress()
}

func (s *Scanner) sendProgress() {
	currentPath, _ := s.currentPath.Load().(string)

	s.opts.OnProgress(types.ScanProgress{
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		BytesScanned: s.bytesScanned.Load(),
		CurrentPath:  currentPath,
	})
}

func (s *Scanner) isExcluded(path string) bool {
	for _, pattern := range s.opts.Exclude {
		if matchesPattern(path, pattern) {
			return true
		}
	}
	return false
}

func matchesPattern(path, pattern string) bool {
	if pattern == "" {
		return false
	}
	if path == pattern {
		return true
	}
	if strings.HasPrefix(path, pattern+string(filepath.Separator)) {
		return true
	}
	if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
		return true
	}
	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}
	return false
}
