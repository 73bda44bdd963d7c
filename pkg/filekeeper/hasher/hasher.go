// Package hasher computes streaming content digests for duplicate
// detection. Files are read through a fixed buffer and never loaded whole;
// an optional hash cache avoids re-hashing files whose size and mtime are
// unchanged.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/hashcache"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/logging"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

var logger = logging.Get("hasher")

// DefaultMaxFileSize is the largest file the hasher will read.
const DefaultMaxFileSize = 10 * types.GiB

// DefaultConcurrency is the number of concurrent hash computations in
// DigestAll. Parallelism comes from independently issued reads, not
// unbounded fan-out.
const DefaultConcurrency = 4

// FileTooLargeError reports a file over the configured size ceiling.
type FileTooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

// Error implements the error interface.
func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file %s exceeds the %s hashing limit (%s)",
		e.Path, types.FormatSize(e.Limit), types.FormatSize(e.Size))
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithCache attaches a digest cache.
func WithCache(c *hashcache.Cache) Option {
	return func(h *Hasher) { h.cache = c }
}

// WithMaxFileSize overrides the size ceiling.
func WithMaxFileSize(n int64) Option {
	return func(h *Hasher) { h.maxFileSize = n }
}

// WithConcurrency overrides the DigestAll worker count.
func WithConcurrency(n int) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

// Hasher computes SHA-256 content digests. It is safe for concurrent use.
type Hasher struct {
	cache       *hashcache.Cache
	maxFileSize int64
	concurrency int
}

// New creates a Hasher.
func New(opts ...Option) *Hasher {
	h := &Hasher{
		maxFileSize: DefaultMaxFileSize,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Digest returns the hex SHA-256 digest of the file's content.
func (h *Hasher) Digest(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > h.maxFileSize {
		return "", &FileTooLargeError{Path: path, Size: info.Size(), Limit: h.maxFileSize}
	}

	if h.cache != nil {
		if digest, err := h.cache.Get(path, info.Size(), info.ModTime().UnixNano()); err == nil {
			return digest, nil
		} else if !errors.Is(err, hashcache.ErrNotFound) {
			logger.Warn("hash cache read failed", "path", path, "error", err)
		}
	}

	digest, err := h.hashFile(ctx, path)
	if err != nil {
		return "", err
	}

	if h.cache != nil {
		if err := h.cache.Put(path, info.Size(), info.ModTime().UnixNano(), digest); err != nil {
			logger.Warn("hash cache write failed", "path", path, "error", err)
		}
	}

	return digest, nil
}

// hashFile streams the file through SHA-256, checking for cancellation
// between chunks.
func (h *Hasher) hashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", &types.FileAccessDeniedError{Path: path}
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sum := sha256.New()
	buf := make([]byte, 256*1024)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(sum.Sum(nil)), nil
}

// Result pairs an input file with its digest or error.
type Result struct {
	Entry  types.FileEntry
	Digest string
	Err    error
}

// DigestAll hashes the given files with a bounded worker pool and returns
// results in input order. Per-file failures are recorded in their Result;
// they never abort the batch.
func (h *Hasher) DigestAll(ctx context.Context, files []types.FileEntry) []Result {
	results := make([]Result, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < h.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				digest, err := h.Digest(ctx, files[i].Path)
				results[i] = Result{Entry: files[i], Digest: digest, Err: err}
			}
		}()
	}

	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// Mark the rest as cancelled and stop feeding.
			for j := i; j < len(files); j++ {
				if results[j].Entry.Path == "" {
					results[j] = Result{Entry: files[j], Err: ctx.Err()}
				}
			}
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
