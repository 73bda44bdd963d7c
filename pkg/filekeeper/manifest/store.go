package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/logging"
)

var logger = logging.Get("manifest")

// ErrNotFound is returned when a requested manifest does not exist.
var ErrNotFound = errors.New("manifest not found")

// ErrNoManifests is returned by Latest when the store is empty.
var ErrNoManifests = errors.New("no manifests recorded")

// lockStaleTimeout bounds how long Persist waits for the latest-pointer
// lock before treating the holder as stale.
const lockStaleTimeout = 10 * time.Second

// writeRetryBackoff is the pause before the single retry of a failed
// manifest write (e.g. transient disk-full).
const writeRetryBackoff = 250 * time.Millisecond

// Store owns manifest persistence. One JSON document is written per
// operation; documents are never mutated after persistence. The pointer to
// the most recent manifest is guarded by an advisory file lock so that
// concurrent processes do not interleave updates.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created lazily
// by the first Persist.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// New creates an in-memory manifest for a new operation. Actions are
// appended by the caller as mutations are applied, then the manifest is
// stamped by the integrity service and handed to Persist.
func (s *Store) New(description string) *Manifest {
	return &Manifest{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Description: description,
		Actions:     []Action{},
		Version:     Version,
	}
}

// Persist writes the manifest document and advances the latest pointer.
// The caller must have stamped the manifest first. A failed write is
// retried exactly once after a short backoff; a second failure is returned.
func (s *Store) Persist(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Hash == "" || m.Signature == "" {
		return errors.New("refusing to persist unstamped manifest")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	path := filepath.Join(s.dir, m.ID+".json")
	if err := s.writeDocument(path, m); err != nil {
		logger.Warn("manifest write failed, retrying once", "id", m.ID, "error", err)
		select {
		case <-time.After(writeRetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := s.writeDocument(path, m); err != nil {
			return fmt.Errorf("writing manifest after retry: %w", err)
		}
	}

	if err := s.updateLatest(ctx, m.ID); err != nil {
		return fmt.Errorf("updating latest pointer: %w", err)
	}

	logger.Info("manifest persisted", "id", m.ID, "actions", len(m.Actions))
	return nil
}

// writeDocument writes the manifest atomically via temp file and rename.
func (s *Store) writeDocument(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// updateLatest rewrites the latest-pointer file under an advisory lock.
// The lock marker records a millisecond timestamp for diagnostics; a holder
// that does not yield within lockStaleTimeout is reported as stale.
func (s *Store) updateLatest(ctx context.Context, id string) error {
	lockPath := filepath.Join(s.dir, "latest.lock")
	fl := flock.New(lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, lockStaleTimeout)
	defer cancel()

	acquired, err := fl.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("acquiring latest lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("latest pointer locked for over %s, possible stale holder", lockStaleTimeout)
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn("releasing latest lock", "error", err)
		}
	}()

	marker := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := os.WriteFile(lockPath, []byte(marker), 0o644); err != nil {
		logger.Warn("writing lock marker", "error", err)
	}

	pointer := filepath.Join(s.dir, "latest")
	tmp := pointer + ".tmp"
	if err := os.WriteFile(tmp, []byte(id), 0o644); err != nil {
		return fmt.Errorf("writing latest pointer: %w", err)
	}
	if err := os.Rename(tmp, pointer); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming latest pointer: %w", err)
	}

	return nil
}

// Get loads a manifest by ID.
func (s *Store) Get(id string) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readDocument(id)
}

func (s *Store) readDocument(id string) (*Manifest, error) {
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: invalid id", ErrNotFound)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// Latest returns the most recently persisted manifest, the only one
// directly eligible for undo.
func (s *Store) Latest() (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, "latest"))
	if os.IsNotExist(err) {
		return nil, ErrNoManifests
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest pointer: %w", err)
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return nil, ErrNoManifests
	}
	return s.readDocument(id)
}

// List returns manifests sorted by timestamp descending (newest first).
// If limit is 0 or negative, all manifests are returned. Documents that
// fail to parse are skipped; older manifests are retained for audit even
// though only the latest is directly restorable.
func (s *Store) List(limit int) ([]Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Manifest{}, nil
		}
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}

	manifests := []Manifest{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		m, err := s.readDocument(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		manifests = append(manifests, *m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].Timestamp.After(manifests[j].Timestamp)
	})

	if limit > 0 && len(manifests) > limit {
		manifests = manifests[:limit]
	}

	return manifests, nil
}

// Prune removes manifests older than retention, along with their backup
// directories. The manifest the latest pointer names is always kept, so
// undo of the most recent operation survives any retention setting.
// Returns the number of manifests removed.
func (s *Store) Prune(retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading manifest directory: %w", err)
	}

	var latestID string
	if data, err := os.ReadFile(filepath.Join(s.dir, "latest")); err == nil {
		latestID = strings.TrimSpace(string(data))
	}

	cutoff := time.Now().UTC().Add(-retention)
	pruned := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		if id == latestID {
			continue
		}
		m, err := s.readDocument(id)
		if err != nil {
			continue
		}
		if !m.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			logger.Warn("pruning manifest", "id", id, "error", err)
			continue
		}
		_ = os.RemoveAll(filepath.Join(s.dir, "backups", id))
		pruned++
	}

	if pruned > 0 {
		logger.Info("pruned manifests", "count", pruned, "retention", retention)
	}
	return pruned, nil
}

// BackupFile copies path into the store's backup area for the given
// manifest before the file is deleted, returning the backup path.
func (s *Store) BackupFile(m *Manifest, path string) (string, error) {
	backupDir := filepath.Join(s.dir, "backups", m.ID)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	backupPath := filepath.Join(backupDir,
		fmt.Sprintf("%d_%s", len(m.Actions), filepath.Base(path)))

	if err := copyFile(path, backupPath); err != nil {
		return "", fmt.Errorf("backing up file: %w", err)
	}
	return backupPath, nil
}

// copyFile copies src to dst, preserving the file mode.
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
	return out.Close()
}
