package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/pathval"
)

// stubVerifier approves or rejects every manifest.
type stubVerifier struct {
	err error
}

func (v stubVerifier) Verify(*Manifest) error { return v.err }

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "manifests"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func stamped(m *Manifest) *Manifest {
	m.Hash = "deadbeef"
	m.Signature = "cafebabe"
	return m
}

func unrestricted(t *testing.T) *pathval.Validator {
	t.Helper()
	v, err := pathval.New(pathval.ModeUnrestricted)
	if err != nil {
		t.Fatalf("pathval.New() error = %v", err)
	}
	return v
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(""); err == nil {
		t.Fatal("NewStore(\"\") error = nil, want error")
	}

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if s == nil {
		t.Fatal("NewStore() returned nil")
	}
}

func TestStore_New(t *testing.T) {
	t.Parallel()
	s := setupStore(t)

	m := s.New("test operation")
	if m.ID == "" {
		t.Error("manifest ID is empty")
	}
	if m.Description != "test operation" {
		t.Errorf("Description = %q, want %q", m.Description, "test operation")
	}
	if m.Version != Version {
		t.Errorf("Version = %q, want %q", m.Version, Version)
	}
	if m.Actions == nil {
		t.Error("Actions is nil, want empty slice")
	}

	m2 := s.New("another")
	if m.ID == m2.ID {
		t.Error("two manifests share an ID")
	}
}

func TestStore_PersistRejectsUnstamped(t *testing.T) {
	t.Parallel()
	s := setupStore(t)

	m := s.New("unstamped")
	if err := s.Persist(context.Background(), m); err == nil {
		t.Fatal("Persist() accepted an unstamped manifest")
	}
}

func TestStore_PersistAndGet(t *testing.T) {
	t.Parallel()
	s := setupStore(t)

	m := stamped(s.New("op"))
	m.Actions = append(m.Actions, Action{
		Type:         ActionMove,
		OriginalPath: "/a/x.txt",
		CurrentPath:  "/a/Documents/x.txt",
		Timestamp:    time.Now().UTC(),
	})

	if err := s.Persist(context.Background(), m); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	got, err := s.Get(m.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != m.ID {
		t.Errorf("ID = %q, want %q", got.ID, m.ID)
	}
	if len(got.Actions) != 1 {
		t.Fatalf("len(Actions) = %d, want 1", len(got.Actions))
	}
	if got.Actions[0].Type != ActionMove {
		t.Errorf("action type = %q, want %q", got.Actions[0].Type, ActionMove)
	}

	if _, err := s.Get("no-such-id"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_Latest(t *testing.T) {
	t.Parallel()
	s := setupStore(t)

	if _, err := s.Latest(); err != ErrNoManifests {
		t.Fatalf("Latest() on empty store error = %v, want ErrNoManifests", err)
	}

	first := stamped(s.New("first"))
	if err := s.Persist(context.Background(), first); err != nil {
		t.Fatalf("Persist(first) error = %v", err)
	}

	second := stamped(s.New("second"))
	if err := s.Persist(context.Background(), second); err != nil {
		t.Fatalf("Persist(second) error = %v", err)
	}

	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("Latest().ID = %q, want %q", latest.ID, second.ID)
	}
}

func TestStore_List(t *testing.T) {
	t.Parallel()
	s := setupStore(t)

	for i := 0; i < 3; i++ {
		m := stamped(s.New("op"))
		m.Timestamp = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := s.Persist(context.Background(), m); err != nil {
			t.Fatalf("Persist() error = %v", err)
		}
	}

	all, err := s.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(List(0)) = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Error("List() not sorted newest first")
		}
	}

	limited, err := s.List(2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len(List(2)) = %d, want 2", len(limited))
	}
}

func TestStore_BackupFile(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	dir := t.TempDir()

	src := filepath.Join(dir, "doomed.txt")
	if err := os.WriteFile(src, []byte("precious"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := s.New("delete")
	backupPath, err := s.BackupFile(m, src)
	if err != nil {
		t.Fatalf("BackupFile() error = %v", err)
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(data) != "precious" {
		t.Errorf("backup content = %q, want %q", data, "precious")
	}
}

func TestStore_UndoMove(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	dir := t.TempDir()

	original := filepath.Join(dir, "doc.txt")
	moved := filepath.Join(dir, "Documents", "doc.txt")
	if err := os.MkdirAll(filepath.Dir(moved), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(moved, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := stamped(s.New("organize"))
	m.Actions = append(m.Actions, Action{
		Type:         ActionMove,
		OriginalPath: original,
		CurrentPath:  moved,
		Timestamp:    time.Now().UTC(),
	})

	result, err := s.Undo(context.Background(), m, stubVerifier{}, unrestricted(t))
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if result.Restored != 1 {
		t.Errorf("Restored = %d, want 1", result.Restored)
	}

	data, err := os.ReadFile(original)
	if err != nil {
		t.Fatalf("file not restored: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("restored content = %q, want %q", data, "hello")
	}
	if _, err := os.Stat(moved); !os.IsNotExist(err) {
		t.Error("moved file still present after undo")
	}
}

func TestStore_UndoDeleteRestoresFromBackup(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	dir := t.TempDir()

	original := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(original, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := stamped(s.New("delete duplicates"))
	backupPath, err := s.BackupFile(m, original)
	if err != nil {
		t.Fatalf("BackupFile() error = %v", err)
	}
	if err := os.Remove(original); err != nil {
		t.Fatal(err)
	}
	m.Actions = append(m.Actions, Action{
		Type:         ActionDelete,
		OriginalPath: original,
		BackupPath:   backupPath,
		Timestamp:    time.Now().UTC(),
	})

	result, err := s.Undo(context.Background(), m, stubVerifier{}, unrestricted(t))
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if result.Restored != 1 {
		t.Errorf("Restored = %d, want 1", result.Restored)
	}

	data, err := os.ReadFile(original)
	if err != nil {
		t.Fatalf("file not restored: %v", err)
	}
	if string(data) != "hi" {
		t.Errorf("restored content = %q, want %q", data, "hi")
	}
}

func TestStore_UndoRefusedOnVerifyFailure(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	dir := t.TempDir()

	moved := filepath.Join(dir, "moved.txt")
	if err := os.WriteFile(moved, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := stamped(s.New("tampered"))
	m.Actions = append(m.Actions, Action{
		Type:         ActionMove,
		OriginalPath: filepath.Join(dir, "orig.txt"),
		CurrentPath:  moved,
		Timestamp:    time.Now().UTC(),
	})

	verifyErr := os.ErrPermission
	if _, err := s.Undo(context.Background(), m, stubVerifier{err: verifyErr}, unrestricted(t)); err == nil {
		t.Fatal("Undo() succeeded despite verification failure")
	}

	// Zero mutation: the moved file must be untouched.
	if _, err := os.Stat(moved); err != nil {
		t.Errorf("moved file disturbed after refused undo: %v", err)
	}
}

func TestStore_UndoReversesInReverseOrder(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	dir := t.TempDir()

	// a.txt was moved to b.txt, then b.txt was moved to c.txt. Undo must
	// replay c->b before b->a, or the chain breaks.
	c := filepath.Join(dir, "c.txt")
	if err := os.WriteFile(c, []byte("chain"), 0o644); err != nil {
		t.Fatal(err)
	}
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	m := stamped(s.New("chained moves"))
	m.Actions = append(m.Actions,
		Action{Type: ActionMove, OriginalPath: a, CurrentPath: b, Timestamp: time.Now().UTC()},
		Action{Type: ActionMove, OriginalPath: b, CurrentPath: c, Timestamp: time.Now().UTC()},
	)

	result, err := s.Undo(context.Background(), m, stubVerifier{}, unrestricted(t))
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if result.Restored != 2 {
		t.Fatalf("Restored = %d, want 2 (failures: %v)", result.Restored, result.Failed)
	}

	data, err := os.ReadFile(a)
	if err != nil {
		t.Fatalf("chain not fully reversed: %v", err)
	}
	if string(data) != "chain" {
		t.Errorf("content = %q, want %q", data, "chain")
	}
}

func TestStore_PruneKeepsLatestAndRecent(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	ctx := context.Background()

	old := stamped(s.New("old operation"))
	old.Timestamp = time.Now().UTC().Add(-60 * 24 * time.Hour)
	if err := s.Persist(ctx, old); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	backupDir := filepath.Join(s.Dir(), "backups", old.ID)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		t.Fatal(err)
	}

	recent := stamped(s.New("recent operation"))
	if err := s.Persist(ctx, recent); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	pruned, err := s.Prune(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 1 {
		t.Fatalf("Prune() = %d, want 1", pruned)
	}

	if _, err := s.Get(old.ID); err == nil {
		t.Error("pruned manifest still readable")
	}
	if _, err := os.Stat(backupDir); !os.IsNotExist(err) {
		t.Error("pruned manifest's backup directory still exists")
	}
	if _, err := s.Get(recent.ID); err != nil {
		t.Errorf("recent manifest pruned: %v", err)
	}
}

func TestStore_PruneNeverRemovesLatest(t *testing.T) {
	t.Parallel()
	s := setupStore(t)

	only := stamped(s.New("only operation"))
	only.Timestamp = time.Now().UTC().Add(-365 * 24 * time.Hour)
	if err := s.Persist(context.Background(), only); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	pruned, err := s.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 0 {
		t.Fatalf("Prune() = %d, want 0", pruned)
	}
	if _, err := s.Latest(); err != nil {
		t.Errorf("latest manifest pruned: %v", err)
	}
}
