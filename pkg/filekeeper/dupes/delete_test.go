package dupes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/hasher"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/integrity"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/pathval"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

type deleteFixture struct {
	dir       string
	store     *manifest.Store
	svc       *integrity.Service
	validator *pathval.Validator
	deleter   *Deleter
}

func newDeleteFixture(t *testing.T) *deleteFixture {
	t.Helper()

	dir := t.TempDir()
	store, err := manifest.NewStore(filepath.Join(t.TempDir(), "manifests"))
	require.NoError(t, err)

	validator, err := pathval.New(pathval.ModeSandboxed, pathval.WithAllowedRoots(dir))
	require.NoError(t, err)

	return &deleteFixture{
		dir:       dir,
		store:     store,
		svc:       integrity.NewService(integrity.StaticKeyProvider("test")),
		validator: validator,
		deleter:   NewDeleter(validator, store),
	}
}

func TestDelete_BatchWithPartialFailure(t *testing.T) {
	t.Parallel()
	fx := newDeleteFixture(t)

	b := writeFile(t, fx.dir, "b.txt", "hi")
	missing := filepath.Join(fx.dir, "never-existed.txt")
	outside := filepath.Join(t.TempDir(), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	result, m, err := fx.deleter.Delete(context.Background(),
		[]string{b.Path, missing, outside}, DeleteOptions{}, fx.svc)
	require.NoError(t, err)

	assert.Equal(t, []string{b.Path}, result.Deleted)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, b.Size, result.BytesFreed)

	// The file validated outside the sandbox was never touched.
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)

	// The manifest records exactly the applied deletion.
	require.NotNil(t, m)
	require.Len(t, m.Actions, 1)
	assert.Equal(t, manifest.ActionDelete, m.Actions[0].Type)
	assert.Equal(t, b.Path, m.Actions[0].OriginalPath)
	assert.NotEmpty(t, m.Actions[0].BackupPath)
}

func TestDelete_RefusesChangedFile(t *testing.T) {
	t.Parallel()
	fx := newDeleteFixture(t)

	f := writeFile(t, fx.dir, "mutable.txt", "original")
	require.NoError(t, os.WriteFile(f.Path, []byte("changed content, longer"), 0o644))

	result, _, err := fx.deleter.Delete(context.Background(), []string{f.Path},
		DeleteOptions{ExpectedSizes: map[string]int64{f.Path: f.Size}}, fx.svc)
	require.NoError(t, err)

	assert.Empty(t, result.Deleted)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Error, "changed since scan")

	_, statErr := os.Stat(f.Path)
	assert.NoError(t, statErr)
}

func TestDelete_DryRun(t *testing.T) {
	t.Parallel()
	fx := newDeleteFixture(t)

	f := writeFile(t, fx.dir, "kept.txt", "content")

	result, m, err := fx.deleter.Delete(context.Background(), []string{f.Path},
		DeleteOptions{DryRun: true}, fx.svc)
	require.NoError(t, err)

	assert.Equal(t, []string{f.Path}, result.Deleted)
	assert.Nil(t, m, "dry run must not create a manifest")

	_, statErr := os.Stat(f.Path)
	assert.NoError(t, statErr)
}

func TestDelete_UnlinkFailureLeavesNoBackup(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind for root")
	}

	dir := t.TempDir()
	storeDir := filepath.Join(t.TempDir(), "manifests")
	store, err := manifest.NewStore(storeDir)
	require.NoError(t, err)
	validator, err := pathval.New(pathval.ModeSandboxed, pathval.WithAllowedRoots(dir))
	require.NoError(t, err)
	deleter := NewDeleter(validator, store)

	// A read-only parent makes the backup copy succeed but the unlink fail.
	f := writeFile(t, dir, filepath.Join("locked", "stuck.txt"), "content")
	locked := filepath.Dir(f.Path)
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	result, m, err := deleter.Delete(context.Background(), []string{f.Path},
		DeleteOptions{}, integrity.NewService(integrity.StaticKeyProvider("test")))
	require.NoError(t, err)

	assert.Empty(t, result.Deleted)
	require.Len(t, result.Failed, 1)
	assert.Nil(t, m, "nothing deleted, nothing to record")

	// The file survives and no backup copy is left behind.
	_, statErr := os.Stat(f.Path)
	assert.NoError(t, statErr)
	orphans, err := filepath.Glob(filepath.Join(storeDir, "backups", "*", "*"))
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestDelete_ThenUndoRestoresContent(t *testing.T) {
	t.Parallel()
	fx := newDeleteFixture(t)

	a := writeFile(t, fx.dir, "a.txt", "hi")
	b := writeFile(t, fx.dir, "b.txt", "hi")

	groups, err := NewFinder(hasher.New()).FindWithScoring(context.Background(),
		[]types.FileEntry{a, b}, StrategyBestName)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, a.Path, groups[0].RecommendedKeep)

	// Delete everything except the recommended keep.
	var doomed []string
	for _, f := range groups[0].Files {
		if f.Path != groups[0].RecommendedKeep {
			doomed = append(doomed, f.Path)
		}
	}

	result, _, err := fx.deleter.Delete(context.Background(), doomed, DeleteOptions{}, fx.svc)
	require.NoError(t, err)
	require.Equal(t, []string{b.Path}, result.Deleted)
	_, statErr := os.Stat(b.Path)
	require.True(t, os.IsNotExist(statErr))

	// Undo the latest manifest; b.txt comes back byte-identical.
	latest, err := fx.store.Latest()
	require.NoError(t, err)

	undoResult, err := fx.store.Undo(context.Background(), latest, fx.svc, fx.validator)
	require.NoError(t, err)
	assert.Equal(t, 1, undoResult.Restored)

	data, err := os.ReadFile(b.Path)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}
