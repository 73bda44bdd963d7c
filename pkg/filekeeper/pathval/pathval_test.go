package pathval

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sandboxed(t *testing.T, roots ...string) *Validator {
	t.Helper()
	v, err := New(ModeSandboxed, WithAllowedRoots(roots...))
	require.NoError(t, err)
	return v
}

func layerOf(t *testing.T, err error) int {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr.Layer
}

func TestValidate_Syntax(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	v := sandboxed(t, root)

	tests := []struct {
		name string
		path string
	}{
		{"null byte", root + "/a\x00b"},
		{"control character", root + "/a\x01b"},
		{"newline", root + "/a\nb"},
		{"empty", ""},
		{"too long", root + "/" + strings.Repeat("a", DefaultMaxLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Validate(tt.path)
			require.Error(t, err)
			assert.Equal(t, LayerSyntax, layerOf(t, err))
		})
	}
}

func TestValidate_SyntaxIllegalChars(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	v, err := New(ModeSandboxed, WithAllowedRoots(root), WithProfile(WindowsProfile()))
	require.NoError(t, err)

	for _, c := range []string{"<", ">", `"`, "|", "?", "*"} {
		t.Run(c, func(t *testing.T) {
			_, err := v.Validate(filepath.Join(root, "a"+c+"b.txt"))
			require.Error(t, err)
			assert.Equal(t, LayerSyntax, layerOf(t, err))
		})
	}

	// Unix profile accepts the same characters.
	vu := sandboxed(t, root)
	_, err = vu.Validate(filepath.Join(root, "a?b.txt"))
	assert.NoError(t, err)
}

func TestValidate_Traversal(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	root := filepath.Join(base, "allowed")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "outside"), 0o755))
	v := sandboxed(t, root)

	tests := []struct {
		name string
		path string
	}{
		{"dot dot escape", filepath.Join(root, "..", "outside")},
		{"nested dot dot escape", filepath.Join(root, "sub", "..", "..", "outside")},
		{"percent encoded dot dot", root + "/%2e%2e/outside"},
		{"absolute outside", filepath.Join(base, "outside", "f.txt")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Validate(tt.path)
			require.Error(t, err)
			assert.Equal(t, LayerContainment, layerOf(t, err))
		})
	}

	// Paths that collapse back inside the root are fine.
	vp, err := v.Validate(filepath.Join(root, "sub", "..", "sub"))
	require.NoError(t, err)
	assert.False(t, vp.IsZero())
}

func TestValidate_UnicodeNormalization(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	v := sandboxed(t, root)

	// "café" spelled composed (NFC) and decomposed (NFD). Both inputs must
	// canonicalize to the same path.
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	require.NoError(t, os.MkdirAll(filepath.Join(root, composed), 0o755))

	want, err := v.Validate(filepath.Join(root, composed, "doc.txt"))
	require.NoError(t, err)

	got, err := v.Validate(filepath.Join(root, decomposed, "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, want.String(), got.String())

	// A traversal hidden behind a decomposed segment still escapes after
	// normalization and must fail containment.
	_, err = v.Validate(filepath.Join(root, decomposed, "..", "..", "escape.txt"))
	require.Error(t, err)
	assert.Equal(t, LayerContainment, layerOf(t, err))
}

func TestValidate_ReservedNames(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	v, err := New(ModeSandboxed, WithAllowedRoots(root), WithProfile(WindowsProfile()))
	require.NoError(t, err)

	reserved := []string{"CON", "con", "Con", "PRN", "AUX", "NUL", "COM1", "COM9", "LPT1", "lpt9", "CON.txt", "nul.log"}
	for _, name := range reserved {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(filepath.Join(root, name))
			require.Error(t, err)
			assert.Equal(t, LayerReserved, layerOf(t, err))
		})
	}

	legal := []string{"CONNECT", "FAUX", "console.log", "COM10", "LPT0", "nullable.go"}
	for _, name := range legal {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(filepath.Join(root, name))
			assert.NoError(t, err)
		})
	}
}

func TestValidate_ReservedNamesSkippedOnUnixProfile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	v := sandboxed(t, root)

	_, err := v.Validate(filepath.Join(root, "CON"))
	assert.NoError(t, err)
}

func TestValidate_SymlinkEscape(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	root := filepath.Join(base, "allowed")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))

	link := filepath.Join(root, "escape")
	require.NoError(t, os.Symlink(outside, link))

	v := sandboxed(t, root)

	// The link itself lives inside the root, but it resolves outside.
	_, err := v.Validate(link)
	require.Error(t, err)
	assert.Equal(t, LayerContainment, layerOf(t, err))

	// A file referenced through the escaping link is rejected too.
	_, err = v.Validate(filepath.Join(link, "f.txt"))
	require.Error(t, err)
	assert.Equal(t, LayerContainment, layerOf(t, err))
}

func TestValidate_NonexistentTarget(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	v := sandboxed(t, root)

	// Nonexistent leaf under an existing, authorized ancestor is allowed
	// so that move destinations can be validated before they exist.
	vp, err := v.Validate(filepath.Join(root, "new-dir", "new-file.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(vp.String(), root))
}

func TestValidate_HomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	v, err := New(ModeUnrestricted)
	require.NoError(t, err)

	vp, err := v.Validate("~/somewhere")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(vp.String(), home))
}

func TestValidate_EnvExpansion(t *testing.T) {
	root := t.TempDir()
	t.Setenv("FILEKEEPER_TEST_ROOT", root)
	v := sandboxed(t, root)

	vp, err := v.Validate("$FILEKEEPER_TEST_ROOT/file.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(vp.String(), root))
}

func TestValidate_Unrestricted(t *testing.T) {
	t.Parallel()
	v, err := New(ModeUnrestricted)
	require.NoError(t, err)

	vp, err := v.Validate(t.TempDir())
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(vp.String()))
}

func TestValidate_StrictModeUsesWorkingDirectory(t *testing.T) {
	v, err := New(ModeStrict)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	_, err = v.Validate(cwd)
	assert.NoError(t, err)

	_, err = v.Validate(string(filepath.Separator))
	require.Error(t, err)
	assert.Equal(t, LayerContainment, layerOf(t, err))
}

func TestNew_SandboxedRequiresRoots(t *testing.T) {
	t.Parallel()
	_, err := New(ModeSandboxed)
	assert.Error(t, err)
}

func TestValidationError_DoesNotLeakPath(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	root := filepath.Join(base, "allowed")
	require.NoError(t, os.MkdirAll(root, 0o755))
	v := sandboxed(t, root)

	secret := filepath.Join(base, "secret-project", "credentials.txt")
	_, err := v.Validate(secret)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-project")
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		in   string
		want Mode
	}{
		{"strict", ModeStrict},
		{"", ModeStrict},
		{"SANDBOXED", ModeSandboxed},
		{"unrestricted", ModeUnrestricted},
	} {
		m, err := ParseMode(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, m)
	}

	_, err := ParseMode("promiscuous")
	assert.Error(t, err)
}
