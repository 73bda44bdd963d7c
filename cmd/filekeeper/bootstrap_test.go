package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/pathval"
)

func TestBuildValidatorModes(t *testing.T) {
	tests := []struct {
		mode    string
		want    pathval.Mode
		wantErr bool
	}{
		{mode: "strict", want: pathval.ModeStrict},
		{mode: "sandboxed", want: pathval.ModeSandboxed},
		{mode: "unrestricted", want: pathval.ModeUnrestricted},
		{mode: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			viper.Set("validation.mode", tt.mode)
			viper.Set("validation.allowed_roots", []string{t.TempDir()})
			t.Cleanup(func() {
				viper.Set("validation.mode", "strict")
				viper.Set("validation.allowed_roots", []string{})
			})

			v, err := buildValidator()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for invalid mode")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildValidator() error: %v", err)
			}
			if v.Mode() != tt.want {
				t.Errorf("Mode() = %v, want %v", v.Mode(), tt.want)
			}
		})
	}
}

func TestBuildValidatorEnforcesAllowedRoots(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	viper.Set("validation.mode", "sandboxed")
	viper.Set("validation.allowed_roots", []string{root})
	t.Cleanup(func() {
		viper.Set("validation.mode", "strict")
		viper.Set("validation.allowed_roots", []string{})
	})

	v, err := buildValidator()
	if err != nil {
		t.Fatalf("buildValidator() error: %v", err)
	}

	if _, err := v.Validate(filepath.Join(root, "inside.txt")); err != nil {
		t.Errorf("path inside allowed root rejected: %v", err)
	}
	if _, err := v.Validate(filepath.Join(outside, "escape.txt")); err == nil {
		t.Error("path outside allowed roots was accepted")
	}
}

func TestBuildStoreUsesConfiguredPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "manifests")

	viper.Set("manifest.path", dir)
	t.Cleanup(func() { viper.Set("manifest.path", "") })

	store, err := buildStore()
	if err != nil {
		t.Fatalf("buildStore() error: %v", err)
	}
	if store.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", store.Dir(), dir)
	}
}

func TestBuildIntegrityStampAndVerify(t *testing.T) {
	svc := buildIntegrity()

	m := &manifest.Manifest{ID: "test-id", Description: "test"}
	if err := svc.Stamp(m); err != nil {
		t.Fatalf("Stamp() error: %v", err)
	}
	if err := svc.Verify(m); err != nil {
		t.Errorf("Verify() error on freshly stamped manifest: %v", err)
	}
}

func TestGetFormatter(t *testing.T) {
	viper.Set("output", "json")
	t.Cleanup(func() { viper.Set("output", "pretty") })

	if _, err := getFormatter(); err != nil {
		t.Errorf("getFormatter() error for json: %v", err)
	}

	viper.Set("output", "bogus")
	if _, err := getFormatter(); err == nil {
		t.Error("getFormatter() accepted unknown format")
	}
}
