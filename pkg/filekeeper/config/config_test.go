package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Validation.Mode != DefaultMode {
		t.Errorf("Validation.Mode = %q, want %q", cfg.Validation.Mode, DefaultMode)
	}

	if cfg.Scan.MaxDepth != DefaultMaxDepth {
		t.Errorf("Scan.MaxDepth = %d, want %d", cfg.Scan.MaxDepth, DefaultMaxDepth)
	}

	if cfg.Scan.MaxFiles != DefaultMaxFiles {
		t.Errorf("Scan.MaxFiles = %d, want %d", cfg.Scan.MaxFiles, DefaultMaxFiles)
	}

	if cfg.Scan.IncludeHidden {
		t.Error("Scan.IncludeHidden = true, want false")
	}

	if cfg.Hash.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("Hash.MaxFileSize = %q, want %q", cfg.Hash.MaxFileSize, DefaultMaxFileSize)
	}

	if cfg.Hash.Concurrency != DefaultHashConcurrency {
		t.Errorf("Hash.Concurrency = %d, want %d", cfg.Hash.Concurrency, DefaultHashConcurrency)
	}

	if cfg.Strategy != DefaultStrategy {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, DefaultStrategy)
	}

	if cfg.OnConflict != DefaultOnConflict {
		t.Errorf("OnConflict = %q, want %q", cfg.OnConflict, DefaultOnConflict)
	}

	if cfg.Manifest.RetentionDays != DefaultRetentionDays {
		t.Errorf("Manifest.RetentionDays = %d, want %d", cfg.Manifest.RetentionDays, DefaultRetentionDays)
	}

	if len(cfg.Scan.Exclude) != len(DefaultExclusions) {
		t.Errorf("len(Scan.Exclude) = %d, want %d", len(cfg.Scan.Exclude), len(DefaultExclusions))
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "filekeeper")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
validation:
  mode: sandboxed
  allowed_roots:
    - /srv/files
    - ~/inbox
scan:
  max_depth: 8
  max_files: 5000
  include_hidden: true
  exclude:
    - /tmp
hash:
  max_file_size: 1GB
  concurrency: 2
strategy: best_location
on_conflict: skip
manifest:
  path: /custom/manifests
  retention_days: 7
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Validation.Mode != "sandboxed" {
		t.Errorf("Validation.Mode = %q, want %q", cfg.Validation.Mode, "sandboxed")
	}

	if len(cfg.Validation.AllowedRoots) != 2 {
		t.Fatalf("len(AllowedRoots) = %d, want 2", len(cfg.Validation.AllowedRoots))
	}

	// ~ in allowed roots is expanded at load time.
	if !strings.HasPrefix(cfg.Validation.AllowedRoots[1], tempDir) {
		t.Errorf("AllowedRoots[1] = %q, want prefix %q", cfg.Validation.AllowedRoots[1], tempDir)
	}

	if cfg.Scan.MaxDepth != 8 {
		t.Errorf("Scan.MaxDepth = %d, want 8", cfg.Scan.MaxDepth)
	}

	if cfg.Scan.MaxFiles != 5000 {
		t.Errorf("Scan.MaxFiles = %d, want 5000", cfg.Scan.MaxFiles)
	}

	if !cfg.Scan.IncludeHidden {
		t.Error("Scan.IncludeHidden = false, want true")
	}

	if cfg.Hash.Concurrency != 2 {
		t.Errorf("Hash.Concurrency = %d, want 2", cfg.Hash.Concurrency)
	}

	if cfg.Strategy != "best_location" {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, "best_location")
	}

	if cfg.OnConflict != "skip" {
		t.Errorf("OnConflict = %q, want %q", cfg.OnConflict, "skip")
	}

	if cfg.Manifest.Path != "/custom/manifests" {
		t.Errorf("Manifest.Path = %q, want %q", cfg.Manifest.Path, "/custom/manifests")
	}

	if cfg.Manifest.RetentionDays != 7 {
		t.Errorf("Manifest.RetentionDays = %d, want 7", cfg.Manifest.RetentionDays)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("FILEKEEPER_STRATEGY", "best_name")
	t.Setenv("FILEKEEPER_VALIDATION_MODE", "unrestricted")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Strategy != "best_name" {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, "best_name")
	}

	if cfg.Validation.Mode != "unrestricted" {
		t.Errorf("Validation.Mode = %q, want %q", cfg.Validation.Mode, "unrestricted")
	}
}

func TestManifestDir_Fallback(t *testing.T) {
	cfg := &Config{}
	dir := cfg.ManifestDir()
	if filepath.Base(dir) != "manifests" {
		t.Errorf("ManifestDir() = %q, want .../manifests", dir)
	}

	cfg.Manifest.Path = "/custom/manifests"
	if got := cfg.ManifestDir(); got != "/custom/manifests" {
		t.Errorf("ManifestDir() = %q, want /custom/manifests", got)
	}
}

func TestHashCacheDir_Fallback(t *testing.T) {
	cfg := &Config{}
	dir := cfg.HashCacheDir()
	if filepath.Base(dir) != "digests" {
		t.Errorf("HashCacheDir() = %q, want .../digests", dir)
	}

	cfg.Hash.CachePath = "/custom/digests"
	if got := cfg.HashCacheDir(); got != "/custom/digests" {
		t.Errorf("HashCacheDir() = %q, want /custom/digests", got)
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"absolute path unchanged", "/abs/path", "/abs/path"},
		{"empty unchanged", "", ""},
		{"tilde expanded", "~/sub", filepath.Join(tempDir, "sub")},
		{"bare tilde", "~", tempDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	configPath := filepath.Join(tempDir, ".config", "filekeeper", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "on_conflict") {
		t.Error("default config missing on_conflict key")
	}

	// Writing again over an existing file is a no-op.
	if err := os.WriteFile(configPath, []byte("strategy: oldest\n"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault() error = %v", err)
	}
	data, err = os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "strategy: oldest\n" {
		t.Error("WriteDefault overwrote an existing config file")
	}
}
