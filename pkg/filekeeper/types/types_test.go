package types

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr error
	}{
		{input: "1024", want: 1024},
		{input: "100K", want: 100 * KiB},
		{input: "50MiB", want: 50 * MiB},
		{input: "2GB", want: 2 * GiB},
		{input: "1T", want: TiB},
		{input: "1.5K", want: 1536},
		{input: "  10M  ", want: 10 * MiB},
		{input: "", wantErr: ErrInvalidSize},
		{input: "abc", wantErr: ErrInvalidSize},
		{input: "10X", wantErr: ErrInvalidSize},
		{input: "-5K", wantErr: ErrNegativeSize},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseSize(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{bytes: 0, want: "0 B"},
		{bytes: 1024, want: "1.0 KiB"},
		{bytes: 1536, want: "1.5 KiB"},
		{bytes: 5 * MiB, want: "5.0 MiB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestParseConflictPolicy(t *testing.T) {
	for _, name := range []string{"skip", "overwrite", "overwrite_if_newer", "rename"} {
		if _, err := ParseConflictPolicy(name); err != nil {
			t.Errorf("ParseConflictPolicy(%q) error: %v", name, err)
		}
	}
	if got, err := ParseConflictPolicy(""); err != nil || got != ConflictRename {
		t.Errorf("ParseConflictPolicy(\"\") = %v, %v; want rename default", got, err)
	}
	if _, err := ParseConflictPolicy("explode"); err == nil {
		t.Error("ParseConflictPolicy accepted unknown policy")
	}
}

func TestFileEntryCreatedPopulated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	e := NewFileEntry(path, info)
	if e.Created.IsZero() {
		t.Error("Created is zero for a freshly created file")
	}
	// Birth time can never postdate the last modification.
	if e.Created.After(e.Modified) {
		t.Errorf("Created %v is after Modified %v", e.Created, e.Modified)
	}
}

func TestFileEntryHidden(t *testing.T) {
	dir := t.TempDir()

	visible := filepath.Join(dir, "notes.txt")
	hidden := filepath.Join(dir, ".env")
	for _, p := range []string{visible, hidden} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	info, err := os.Stat(visible)
	if err != nil {
		t.Fatal(err)
	}
	if NewFileEntry(visible, info).Hidden() {
		t.Error("visible file reported hidden")
	}

	info, err = os.Stat(hidden)
	if err != nil {
		t.Fatal(err)
	}
	if !NewFileEntry(hidden, info).Hidden() {
		t.Error("dotfile not reported hidden")
	}
}
