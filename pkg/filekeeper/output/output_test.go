package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/organizer"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

func sampleScanReport() *ScanReport {
	return NewScanReport("/data", &types.ScanResult{
		Files: []types.FileEntry{
			{Name: "big.iso", Path: "/data/big.iso", Size: 1 << 30},
			{Name: "note.txt", Path: "/data/note.txt", Size: 512},
		},
		DirsScanned:  3,
		FilesScanned: 2,
		TotalSize:    (1 << 30) + 512,
		Elapsed:      1500 * time.Millisecond,
	})
}

func sampleDupesReport() *DupesReport {
	return NewDupesReport("/data", "newest", []types.DuplicateGroup{
		{
			Digest:          "abcdef0123456789",
			RecommendedKeep: "/data/a.txt",
			WastedBytes:     100,
			Files: []types.FileEntry{
				{Name: "a.txt", Path: "/data/a.txt", Size: 100},
				{Name: "a copy.txt", Path: "/data/a copy.txt", Size: 100},
			},
		},
	})
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"pretty", "plain", "json"} {
		if _, err := Get(name); err != nil {
			t.Errorf("Get(%q) error = %v", name, err)
		}
	}

	if _, err := Get("nope"); err == nil {
		t.Error("expected error for unknown formatter")
	}

	available := Available()
	if len(available) < 3 {
		t.Errorf("expected at least 3 formatters, got %v", available)
	}
}

func TestJSONFormatScan(t *testing.T) {
	f, err := Get("json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var buf bytes.Buffer
	if err := f.FormatScan(&buf, sampleScanReport()); err != nil {
		t.Fatalf("FormatScan: %v", err)
	}

	var decoded ScanReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Source != "/data" {
		t.Errorf("Source = %q, want /data", decoded.Source)
	}
	if len(decoded.Files) != 2 {
		t.Errorf("len(Files) = %d, want 2", len(decoded.Files))
	}
}

func TestPlainFormatScan(t *testing.T) {
	f, err := Get("plain")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var buf bytes.Buffer
	if err := f.FormatScan(&buf, sampleScanReport()); err != nil {
		t.Fatalf("FormatScan: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "SIZE") || !strings.Contains(out, "PATH") {
		t.Errorf("missing table header:\n%s", out)
	}
	if !strings.Contains(out, "/data/big.iso") {
		t.Errorf("missing file path:\n%s", out)
	}
}

func TestPlainFormatDupesMarksKeep(t *testing.T) {
	f, err := Get("plain")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var buf bytes.Buffer
	if err := f.FormatDupes(&buf, sampleDupesReport()); err != nil {
		t.Fatalf("FormatDupes: %v", err)
	}

	var keepLine string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "/data/a.txt") && !strings.Contains(line, "copy") {
			keepLine = line
		}
	}
	if !strings.Contains(keepLine, "*") {
		t.Errorf("recommended keep not marked:\n%s", buf.String())
	}
}

func TestPrettyFormatDupes(t *testing.T) {
	f, err := Get("pretty")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var buf bytes.Buffer
	if err := f.FormatDupes(&buf, sampleDupesReport()); err != nil {
		t.Fatalf("FormatDupes: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "abcdef012345") {
		t.Errorf("missing truncated digest:\n%s", out)
	}
	if !strings.Contains(out, "newest") {
		t.Errorf("missing strategy name:\n%s", out)
	}
}

func TestPrettyFormatPlanDryRun(t *testing.T) {
	f, err := Get("pretty")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	plan := &types.OrganizationPlan{
		Moves: []types.MoveIntent{
			{Source: "/data/a.pdf", Destination: "/data/Documents/a.pdf", Category: "Documents"},
		},
		CategoryCounts: map[string]int{"Documents": 1},
	}

	var buf bytes.Buffer
	if err := f.FormatPlan(&buf, NewPlanReport("/data", plan, true)); err != nil {
		t.Fatalf("FormatPlan: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Dry run") {
		t.Errorf("missing dry run notice:\n%s", out)
	}
	if !strings.Contains(out, "/data/Documents/a.pdf") {
		t.Errorf("missing destination:\n%s", out)
	}
}

func TestPrettyFormatOrganizeMentionsUndo(t *testing.T) {
	f, err := Get("pretty")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	report := NewOrganizeReport("/data", &organizer.Result{
		Statistics: organizer.Statistics{Moved: 3, BytesMoved: 4096},
		ManifestID: "abc-123",
	})

	var buf bytes.Buffer
	if err := f.FormatOrganize(&buf, report); err != nil {
		t.Fatalf("FormatOrganize: %v", err)
	}

	if !strings.Contains(buf.String(), "undo --id abc-123") {
		t.Errorf("missing undo hint:\n%s", buf.String())
	}
}

func TestHistoryReportFormats(t *testing.T) {
	report := NewHistoryReport([]manifest.Manifest{
		{
			ID:          "id-1",
			Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Description: "organize /data",
			Actions:     []manifest.Action{{Type: manifest.ActionMove}},
		},
	})

	for _, name := range []string{"pretty", "plain", "json"} {
		f, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		var buf bytes.Buffer
		if err := f.FormatHistory(&buf, report); err != nil {
			t.Fatalf("FormatHistory(%q): %v", name, err)
		}
		if !strings.Contains(buf.String(), "id-1") {
			t.Errorf("%s output missing manifest id:\n%s", name, buf.String())
		}
	}
}
