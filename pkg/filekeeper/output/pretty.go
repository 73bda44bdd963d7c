package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats reports with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// FormatScan writes a boxed header, one row per file, and a summary footer.
func (f *PrettyFormatter) FormatScan(w *bytes.Buffer, r *ScanReport) error {
	header := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Scanned:"),
			ValueStyle.Render(fmt.Sprintf("%d files, %d dirs in %s",
				r.FilesScanned, r.DirsScanned, formatDuration(r.Elapsed)))),
	}
	if r.Truncated {
		header = append(header, WarningStyle.Bold(true).Render("Scan truncated at resource ceiling"))
	}
	w.WriteString(HeaderBox.Render(strings.Join(header, "\n")))
	w.WriteString("\n")

	w.WriteString(f.fileTable(r.Files))

	footer := fmt.Sprintf("%s %s  %s %s",
		LabelStyle.Render("Files:"), ValueStyle.Render(fmt.Sprintf("%d", len(r.Files))),
		LabelStyle.Render("Total:"), SizeStyle.Render(humanize.IBytes(uint64(r.TotalSize))))
	w.WriteString(FooterBox.Render(footer))
	w.WriteString("\n")

	if len(r.Errors) > 0 {
		w.WriteString(WarningStyle.Bold(true).Render(fmt.Sprintf("%d paths could not be read:", len(r.Errors))))
		w.WriteString("\n")
		for _, e := range r.Errors {
			w.WriteString(WarningStyle.Render("  " + e.Path + ": " + e.Error))
			w.WriteString("\n")
		}
	}
	return nil
}

// FormatDupes writes one block per duplicate group with the recommended
// keep marked.
func (f *PrettyFormatter) FormatDupes(w *bytes.Buffer, r *DupesReport) error {
	header := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)),
		fmt.Sprintf("%s %s  %s %s",
			LabelStyle.Render("Groups:"), ValueStyle.Render(fmt.Sprintf("%d", len(r.Groups))),
			LabelStyle.Render("Reclaimable:"), SizeStyle.Render(humanize.IBytes(uint64(r.TotalWasted)))),
	}
	w.WriteString(HeaderBox.Render(strings.Join(header, "\n")))
	w.WriteString("\n")

	if len(r.Groups) == 0 {
		w.WriteString(MutedStyle.Render("  No duplicates found\n"))
		return nil
	}

	for i, g := range r.Groups {
		title := fmt.Sprintf("Group %d  %s  %s wasted",
			i+1, shortDigest(g.Digest), humanize.IBytes(uint64(g.WastedBytes)))
		w.WriteString(SizeStyle.Render(title))
		w.WriteString("\n")
		for _, file := range g.Files {
			marker := "  "
			style := PathStyle
			if file.Path == g.RecommendedKeep {
				marker = SuccessStyle.Render("* ")
				style = SuccessStyle
			}
			w.WriteString(fmt.Sprintf("  %s%s  %s\n", marker,
				MutedStyle.Render(padLeft(file.SizeHuman, 9)), style.Render(file.Path)))
		}
	}
	w.WriteString(MutedStyle.Render("  * = recommended keep under strategy " + r.Strategy))
	w.WriteString("\n")
	return nil
}

// FormatPlan writes the planned moves grouped under a header.
func (f *PrettyFormatter) FormatPlan(w *bytes.Buffer, r *PlanReport) error {
	header := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)),
		fmt.Sprintf("%s %s  %s %s  %s %s",
			LabelStyle.Render("Moves:"), ValueStyle.Render(fmt.Sprintf("%d", len(r.Moves))),
			LabelStyle.Render("Conflicts:"), ValueStyle.Render(fmt.Sprintf("%d", r.Conflicts)),
			LabelStyle.Render("Estimated:"), ValueStyle.Render(formatDuration(r.EstimatedDuration))),
	}
	if r.DryRun {
		header = append(header, WarningStyle.Bold(true).Render("Dry run: no files were moved"))
	}
	w.WriteString(HeaderBox.Render(strings.Join(header, "\n")))
	w.WriteString("\n")

	for _, m := range r.Moves {
		arrow := MutedStyle.Render("->")
		line := fmt.Sprintf("  %s  %s %s %s", LabelStyle.Render(padLeft(m.Category, 12)),
			PathStyle.Render(m.Source), arrow, PathStyle.Render(m.Destination))
		if m.Renamed {
			line += "  " + WarningStyle.Render("(renamed)")
		}
		w.WriteString(line)
		w.WriteString("\n")
	}

	if len(r.Skipped) > 0 {
		w.WriteString(MutedStyle.Render(fmt.Sprintf("  %d skipped:", len(r.Skipped))))
		w.WriteString("\n")
		for _, s := range r.Skipped {
			w.WriteString(MutedStyle.Render("    " + s.Path + ": " + s.Reason))
			w.WriteString("\n")
		}
	}
	return nil
}

// FormatOrganize writes the execution summary.
func (f *PrettyFormatter) FormatOrganize(w *bytes.Buffer, r *OrganizeReport) error {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Moved:"), SuccessStyle.Render(fmt.Sprintf("%d", r.Moved))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Skipped:"), ValueStyle.Render(fmt.Sprintf("%d", r.Skipped))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Size:"), SizeStyle.Render(humanize.IBytes(uint64(r.BytesMoved)))),
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%s %s",
			LabelStyle.Render("Failed:"), ErrorStyle.Render(fmt.Sprintf("%d", r.Failed))))
	}
	w.WriteString(HeaderBox.Render(strings.Join(parts, "  ")))
	w.WriteString("\n")

	for _, e := range r.Errors {
		w.WriteString(ErrorStyle.Render("  " + e.Source + ": " + e.Error))
		w.WriteString("\n")
	}

	if r.ManifestID != "" {
		w.WriteString(MutedStyle.Render("  Undo with: filekeeper undo --id " + r.ManifestID))
		w.WriteString("\n")
	}
	return nil
}

// FormatUndo writes the undo summary.
func (f *PrettyFormatter) FormatUndo(w *bytes.Buffer, r *UndoReport) error {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Manifest:"), ValueStyle.Render(r.ManifestID)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Restored:"), SuccessStyle.Render(fmt.Sprintf("%d", r.Restored))),
	}
	if len(r.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("%s %s",
			LabelStyle.Render("Failed:"), ErrorStyle.Render(fmt.Sprintf("%d", len(r.Failed)))))
	}
	w.WriteString(HeaderBox.Render(strings.Join(parts, "  ")))
	w.WriteString("\n")

	for _, e := range r.Failed {
		w.WriteString(ErrorStyle.Render("  " + e.Action.OriginalPath + ": " + e.Error))
		w.WriteString("\n")
	}
	return nil
}

// FormatHistory writes one row per recorded manifest, newest first.
func (f *PrettyFormatter) FormatHistory(w *bytes.Buffer, r *HistoryReport) error {
	if len(r.Manifests) == 0 {
		w.WriteString(MutedStyle.Render("  No operations recorded\n"))
		return nil
	}

	w.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("ID", 36)),
		TableHeaderStyle.Render(padRight("TIME", 19)),
		TableHeaderStyle.Render("ACTIONS"),
		TableHeaderStyle.Render("DESCRIPTION")))

	for _, m := range r.Manifests {
		w.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
			ValueStyle.Render(padRight(m.ID, 36)),
			MutedStyle.Render(m.Timestamp.Format("2006-01-02 15:04:05")),
			SizeStyle.Render(padLeft(fmt.Sprintf("%d", m.Actions), 7)),
			PathStyle.Render(m.Description)))
	}
	return nil
}

// fileTable renders aligned size/path rows.
func (f *PrettyFormatter) fileTable(files []FileRow) string {
	if len(files) == 0 {
		return MutedStyle.Render("  No files found\n")
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s  %s\n",
		TableHeaderStyle.Render("SIZE"), TableHeaderStyle.Render("PATH")))

	maxSizeWidth := 0
	for _, file := range files {
		if len(file.SizeHuman) > maxSizeWidth {
			maxSizeWidth = len(file.SizeHuman)
		}
	}
	if maxSizeWidth < 8 {
		maxSizeWidth = 8
	}

	for _, file := range files {
		sb.WriteString(fmt.Sprintf("  %s  %s\n",
			SizeStyle.Render(padLeft(file.SizeHuman, maxSizeWidth)),
			PathStyle.Render(file.Path)))
	}

	return sb.String()
}

// shortDigest truncates a hex digest for display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a time.Duration as a human-friendly string.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
