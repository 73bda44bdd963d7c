package output

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// PlainFormatter formats reports as simple tab-separated tables.
// It produces plain text output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// FormatScan writes one row per file: size and path.
func (f *PlainFormatter) FormatScan(w *bytes.Buffer, r *ScanReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("SIZE\tPATH\n")); err != nil {
		return err
	}
	for _, file := range r.Files {
		if _, err := tw.Write([]byte(file.SizeHuman + "\t" + file.Path + "\n")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// FormatDupes writes one row per group member: group index, marker for the
// recommended keep, size, and path.
func (f *PlainFormatter) FormatDupes(w *bytes.Buffer, r *DupesReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("GROUP\tKEEP\tSIZE\tPATH\n")); err != nil {
		return err
	}
	for i, g := range r.Groups {
		for _, file := range g.Files {
			keep := ""
			if file.Path == g.RecommendedKeep {
				keep = "*"
			}
			row := fmt.Sprintf("%d\t%s\t%s\t%s\n", i+1, keep, file.SizeHuman, file.Path)
			if _, err := tw.Write([]byte(row)); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}

// FormatPlan writes one row per planned move.
func (f *PlainFormatter) FormatPlan(w *bytes.Buffer, r *PlanReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("CATEGORY\tSOURCE\tDESTINATION\n")); err != nil {
		return err
	}
	for _, m := range r.Moves {
		if _, err := tw.Write([]byte(m.Category + "\t" + m.Source + "\t" + m.Destination + "\n")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// FormatOrganize writes a key-value summary of the execution.
func (f *PlainFormatter) FormatOrganize(w *bytes.Buffer, r *OrganizeReport) error {
	fmt.Fprintf(w, "moved %d\nskipped %d\nfailed %d\nbytes %s\n",
		r.Moved, r.Skipped, r.Failed, humanize.IBytes(uint64(r.BytesMoved)))
	if r.ManifestID != "" {
		fmt.Fprintf(w, "manifest %s\n", r.ManifestID)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error %s: %s\n", e.Source, e.Error)
	}
	return nil
}

// FormatUndo writes a key-value summary of the undo.
func (f *PlainFormatter) FormatUndo(w *bytes.Buffer, r *UndoReport) error {
	fmt.Fprintf(w, "manifest %s\nrestored %d\nfailed %d\n",
		r.ManifestID, r.Restored, len(r.Failed))
	for _, e := range r.Failed {
		fmt.Fprintf(w, "error %s: %s\n", e.Action.OriginalPath, e.Error)
	}
	return nil
}

// FormatHistory writes one row per recorded manifest.
func (f *PlainFormatter) FormatHistory(w *bytes.Buffer, r *HistoryReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("ID\tTIME\tACTIONS\tDESCRIPTION\n")); err != nil {
		return err
	}
	for _, m := range r.Manifests {
		row := m.ID + "\t" + m.Timestamp.Format("2006-01-02 15:04:05") + "\t" +
			strconv.Itoa(m.Actions) + "\t" + m.Description + "\n"
		if _, err := tw.Write([]byte(row)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
