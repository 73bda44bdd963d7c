package output

import (
	"bytes"
	"encoding/json"
)

// JSONFormatter formats reports as indented JSON documents.
type JSONFormatter struct{}

func encode(w *bytes.Buffer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatScan writes the scan report as JSON.
func (f *JSONFormatter) FormatScan(w *bytes.Buffer, r *ScanReport) error {
	return encode(w, r)
}

// FormatDupes writes the duplicates report as JSON.
func (f *JSONFormatter) FormatDupes(w *bytes.Buffer, r *DupesReport) error {
	return encode(w, r)
}

// FormatPlan writes the plan report as JSON.
func (f *JSONFormatter) FormatPlan(w *bytes.Buffer, r *PlanReport) error {
	return encode(w, r)
}

// FormatOrganize writes the organize report as JSON.
func (f *JSONFormatter) FormatOrganize(w *bytes.Buffer, r *OrganizeReport) error {
	return encode(w, r)
}

// FormatUndo writes the undo report as JSON.
func (f *JSONFormatter) FormatUndo(w *bytes.Buffer, r *UndoReport) error {
	return encode(w, r)
}

// FormatHistory writes the history report as JSON.
func (f *JSONFormatter) FormatHistory(w *bytes.Buffer, r *HistoryReport) error {
	return encode(w, r)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
