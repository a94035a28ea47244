package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dshills/pyreview/internal/review"
)

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONWriter{}
	if err := w.Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var decoded review.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded.Tool != "pyreview" {
		t.Errorf("Tool = %q, want pyreview", decoded.Tool)
	}
	if len(decoded.Findings) != 3 {
		t.Errorf("Findings count = %d, want 3", len(decoded.Findings))
	}
	if decoded.Summary.Counts.Error != 1 {
		t.Errorf("Error count = %d, want 1", decoded.Summary.Counts.Error)
	}
	if len(decoded.Diff) == 0 {
		t.Error("diff segments should be serialized")
	}
	if decoded.Suggestions[0].Category != "style" {
		t.Errorf("Suggestion category = %q, want style", decoded.Suggestions[0].Category)
	}
}

func TestJSONWriter_DegradedFlags(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, degradedReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if raw["analysisUnavailable"] != true || raw["suggestionsUnavailable"] != true {
		t.Errorf("unavailable flags missing: %v", raw)
	}
	if raw["analysisReason"] != "flake8 not found on the system" {
		t.Errorf("analysisReason = %v", raw["analysisReason"])
	}
}

func TestJSONWriter_DoesNotEscapeSource(t *testing.T) {
	r := sampleReport()
	r.Findings[0].Message = "compare a < b && c > d"
	r.Formatted.Text = "if a < b and c & d:\n    pass\n"

	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, r); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, escaped := range []string{`\u003c`, `\u003e`, `\u0026`} {
		if strings.Contains(out, escaped) {
			t.Errorf("output contains %s, want literal characters", escaped)
		}
	}
	if !strings.Contains(out, "compare a < b && c > d") {
		t.Error("finding message should be written verbatim")
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("output should end with a newline")
	}

	var decoded review.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded.Formatted.Text != r.Formatted.Text {
		t.Errorf("formatted code = %q, want %q", decoded.Formatted.Text, r.Formatted.Text)
	}
}

func TestJSONWriter_AnalysisSkipped(t *testing.T) {
	r := sampleReport()
	r.AnalysisSkipped = []string{"radon: not found"}

	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, r); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var decoded review.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(decoded.AnalysisSkipped) != 1 || decoded.AnalysisSkipped[0] != "radon: not found" {
		t.Errorf("AnalysisSkipped = %v", decoded.AnalysisSkipped)
	}
}
