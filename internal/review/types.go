package review

import (
	"cmp"
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/format"
	"github.com/dshills/pyreview/internal/intake"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ParseSeverity maps a user-supplied name onto a Severity. Unknown names
// yield false.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "low":
		return SeverityInfo, true
	case "warning", "warn", "medium":
		return SeverityWarning, true
	case "error", "high":
		return SeverityError, true
	}
	return "", false
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	t, ok := ParseSeverity(threshold)
	if !ok {
		return false
	}
	return SeverityRank(s) >= SeverityRank(t)
}

// Source names the tool a finding came from.
type Source string

const (
	SourceFlake8     Source = "flake8"
	SourceRadon      Source = "radon"
	SourceHeuristics Source = "heuristics"
)

// Finding is one static-analysis diagnostic. Line and Column are 1-based.
type Finding struct {
	ID       string   `json:"id"`
	Rule     string   `json:"rule"`
	Source   Source   `json:"source"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
}

// FindingID derives a stable identifier from rule, position and message.
func FindingID(f Finding) string {
	data := fmt.Sprintf("%s:%d:%d:%s", f.Rule, f.Line, f.Column, f.Message)
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", h[:8])
}

// SortFindings orders findings by line, column, severity (most severe
// first) and rule.
func SortFindings(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Column, b.Column); c != 0 {
			return c
		}
		if c := cmp.Compare(SeverityRank(b.Severity), SeverityRank(a.Severity)); c != 0 {
			return c
		}
		return cmp.Compare(a.Rule, b.Rule)
	})
}

// Suggestion is one piece of advice from the AI service. Category,
// Confidence and Line are optional; zero means absent.
type Suggestion struct {
	Text       string  `json:"text"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Line       int     `json:"line,omitempty"`
}

// InputInfo describes what was reviewed.
type InputInfo struct {
	Name       string        `json:"name"`
	Origin     intake.Origin `json:"origin"`
	Lines      int           `json:"lines"`
	Bytes      int           `json:"bytes"`
	Hash       string        `json:"sha256"`
	ReceivedAt time.Time     `json:"receivedAt"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

// Summary provides an overview of a report.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highestSeverity"`
	Changes         diff.Stats     `json:"changes"`
}

// Timing contains per-stage durations.
type Timing struct {
	AnalysisMs int64 `json:"analysisMs"`
	FormatMs   int64 `json:"formatMs"`
	DiffMs     int64 `json:"diffMs"`
	SuggestMs  int64 `json:"suggestMs"`
	TotalMs    int64 `json:"totalMs"`
}

// Report is the top-level output structure. It is built once by Assemble and
// not modified afterwards.
type Report struct {
	ID                     string            `json:"id"`
	Tool                   string            `json:"tool"`
	Version                string            `json:"version"`
	Input                  InputInfo         `json:"input"`
	Summary                Summary           `json:"summary"`
	Findings               []Finding         `json:"findings"`
	Formatted              format.Result     `json:"formatted"`
	Diff                   []diff.Segment    `json:"diff"`
	Suggestions            []Suggestion      `json:"suggestions"`
	AnalysisUnavailable    bool              `json:"analysisUnavailable"`
	AnalysisReason         string            `json:"analysisReason,omitempty"`
	AnalysisSkipped        []string          `json:"analysisSkipped,omitempty"`
	SuggestionsUnavailable bool              `json:"suggestionsUnavailable"`
	SuggestionsReason      string            `json:"suggestionsReason,omitempty"`
	Timing                 Timing            `json:"timing"`
	GeneratedAt            time.Time         `json:"generatedAt"`
	Submission             intake.Submission `json:"-"`
}

// Source returns the submitted text.
func (r *Report) Source() string {
	return r.Submission.Text()
}

// ComputeSummary calculates the severity part of a summary from findings.
func ComputeSummary(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityInfo:
			s.Counts.Info++
		case SeverityWarning:
			s.Counts.Warning++
		case SeverityError:
			s.Counts.Error++
		}
		if SeverityRank(f.Severity) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = f.Severity
		}
	}
	return s
}
