package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct {
	Color bool
}

type palette struct {
	err, warn, info, added, removed, bold, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow),
		info:    color.New(color.FgCyan),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.added, p.removed, p.bold, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s review.Severity) *color.Color {
	switch s {
	case review.SeverityError:
		return p.err
	case review.SeverityWarning:
		return p.warn
	default:
		return p.info
	}
}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	p := newPalette(t.Color)

	counts := report.Summary.Counts
	total := counts.Error + counts.Warning + counts.Info
	ew.printf("%s %s (%d lines)\n", p.bold.Sprint("pyreview:"), report.Input.Name, report.Input.Lines)
	ew.println(strings.Repeat("─", 60))
	if report.AnalysisUnavailable {
		ew.printf("Findings: %s\n", p.warn.Sprint("unavailable ("+report.AnalysisReason+")"))
	} else {
		ew.printf("Findings: %d total", total)
		if total > 0 {
			ew.printf(" (%d error, %d warning, %d info)", counts.Error, counts.Warning, counts.Info)
		}
		ew.println("")
	}
	for _, skipped := range report.AnalysisSkipped {
		ew.printf("%s %s\n", p.warn.Sprint("Skipped:"), skipped)
	}
	ew.println(strings.Repeat("─", 60))

	if !report.AnalysisUnavailable {
		if total == 0 {
			ew.println("\nNo issues found.")
		} else {
			ew.println("")
		}
		for _, f := range report.Findings {
			sev := p.severity(f.Severity)
			ew.printf("  %s %5s  %-6s %s %s\n",
				sev.Sprint(severityIcon(f.Severity)),
				fmt.Sprintf("%d:%d", f.Line, f.Column),
				f.Rule,
				f.Message,
				p.dim.Sprintf("(%s)", f.Source))
		}
	}

	ew.printf("\n%s\n", p.bold.Sprint("Formatting"))
	changes := report.Summary.Changes
	switch {
	case !report.Formatted.OK:
		ew.printf("  black could not format this file: %s\n", report.Formatted.Error)
	case !changes.Changed():
		ew.println("  Already formatted.")
	default:
		ew.printf("  black would change %d block(s): +%d -%d\n\n", changes.Blocks, changes.Added, changes.Removed)
		patch, err := diff.Patch(report.Input.Name, report.Diff)
		if err != nil {
			return err
		}
		for _, line := range strings.SplitAfter(patch, "\n") {
			switch {
			case line == "":
			case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
				ew.printf("  %s", p.bold.Sprint(line))
			case strings.HasPrefix(line, "+"):
				ew.printf("  %s", p.added.Sprint(line))
			case strings.HasPrefix(line, "-"):
				ew.printf("  %s", p.removed.Sprint(line))
			case strings.HasPrefix(line, "@@"):
				ew.printf("  %s", p.info.Sprint(line))
			default:
				ew.printf("  %s", line)
			}
		}
	}

	ew.printf("\n%s\n", p.bold.Sprint("Suggestions"))
	switch {
	case report.SuggestionsUnavailable:
		ew.printf("  %s\n", p.warn.Sprint("Unavailable: "+report.SuggestionsReason))
	case len(report.Suggestions) == 0:
		ew.println("  None.")
	default:
		for i, s := range report.Suggestions {
			ew.printf("  %d. ", i+1)
			if tag := suggestionTag(s); tag != "" {
				ew.printf("%s ", p.dim.Sprint("["+tag+"]"))
			}
			for j, line := range wrapText(s.Text, 70) {
				if j > 0 {
					ew.printf("     ")
				}
				ew.println(line)
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (analysis: %dms, format: %dms, suggestions: %dms)\n",
		report.Timing.TotalMs, report.Timing.AnalysisMs, report.Timing.FormatMs, report.Timing.SuggestMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "[E]"
	case review.SeverityWarning:
		return "[W]"
	case review.SeverityInfo:
		return "[I]"
	default:
		return "[?]"
	}
}

// suggestionTag joins the optional category, line and confidence of a
// suggestion, e.g. "security, line 4, 90%".
func suggestionTag(s review.Suggestion) string {
	var parts []string
	if s.Category != "" {
		parts = append(parts, s.Category)
	}
	if s.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", s.Line))
	}
	if s.Confidence > 0 {
		parts = append(parts, fmt.Sprintf("%.0f%%", s.Confidence*100))
	}
	return strings.Join(parts, ", ")
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
