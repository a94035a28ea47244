package output

import (
	"io"
	"strings"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/review"
)

// MarkdownWriter outputs a markdown report suitable for a PR comment or wiki
// page.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	counts := report.Summary.Counts
	total := counts.Error + counts.Warning + counts.Info

	ew.printf("## Code Review: `%s`\n\n", report.Input.Name)
	ew.printf("%d lines, reviewed %s\n\n", report.Input.Lines, report.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))

	ew.printf("### Findings\n\n")
	for _, skipped := range report.AnalysisSkipped {
		ew.printf("> :warning: Skipped: %s\n\n", skipped)
	}
	switch {
	case report.AnalysisUnavailable:
		ew.printf("> :warning: Static analysis unavailable: %s\n\n", report.AnalysisReason)
	case total == 0:
		ew.println("No issues found. :white_check_mark:\n")
	default:
		ew.printf("| Severity | Count |\n")
		ew.printf("|----------|-------|\n")
		ew.printf("| Error    | %d    |\n", counts.Error)
		ew.printf("| Warning  | %d    |\n", counts.Warning)
		ew.printf("| Info     | %d    |\n", counts.Info)
		ew.printf("| **Total** | **%d** |\n\n", total)

		for _, sev := range []review.Severity{review.SeverityError, review.SeverityWarning, review.SeverityInfo} {
			findings := filterSeverity(report.Findings, sev)
			if len(findings) == 0 {
				continue
			}
			ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdSeverityIcon(sev), strings.ToUpper(string(sev)), len(findings))
			ew.printf("| Line | Col | Rule | Message | Source |\n")
			ew.printf("|------|-----|------|---------|--------|\n")
			for _, f := range findings {
				ew.printf("| %d | %d | `%s` | %s | %s |\n", f.Line, f.Column, f.Rule, mdEscape(f.Message), f.Source)
			}
			ew.printf("\n</details>\n\n")
		}
	}

	ew.printf("### Formatting\n\n")
	changes := report.Summary.Changes
	switch {
	case !report.Formatted.OK:
		ew.printf("black could not format this file: %s\n\n", mdEscape(report.Formatted.Error))
	case !changes.Changed():
		ew.printf("Already formatted with black.\n\n")
	default:
		patch, err := diff.Patch(report.Input.Name, report.Diff)
		if err != nil {
			return err
		}
		ew.printf("black would change %d block(s): +%d -%d\n\n", changes.Blocks, changes.Added, changes.Removed)
		ew.printf("```diff\n%s```\n\n", patch)
	}

	ew.printf("### Suggestions\n\n")
	switch {
	case report.SuggestionsUnavailable:
		ew.printf("> Suggestions unavailable: %s\n\n", report.SuggestionsReason)
	case len(report.Suggestions) == 0:
		ew.printf("No suggestions.\n\n")
	default:
		for _, s := range report.Suggestions {
			if tag := suggestionTag(s); tag != "" {
				ew.printf("- **%s**: %s\n", tag, s.Text)
			} else {
				ew.printf("- %s\n", s.Text)
			}
		}
		ew.println("")
	}

	ew.printf("*Reviewed in %dms (analysis: %dms, format: %dms, suggestions: %dms)*\n",
		report.Timing.TotalMs, report.Timing.AnalysisMs, report.Timing.FormatMs, report.Timing.SuggestMs)
	return ew.err
}

func filterSeverity(findings []review.Finding, sev review.Severity) []review.Finding {
	var out []review.Finding
	for _, f := range findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return ":red_circle:"
	case review.SeverityWarning:
		return ":orange_circle:"
	case review.SeverityInfo:
		return ":large_blue_circle:"
	default:
		return ":white_circle:"
	}
}

// mdEscape keeps a message from breaking a table row.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
