package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dshills/pyreview/internal/review"
)

// Heuristic rule codes.
const (
	RuleTodo        = "PY001"
	RulePrint       = "PY002"
	RuleSemicolon   = "PY003"
	RuleLineLength  = "PY004"
	RuleMainGuard   = "PY005"
	RuleCredentials = "PY006"
)

var (
	printCall  = regexp.MustCompile(`\bprint\(`)
	mainGuard  = regexp.MustCompile(`if\s+__name__\s*==\s*["']__main__["']`)
	credential = regexp.MustCompile(`(?i)passw(or)?d`)
)

// Heuristics runs the line-based checks over text. maxLineLength of zero
// disables PY004.
func Heuristics(text string, maxLineLength int) []review.Finding {
	var findings []review.Finding
	add := func(rule string, sev review.Severity, line, col int, msg string) {
		findings = append(findings, review.Finding{
			Rule:     rule,
			Source:   review.SourceHeuristics,
			Severity: sev,
			Line:     line,
			Column:   col,
			Message:  msg,
		})
	}

	credentialSeen := false
	for i, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		n := i + 1
		commentAt, semicolonAt := scanLine(line)
		code := line
		if commentAt >= 0 {
			code = line[:commentAt]
			if idx := strings.Index(line[commentAt:], "TODO"); idx >= 0 {
				add(RuleTodo, review.SeverityInfo, n, column(line, commentAt+idx),
					"Found TODO comment. Consider resolving it.")
			}
		}
		if loc := printCall.FindStringIndex(code); loc != nil {
			add(RulePrint, review.SeverityInfo, n, column(line, loc[0]),
				"Avoid using print statements; use logging instead.")
		}
		if semicolonAt >= 0 {
			add(RuleSemicolon, review.SeverityInfo, n, column(line, semicolonAt),
				"Contains semicolon (multiple statements on one line).")
		}
		if width := utf8.RuneCountInString(line); maxLineLength > 0 && width > maxLineLength {
			add(RuleLineLength, review.SeverityInfo, n, maxLineLength+1,
				fmt.Sprintf("Too long (%d chars). Consider wrapping.", width))
		}
		if !credentialSeen {
			if loc := credential.FindStringIndex(line); loc != nil {
				credentialSeen = true
				add(RuleCredentials, review.SeverityWarning, n, column(line, loc[0]),
					"Hardcoded credential-like string found. Use environment variables or secure vaults.")
			}
		}
	}

	if !mainGuard.MatchString(text) {
		add(RuleMainGuard, review.SeverityInfo, 1, 1,
			`Missing if __name__ == "__main__": guard (only required for scripts).`)
	}
	return findings
}

// scanLine returns the byte offsets of the first '#' comment and of the first
// ';' outside single-line string literals, or -1 for each when absent.
func scanLine(line string) (commentAt, semicolonAt int) {
	semicolonAt = -1
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return i, semicolonAt
		case c == ';' && semicolonAt < 0:
			semicolonAt = i
		}
	}
	return -1, semicolonAt
}

// column converts a byte offset into a 1-based rune column.
func column(line string, offset int) int {
	return utf8.RuneCountInString(line[:offset]) + 1
}
