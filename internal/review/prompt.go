package review

import (
	"fmt"
	"strings"
)

// MaxPromptFindings caps how many findings are quoted in the prompt.
const MaxPromptFindings = 50

const systemPrompt = `You are an experienced Python reviewer. You receive one Python source file and the diagnostics that flake8, radon and a few simple checks already reported for it.

Rules:
1. Do not repeat the diagnostics you were given. Add what the tools cannot see: naming, structure, error handling, idiomatic Python, testability, security.
2. Be concise and actionable. Each suggestion is one or two sentences.
3. Reference a line number when the suggestion is about a specific line.
4. Rate your confidence from 0.0 to 1.0.
5. Categorize each suggestion as one of: bug, security, performance, readability, design, testing, docs.

You MUST respond with ONLY a JSON array. No markdown, no explanation, no preamble.

Each element must have this exact structure:
{
  "category": "bug|security|performance|readability|design|testing|docs",
  "confidence": 0.0-1.0,
  "line": 1,
  "text": "The suggestion"
}

Use "line": 0 when the suggestion concerns the whole file. If you have nothing to add, respond with an empty array: []`

// SystemPrompt returns the system prompt for the suggestion service.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt constructs the user prompt from the (already redacted)
// source, the findings and optional rules.
func BuildUserPrompt(name, source string, findings []Finding, maxSuggestions int, rules *Rules) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review the Python file %s.\n\n", name)

	if maxSuggestions > 0 {
		fmt.Fprintf(&b, "Return at most %d suggestions.\n", maxSuggestions)
	}

	if rulesSection := BuildRulesPromptSection(rules); rulesSection != "" {
		b.WriteString(rulesSection)
	}

	b.WriteString("\n--- BEGIN DIAGNOSTICS ---\n")
	b.WriteString(FormatFindings(findings, MaxPromptFindings))
	b.WriteString("--- END DIAGNOSTICS ---\n")

	b.WriteString("\n--- BEGIN SOURCE ---\n")
	b.WriteString(numberLines(source))
	b.WriteString("--- END SOURCE ---\n")

	return b.String()
}

// FormatFindings renders up to limit findings one per line.
func FormatFindings(findings []Finding, limit int) string {
	if len(findings) == 0 {
		return "(none)\n"
	}
	var b strings.Builder
	for i, f := range findings {
		if limit > 0 && i == limit {
			fmt.Fprintf(&b, "... and %d more\n", len(findings)-limit)
			break
		}
		fmt.Fprintf(&b, "%d:%d %s [%s] %s\n", f.Line, f.Column, f.Rule, f.Severity, f.Message)
	}
	return b.String()
}

func numberLines(source string) string {
	var b strings.Builder
	for i, line := range strings.Split(strings.TrimSuffix(source, "\n"), "\n") {
		fmt.Fprintf(&b, "%4d | %s\n", i+1, line)
	}
	return b.String()
}
