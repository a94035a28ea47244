package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/review"
	"github.com/dshills/pyreview/internal/toolexec"
)

// ComplexityRule is the rule reported for complex functions, matching the
// mccabe plugin code.
const ComplexityRule = "C901"

// radonBlock is one entry of `radon cc --json` output.
type radonBlock struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Classname  string `json:"classname"`
	Lineno     int    `json:"lineno"`
	ColOffset  int    `json:"col_offset"`
	Complexity int    `json:"complexity"`
	Rank       string `json:"rank"`
}

func (a *Analyzer) radon(ctx context.Context, sub intake.Submission) ([]review.Finding, error) {
	tmp, err := os.CreateTemp("", "pyreview-*.py")
	if err != nil {
		return nil, fmt.Errorf("radon: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(sub.Text()); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("radon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("radon: %w", err)
	}

	res, err := a.runner.Run(ctx, toolexec.Command{
		Name: a.cfg.RadonPath,
		Args: []string{"cc", "--json", "--show-complexity", tmp.Name()},
	})
	if err != nil {
		return nil, fmt.Errorf("radon: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("radon exited with status %d: %s", res.ExitCode, firstLine(res.Stderr))
	}
	return parseRadon(res.Stdout, a.cfg.ComplexityModerate, a.cfg.ComplexityHigh)
}

// parseRadon converts radon blocks above the moderate threshold into
// findings. Radon reports a parse failure as {"<path>": {"error": "..."}}.
func parseRadon(out []byte, moderate, high int) ([]review.Finding, error) {
	var byFile map[string]json.RawMessage
	if err := json.Unmarshal(out, &byFile); err != nil {
		return nil, fmt.Errorf("parsing radon output: %w", err)
	}

	var findings []review.Finding
	for _, raw := range byFile {
		var failure struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &failure); err == nil && failure.Error != "" {
			return nil, &sourceError{msg: "radon could not parse the source: " + failure.Error}
		}

		var blocks []radonBlock
		if err := json.Unmarshal(raw, &blocks); err != nil {
			return nil, fmt.Errorf("parsing radon output: %w", err)
		}
		for _, b := range blocks {
			if f, ok := complexityFinding(b, moderate, high); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings, nil
}

func complexityFinding(b radonBlock, moderate, high int) (review.Finding, bool) {
	name := b.Name
	if b.Classname != "" {
		name = b.Classname + "." + b.Name
	}
	kind := "Function"
	if b.Type == "class" {
		kind = "Class"
	}

	f := review.Finding{
		Rule:   ComplexityRule,
		Source: review.SourceRadon,
		Line:   b.Lineno,
		Column: b.ColOffset + 1,
	}
	switch {
	case b.Complexity > high:
		f.Severity = review.SeverityWarning
		f.Message = fmt.Sprintf("%s `%s` has high complexity (%d). Consider refactoring.", kind, name, b.Complexity)
	case b.Complexity > moderate:
		f.Severity = review.SeverityInfo
		f.Message = fmt.Sprintf("%s `%s` complexity is moderate (%d).", kind, name, b.Complexity)
	default:
		return review.Finding{}, false
	}
	return f, true
}
