package analysis

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/review"
	"github.com/dshills/pyreview/internal/toolexec"
)

var flake8Line = regexp.MustCompile(`:(\d+):(\d+): ([A-Z]+[0-9]+) (.*)$`)

func (a *Analyzer) flake8(ctx context.Context, sub intake.Submission) ([]review.Finding, error) {
	args := []string{"--format=default"}
	if a.cfg.MaxLineLength > 0 {
		args = append(args, "--max-line-length="+strconv.Itoa(a.cfg.MaxLineLength))
	}
	if len(a.cfg.Ignore) > 0 {
		args = append(args, "--ignore="+strings.Join(a.cfg.Ignore, ","))
	}
	args = append(args, "--stdin-display-name="+sub.DisplayName(), "-")

	res, err := a.runner.Run(ctx, toolexec.Command{
		Name:  a.cfg.Flake8Path,
		Args:  args,
		Stdin: []byte(sub.Text()),
	})
	if err != nil {
		return nil, fmt.Errorf("flake8: %w", err)
	}
	if res.ExitCode > 1 {
		return nil, fmt.Errorf("flake8 exited with status %d: %s", res.ExitCode, firstLine(res.Stderr))
	}

	findings, err := parseFlake8(res.Stdout)
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// parseFlake8 parses default-format flake8 output. A syntax or tokenizer
// error means the other codes are unreliable, so it returns a sourceError.
func parseFlake8(out []byte) ([]review.Finding, error) {
	var findings []review.Finding
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := flake8Line.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		code, msg := m[3], strings.TrimSpace(m[4])
		if code == "E999" || code == "E902" {
			return nil, &sourceError{msg: fmt.Sprintf("flake8 could not parse the source at line %d: %s", line, msg)}
		}
		findings = append(findings, review.Finding{
			Rule:     code,
			Source:   review.SourceFlake8,
			Severity: flake8Severity(code),
			Line:     line,
			Column:   col,
			Message:  msg,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading flake8 output: %w", err)
	}
	return findings, nil
}

// flake8Severity maps an error code to a severity: syntax-level errors and
// undefined names are errors, other pycodestyle/pyflakes codes warnings, and
// everything else (W, C, N, D and plugin codes) info.
func flake8Severity(code string) review.Severity {
	switch {
	case strings.HasPrefix(code, "E9"),
		code == "F821", code == "F822", code == "F823",
		strings.HasPrefix(code, "F63"), strings.HasPrefix(code, "F7"):
		return review.SeverityError
	case strings.HasPrefix(code, "E"), strings.HasPrefix(code, "F"):
		return review.SeverityWarning
	default:
		return review.SeverityInfo
	}
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "no output"
	}
	return fmt.Sprintf("%q", s)
}
