package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/logging"
	"github.com/dshills/pyreview/internal/review"
	"github.com/dshills/pyreview/internal/toolexec"
)

// ErrUnavailable marks a run where the analysis tools produced no usable
// result.
var ErrUnavailable = errors.New("analysis unavailable")

// sourceError reports that a tool could not parse the submission. The other
// tools' output is unreliable then, so the whole analysis is unavailable.
type sourceError struct {
	msg string
}

func (e *sourceError) Error() string { return e.msg }

func isSourceError(err error) bool {
	var se *sourceError
	return errors.As(err, &se)
}

// Analyzer runs flake8, radon and the heuristic checks.
type Analyzer struct {
	runner  toolexec.Runner
	cfg     config.AnalysisConfig
	timeout time.Duration
	logger  hclog.Logger
}

// New returns an Analyzer. A nil runner uses os/exec.
func New(cfg config.AnalysisConfig, runner toolexec.Runner, logger hclog.Logger) *Analyzer {
	logger = logging.OrDiscard(logger).Named("analysis")
	if runner == nil {
		runner = toolexec.NewExecRunner(logger)
	}
	if cfg.Flake8Path == "" {
		cfg.Flake8Path = "flake8"
	}
	if cfg.RadonPath == "" {
		cfg.RadonPath = "radon"
	}
	return &Analyzer{
		runner:  runner,
		cfg:     cfg,
		timeout: cfg.Timeout(),
		logger:  logger,
	}
}

// Analyze returns the findings for sub ordered by line, column, severity and
// rule.
func (a *Analyzer) Analyze(ctx context.Context, sub intake.Submission) ([]review.Finding, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	style, flakeErr := a.flake8(ctx, sub)
	if isSourceError(flakeErr) {
		a.logger.Warn("flake8 could not parse the source", "error", flakeErr)
		return []review.Finding{}, fmt.Errorf("%w: %w", ErrUnavailable, flakeErr)
	}
	complexity, radonErr := a.radon(ctx, sub)
	if isSourceError(radonErr) {
		a.logger.Warn("radon could not parse the source", "error", radonErr)
		return []review.Finding{}, fmt.Errorf("%w: %w", ErrUnavailable, radonErr)
	}

	// A tool that fails to run is skipped; the other tool and the heuristics
	// still report.
	var failures []string
	for _, err := range []error{flakeErr, radonErr} {
		if err != nil {
			a.logger.Warn("analysis tool failed", "error", err)
			failures = append(failures, err.Error())
		}
	}
	if len(failures) == 2 {
		return []review.Finding{}, fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(failures, "; "))
	}

	findings := make([]review.Finding, 0, len(style)+len(complexity))
	findings = append(findings, style...)
	findings = append(findings, complexity...)
	findings = append(findings, Heuristics(sub.Text(), a.cfg.MaxLineLength)...)

	findings = Clamp(findings, sub.Text())
	for i := range findings {
		findings[i].ID = review.FindingID(findings[i])
	}
	review.SortFindings(findings)

	a.logger.Debug("analysis complete", "findings", len(findings), "skipped", len(failures))
	if len(failures) > 0 {
		return findings, &review.PartialAnalysisError{Failures: failures}
	}
	return findings, nil
}

// Clamp moves findings that point outside text back inside it. Line is kept
// in [1, lines] and Column in [1, len(line)+1], counting runes.
func Clamp(findings []review.Finding, text string) []review.Finding {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i := range findings {
		f := &findings[i]
		if f.Line < 1 {
			f.Line, f.Column = 1, 1
		}
		if f.Line > len(lines) {
			f.Line = len(lines)
		}
		maxCol := utf8.RuneCountInString(lines[f.Line-1]) + 1
		if f.Column < 1 {
			f.Column = 1
		}
		if f.Column > maxCol {
			f.Column = maxCol
		}
	}
	return findings
}
