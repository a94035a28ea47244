package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/format"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/logging"
)

// ErrSuggestionsDisabled is the reason recorded when no Suggester is set.
var ErrSuggestionsDisabled = errors.New("suggestions disabled")

// PartialAnalysisError reports analysis tools that failed to run while the
// rest of the analysis still produced findings.
type PartialAnalysisError struct {
	Failures []string
}

func (e *PartialAnalysisError) Error() string {
	return "analysis incomplete: " + strings.Join(e.Failures, "; ")
}

// Analyzer produces findings. On failure it returns an error and the engine
// marks the analysis section unavailable, unless the error is a
// *PartialAnalysisError returned alongside the findings that did complete.
type Analyzer interface {
	Analyze(ctx context.Context, sub intake.Submission) ([]Finding, error)
}

// Formatter produces the formatted source. It reports failures in the result.
type Formatter interface {
	Format(ctx context.Context, sub intake.Submission) format.Result
}

// Suggester asks the AI service for suggestions.
type Suggester interface {
	Suggest(ctx context.Context, sub intake.Submission, findings []Finding) ([]Suggestion, error)
}

// Engine runs the review pipeline for one submission at a time. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	Analyzer  Analyzer
	Formatter Formatter
	Suggester Suggester
	Rules     *Rules
	Logger    hclog.Logger
	Clock     func() time.Time
	IDs       func() string
}

// Run reviews sub. Analysis runs and is followed by the suggestion call while
// formatting and diffing run alongside. Stage failures are recorded in the
// report; Run itself only fails when ctx is done.
func (e *Engine) Run(ctx context.Context, sub intake.Submission) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := e.Clock
	if now == nil {
		now = time.Now
	}
	newID := e.IDs
	if newID == nil {
		newID = uuid.NewString
	}
	logger := logging.OrDiscard(e.Logger)

	start := now()
	var (
		findings    []Finding
		analysisErr error
		suggestions []Suggestion
		suggestErr  error
		formatted   format.Result
		segments    []diff.Segment
		timing      Timing
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t := now()
		findings, analysisErr = e.analyze(gctx, sub)
		timing.AnalysisMs = since(now, t)
		if analysisErr != nil {
			logger.Warn("analysis degraded", "error", analysisErr)
		}

		t = now()
		suggestions, suggestErr = e.suggest(gctx, sub, findings)
		timing.SuggestMs = since(now, t)
		if suggestErr != nil && !errors.Is(suggestErr, ErrSuggestionsDisabled) {
			logger.Warn("suggestions unavailable", "error", suggestErr)
		}
		return nil
	})

	g.Go(func() error {
		t := now()
		formatted = e.format(gctx, sub)
		timing.FormatMs = since(now, t)

		t = now()
		segments = diff.Build(sub.Text(), formatted.Text)
		timing.DiffMs = since(now, t)
		return nil
	})

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timing.TotalMs = since(now, start)
	report := Assemble(AssembleInput{
		ID:             newID(),
		Submission:     sub,
		Findings:       findings,
		AnalysisErr:    analysisErr,
		Formatted:      formatted,
		Diff:           segments,
		Suggestions:    suggestions,
		SuggestionsErr: suggestErr,
		Timing:         timing,
		GeneratedAt:    now(),
	})
	logger.Info("review complete",
		"id", report.ID,
		"findings", len(report.Findings),
		"suggestions", len(report.Suggestions),
		"total_ms", timing.TotalMs)
	return report, nil
}

func (e *Engine) analyze(ctx context.Context, sub intake.Submission) ([]Finding, error) {
	if e.Analyzer == nil {
		return nil, errors.New("analysis disabled")
	}
	findings, err := e.Analyzer.Analyze(ctx, sub)
	var partial *PartialAnalysisError
	if err != nil && !errors.As(err, &partial) {
		return nil, err
	}
	return ApplyRules(findings, e.Rules), err
}

func (e *Engine) suggest(ctx context.Context, sub intake.Submission, findings []Finding) ([]Suggestion, error) {
	if e.Suggester == nil {
		return nil, ErrSuggestionsDisabled
	}
	return e.Suggester.Suggest(ctx, sub, findings)
}

func (e *Engine) format(ctx context.Context, sub intake.Submission) format.Result {
	if e.Formatter == nil {
		return format.Result{Text: sub.Text(), Error: "formatter disabled"}
	}
	res := e.Formatter.Format(ctx, sub)
	if !res.OK {
		res.Text = sub.Text()
	}
	return res
}

func since(now func() time.Time, t time.Time) int64 {
	return now().Sub(t).Milliseconds()
}
