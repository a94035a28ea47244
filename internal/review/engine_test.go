package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/format"
	"github.com/dshills/pyreview/internal/intake"
)

type fakeAnalyzer struct {
	findings []Finding
	err      error
}

func (f fakeAnalyzer) Analyze(context.Context, intake.Submission) ([]Finding, error) {
	if f.err != nil {
		return []Finding{}, f.err
	}
	return append([]Finding(nil), f.findings...), nil
}

type fakeFormatter struct {
	fn func(string) format.Result
}

func (f fakeFormatter) Format(_ context.Context, sub intake.Submission) format.Result {
	return f.fn(sub.Text())
}

type fakeSuggester struct {
	mu       sync.Mutex
	got      []Finding
	out      []Suggestion
	err      error
	blockFor time.Duration
}

func (f *fakeSuggester) Suggest(ctx context.Context, _ intake.Submission, findings []Finding) ([]Suggestion, error) {
	f.mu.Lock()
	f.got = findings
	f.mu.Unlock()
	if f.blockFor > 0 {
		select {
		case <-time.After(f.blockFor):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.out, f.err
}

func spaceAssign(src string) format.Result {
	if src == "x=1\n" {
		return format.Result{Text: "x = 1\n", OK: true}
	}
	return format.Result{Text: src, OK: true}
}

func fixedEngine() *Engine {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Engine{
		Clock: func() time.Time { return at },
		IDs:   func() string { return "report-1" },
	}
}

func TestEngine_Run(t *testing.T) {
	sug := &fakeSuggester{out: []Suggestion{{Text: "Use a descriptive name", Line: 1}}}
	e := fixedEngine()
	e.Analyzer = fakeAnalyzer{findings: []Finding{
		{Rule: "E225", Source: SourceFlake8, Severity: SeverityWarning, Line: 1, Column: 2},
	}}
	e.Formatter = fakeFormatter{fn: spaceAssign}
	e.Suggester = sug

	r, err := e.Run(context.Background(), mustSubmission(t, "x=1\n"))
	require.NoError(t, err)

	assert.Equal(t, "report-1", r.ID)
	assert.Len(t, r.Findings, 1)
	assert.True(t, r.Formatted.OK)
	assert.Equal(t, "x = 1\n", r.Formatted.Text)
	require.Len(t, r.Diff, 2)
	assert.Equal(t, diff.Removed, r.Diff[0].Kind)
	assert.Equal(t, diff.Added, r.Diff[1].Kind)
	assert.Len(t, r.Suggestions, 1)
	assert.False(t, r.SuggestionsUnavailable)
	assert.Len(t, sug.got, 1, "suggester should see the analyzer findings")
}

func TestEngine_SuggestionFailureKeepsFindingsAndDiff(t *testing.T) {
	failures := []error{
		context.DeadlineExceeded,
		errors.New("suggestions unavailable: provider returned 500"),
	}
	for _, failure := range failures {
		t.Run(failure.Error(), func(t *testing.T) {
			e := fixedEngine()
			e.Analyzer = fakeAnalyzer{findings: []Finding{
				{Rule: "E225", Severity: SeverityWarning, Line: 1, Column: 2},
				{Rule: "PY005", Severity: SeverityInfo, Line: 1, Column: 1},
			}}
			e.Formatter = fakeFormatter{fn: spaceAssign}
			e.Suggester = &fakeSuggester{err: failure}

			r, err := e.Run(context.Background(), mustSubmission(t, "x=1\n"))
			require.NoError(t, err)
			assert.True(t, r.SuggestionsUnavailable)
			assert.Empty(t, r.Suggestions)
			assert.Len(t, r.Findings, 2)
			assert.Len(t, r.Diff, 2)
			assert.Equal(t, "x=1\n", diff.OriginalText(r.Diff))
			assert.Equal(t, "x = 1\n", diff.FormattedText(r.Diff))
		})
	}
}

func TestEngine_SuggestionsDisabled(t *testing.T) {
	e := fixedEngine()
	e.Analyzer = fakeAnalyzer{}
	e.Formatter = fakeFormatter{fn: spaceAssign}

	r, err := e.Run(context.Background(), mustSubmission(t, "x = 1\n"))
	require.NoError(t, err)
	assert.True(t, r.SuggestionsUnavailable)
	assert.Equal(t, ErrSuggestionsDisabled.Error(), r.SuggestionsReason)
}

func TestEngine_InvalidSyntax(t *testing.T) {
	src := "print((1)\n"
	e := fixedEngine()
	e.Analyzer = fakeAnalyzer{err: errors.New("analysis unavailable: flake8 could not parse the source")}
	e.Formatter = fakeFormatter{fn: func(s string) format.Result {
		return format.Result{Text: s, OK: false, Error: "Cannot parse: 1:9"}
	}}
	e.Suggester = &fakeSuggester{}

	r, err := e.Run(context.Background(), mustSubmission(t, src))
	require.NoError(t, err)
	assert.True(t, r.AnalysisUnavailable)
	assert.Empty(t, r.Findings)
	assert.False(t, r.Formatted.OK)
	assert.Equal(t, src, r.Formatted.Text)
	require.Len(t, r.Diff, 1)
	assert.Equal(t, diff.Unchanged, r.Diff[0].Kind)
	assert.False(t, r.Summary.Changes.Changed())
}

func TestEngine_FailedFormatKeepsOriginal(t *testing.T) {
	e := fixedEngine()
	e.Analyzer = fakeAnalyzer{}
	e.Formatter = fakeFormatter{fn: func(string) format.Result {
		return format.Result{Text: "garbage", OK: false, Error: "crashed"}
	}}

	r, err := e.Run(context.Background(), mustSubmission(t, "x=1\n"))
	require.NoError(t, err)
	assert.Equal(t, "x=1\n", r.Formatted.Text)
	require.Len(t, r.Diff, 1)
	assert.Equal(t, diff.Unchanged, r.Diff[0].Kind)
}

func TestEngine_AppliesRules(t *testing.T) {
	sug := &fakeSuggester{}
	e := fixedEngine()
	e.Analyzer = fakeAnalyzer{findings: []Finding{
		{Rule: "PY005", Severity: SeverityInfo, Line: 1, Column: 1},
		{Rule: "E225", Severity: SeverityWarning, Line: 1, Column: 2},
	}}
	e.Formatter = fakeFormatter{fn: spaceAssign}
	e.Suggester = sug
	e.Rules = &Rules{Disabled: []string{"PY005"}, SeverityOverrides: map[string]string{"E225": "error"}}

	r, err := e.Run(context.Background(), mustSubmission(t, "x=1\n"))
	require.NoError(t, err)
	require.Len(t, r.Findings, 1)
	assert.Equal(t, SeverityError, r.Findings[0].Severity)
	assert.Equal(t, 1, r.Summary.Counts.Error)
	assert.Len(t, sug.got, 1)
}

func TestEngine_CancelledContext(t *testing.T) {
	e := fixedEngine()
	e.Analyzer = fakeAnalyzer{}
	e.Formatter = fakeFormatter{fn: spaceAssign}
	e.Suggester = &fakeSuggester{blockFor: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	r, err := e.Run(ctx, mustSubmission(t, "x=1\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, r)
}

func TestEngine_DefaultIDs(t *testing.T) {
	e := &Engine{Analyzer: fakeAnalyzer{}, Formatter: fakeFormatter{fn: spaceAssign}}
	a, err := e.Run(context.Background(), mustSubmission(t, "x = 1\n"))
	require.NoError(t, err)
	b, err := e.Run(context.Background(), mustSubmission(t, "x = 1\n"))
	require.NoError(t, err)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

type partialAnalyzer struct{}

func (partialAnalyzer) Analyze(context.Context, intake.Submission) ([]Finding, error) {
	return []Finding{{Rule: "E225", Source: SourceFlake8, Severity: SeverityWarning, Line: 1, Column: 2}},
		&PartialAnalysisError{Failures: []string{"radon: executable not found"}}
}

func TestEngine_PartialAnalysisKeepsFindings(t *testing.T) {
	sug := &fakeSuggester{out: []Suggestion{}}
	e := fixedEngine()
	e.Analyzer = partialAnalyzer{}
	e.Formatter = fakeFormatter{fn: spaceAssign}
	e.Suggester = sug

	r, err := e.Run(context.Background(), mustSubmission(t, "x=1\n"))
	require.NoError(t, err)

	assert.False(t, r.AnalysisUnavailable)
	assert.Equal(t, []string{"radon: executable not found"}, r.AnalysisSkipped)
	require.Len(t, r.Findings, 1)
	assert.Equal(t, "E225", r.Findings[0].Rule)
	require.Len(t, sug.got, 1, "suggestions see the findings that did complete")
}
