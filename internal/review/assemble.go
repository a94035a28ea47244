package review

import (
	"errors"
	"slices"
	"time"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/format"
	"github.com/dshills/pyreview/internal/intake"
)

const (
	// ToolName is reported in every report.
	ToolName = "pyreview"
	// ReportVersion is the version of the report layout.
	ReportVersion = "1.0"
)

// AssembleInput carries the outputs of every stage. A non-nil AnalysisErr or
// SuggestionsErr marks that section unavailable.
type AssembleInput struct {
	ID             string
	Submission     intake.Submission
	Findings       []Finding
	AnalysisErr    error
	Formatted      format.Result
	Diff           []diff.Segment
	Suggestions    []Suggestion
	SuggestionsErr error
	Timing         Timing
	GeneratedAt    time.Time
}

// Assemble builds a Report from in. It copies every slice so later changes to
// the inputs do not reach the report.
func Assemble(in AssembleInput) *Report {
	sub := in.Submission
	r := &Report{
		ID:      in.ID,
		Tool:    ToolName,
		Version: ReportVersion,
		Input: InputInfo{
			Name:       sub.DisplayName(),
			Origin:     sub.Origin(),
			Lines:      sub.Lines(),
			Bytes:      len(sub.Text()),
			Hash:       sub.Hash(),
			ReceivedAt: sub.ReceivedAt(),
		},
		Findings:    []Finding{},
		Formatted:   in.Formatted,
		Diff:        []diff.Segment{},
		Suggestions: []Suggestion{},
		Timing:      in.Timing,
		GeneratedAt: in.GeneratedAt,
		Submission:  sub,
	}

	var partial *PartialAnalysisError
	switch {
	case errors.As(in.AnalysisErr, &partial):
		r.AnalysisSkipped = slices.Clone(partial.Failures)
		if len(in.Findings) > 0 {
			r.Findings = slices.Clone(in.Findings)
		}
	case in.AnalysisErr != nil:
		r.AnalysisUnavailable = true
		r.AnalysisReason = in.AnalysisErr.Error()
	case len(in.Findings) > 0:
		r.Findings = slices.Clone(in.Findings)
	}

	if in.SuggestionsErr != nil {
		r.SuggestionsUnavailable = true
		r.SuggestionsReason = in.SuggestionsErr.Error()
	} else if len(in.Suggestions) > 0 {
		r.Suggestions = slices.Clone(in.Suggestions)
	}

	if len(in.Diff) > 0 {
		r.Diff = slices.Clone(in.Diff)
	}

	r.Summary = ComputeSummary(r.Findings)
	r.Summary.Changes = diff.ComputeStats(r.Diff)
	return r
}
