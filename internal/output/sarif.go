package output

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/dshills/pyreview/internal/review"
)

const informationURI = "https://github.com/dshills/pyreview"

// SARIFWriter outputs findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *review.Report) error {
	log, err := buildSARIF(report)
	if err != nil {
		return err
	}
	if err := log.PrettyWrite(w); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	return nil
}

func buildSARIF(report *review.Report) (*sarif.Report, error) {
	log, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(review.ToolName, informationURI)
	version := report.Version
	run.Tool.Driver.Version = &version

	for _, f := range report.Findings {
		run.AddRule(f.Rule).
			WithName(string(f.Source)).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: severityToLevel(f.Severity),
			})

		region := sarif.NewRegion().WithStartLine(max(f.Line, 1))
		if f.Column > 0 {
			region.WithStartColumn(f.Column)
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(report.Input.Name)).
				WithRegion(region),
		)

		result := sarif.NewRuleResult(f.Rule).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(severityToLevel(f.Severity)).
			WithLocations([]*sarif.Location{location}).
			WithPartialFingerPrints(map[string]interface{}{"findingId": f.ID})
		run.AddResult(result)
	}

	run.Properties = sarif.Properties{
		"analysisUnavailable":    report.AnalysisUnavailable,
		"suggestionsUnavailable": report.SuggestionsUnavailable,
		"formatted":              report.Formatted.OK,
		"formattingChanges":      report.Summary.Changes.Added + report.Summary.Changes.Removed,
	}
	if report.AnalysisUnavailable {
		run.Properties["analysisReason"] = report.AnalysisReason
	}
	if len(report.AnalysisSkipped) > 0 {
		run.Properties["analysisSkipped"] = report.AnalysisSkipped
	}

	log.AddRun(run)
	return log, nil
}

// severityToLevel maps a finding severity to a SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "error"
	case review.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
