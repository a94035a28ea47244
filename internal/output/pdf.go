package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/logging"
	"github.com/dshills/pyreview/internal/review"
	"github.com/dshills/pyreview/internal/toolexec"
)

const defaultPDFTimeout = 60 * time.Second

func newPDFWriter(opts Options) (Writer, error) {
	switch opts.PDFEngine {
	case "", EngineFpdf:
		return &FPDFWriter{}, nil
	case EngineWkhtmltopdf:
		path := opts.WkhtmltopdfPath
		if path == "" {
			path = "wkhtmltopdf"
		}
		runner := opts.Runner
		if runner == nil {
			runner = toolexec.NewExecRunner(opts.Logger)
		}
		return &WkhtmltopdfWriter{
			Path:    path,
			Runner:  runner,
			Timeout: opts.Timeout,
			Logger:  logging.OrDiscard(opts.Logger),
		}, nil
	default:
		return nil, fmt.Errorf("unknown PDF engine %q (want %s or %s)", opts.PDFEngine, EngineFpdf, EngineWkhtmltopdf)
	}
}

// FPDFWriter lays the report out directly with fpdf. It needs no external
// binaries.
type FPDFWriter struct{}

// Page geometry in millimetres.
const (
	pdfMargin     = 15.0
	pdfLineHeight = 5.0
	pdfCodeHeight = 3.8
)

func (p *FPDFWriter) Write(w io.Writer, report *review.Report) error {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(true, pdfMargin)
	doc.SetTitle("Code review: "+report.Input.Name, true)
	doc.SetCreator(review.ToolName+" "+report.Version, true)
	doc.SetSubject(report.Input.Name, true)
	doc.SetCreationDate(report.GeneratedAt)
	doc.SetModificationDate(report.GeneratedAt)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-10)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(128, 128, 128)
		doc.CellFormat(0, 5, fmt.Sprintf("%s - page %d/{nb}", tr(report.Input.Name), doc.PageNo()), "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	pageW, _ := doc.GetPageSize()
	bodyW := pageW - 2*pdfMargin

	doc.SetFont("Helvetica", "B", 16)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 9, tr("Code review: "+report.Input.Name), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(100, 100, 100)
	doc.CellFormat(0, pdfLineHeight, fmt.Sprintf("%d lines, generated %s",
		report.Input.Lines, report.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")
	doc.Ln(3)

	pdfFindings(doc, tr, report, bodyW)
	pdfFormatting(doc, tr, report, bodyW)
	pdfSuggestions(doc, tr, report)

	if err := doc.Error(); err != nil {
		return fmt.Errorf("laying out PDF: %w", err)
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

func pdfHeading(doc *fpdf.Fpdf, title string) {
	doc.Ln(2)
	doc.SetFont("Helvetica", "B", 12)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 7, title, "B", 1, "L", false, 0, "")
	doc.Ln(1)
}

func pdfNotice(doc *fpdf.Fpdf, text string) {
	doc.SetFont("Helvetica", "I", 9)
	doc.SetTextColor(150, 90, 0)
	doc.MultiCell(0, pdfLineHeight, text, "", "L", false)
}

func pdfFindings(doc *fpdf.Fpdf, tr func(string) string, report *review.Report, bodyW float64) {
	pdfHeading(doc, "Findings")
	counts := report.Summary.Counts
	for _, skipped := range report.AnalysisSkipped {
		pdfNotice(doc, tr("Skipped: "+skipped))
	}
	switch {
	case report.AnalysisUnavailable:
		pdfNotice(doc, tr("Static analysis unavailable: "+report.AnalysisReason))
		return
	case len(report.Findings) == 0:
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, pdfLineHeight, "No issues found.", "", 1, "L", false, 0, "")
		return
	}

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, pdfLineHeight, fmt.Sprintf("%d error(s), %d warning(s), %d info",
		counts.Error, counts.Warning, counts.Info), "", 1, "L", false, 0, "")
	doc.Ln(1)

	widths := []float64{14, 20, 18, bodyW - 52}
	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(230, 230, 230)
	for i, h := range []string{"Line", "Severity", "Rule", "Message"} {
		doc.CellFormat(widths[i], 6, h, "", 0, "L", true, 0, "")
	}
	doc.Ln(-1)

	_, pageH := doc.GetPageSize()
	doc.SetFont("Helvetica", "", 9)
	for _, f := range report.Findings {
		msg := doc.SplitText(tr(f.Message), widths[3])
		rowH := float64(max(len(msg), 1)) * pdfLineHeight
		if doc.GetY()+rowH > pageH-pdfMargin {
			doc.AddPage()
		}
		doc.SetTextColor(severityRGB(f.Severity))
		doc.CellFormat(widths[0], pdfLineHeight, fmt.Sprintf("%d:%d", f.Line, f.Column), "", 0, "L", false, 0, "")
		doc.CellFormat(widths[1], pdfLineHeight, strings.ToUpper(string(f.Severity)), "", 0, "L", false, 0, "")
		doc.SetTextColor(0, 0, 0)
		doc.CellFormat(widths[2], pdfLineHeight, tr(f.Rule), "", 0, "L", false, 0, "")
		doc.MultiCell(widths[3], pdfLineHeight, strings.Join(msg, "\n"), "", "L", false)
	}
}

func pdfFormatting(doc *fpdf.Fpdf, tr func(string) string, report *review.Report, bodyW float64) {
	pdfHeading(doc, "Formatting")
	changes := report.Summary.Changes
	switch {
	case !report.Formatted.OK:
		pdfNotice(doc, tr("black could not format this file: "+report.Formatted.Error))
		return
	case !changes.Changed():
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, pdfLineHeight, "Already formatted.", "", 1, "L", false, 0, "")
		return
	}

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, pdfLineHeight, fmt.Sprintf("black would change %d block(s): +%d -%d",
		changes.Blocks, changes.Added, changes.Removed), "", 1, "L", false, 0, "")
	doc.Ln(1)

	doc.SetFont("Courier", "", 8)
	for _, seg := range report.Diff {
		prefix := " "
		fill := false
		switch seg.Kind {
		case diff.Removed:
			prefix = "-"
			fill = true
			doc.SetFillColor(255, 230, 230)
		case diff.Added:
			prefix = "+"
			fill = true
			doc.SetFillColor(225, 250, 225)
		}
		for _, line := range diff.Lines(seg.Text) {
			text := prefix + strings.TrimRight(tr(line), "\r\n")
			doc.CellFormat(bodyW, pdfCodeHeight, clipText(doc, text, bodyW-1), "", 1, "L", fill, 0, "")
		}
	}
}

func pdfSuggestions(doc *fpdf.Fpdf, tr func(string) string, report *review.Report) {
	pdfHeading(doc, "Suggestions")
	switch {
	case report.SuggestionsUnavailable:
		pdfNotice(doc, tr("Suggestions unavailable: "+report.SuggestionsReason))
		return
	case len(report.Suggestions) == 0:
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, pdfLineHeight, "No suggestions.", "", 1, "L", false, 0, "")
		return
	}
	doc.SetTextColor(0, 0, 0)
	for i, s := range report.Suggestions {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(8, pdfLineHeight, fmt.Sprintf("%d.", i+1), "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		text := s.Text
		if tag := suggestionTag(s); tag != "" {
			text += " (" + tag + ")"
		}
		doc.MultiCell(0, pdfLineHeight, tr(text), "", "L", false)
		doc.Ln(1)
	}
}

// clipText shortens text until it fits in width.
func clipText(doc *fpdf.Fpdf, text string, width float64) string {
	if doc.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 && doc.GetStringWidth(text+"...") > width {
		text = text[:len(text)-1]
	}
	return text + "..."
}

func severityRGB(s review.Severity) (int, int, int) {
	switch s {
	case review.SeverityError:
		return 176, 0, 32
	case review.SeverityWarning:
		return 179, 107, 0
	default:
		return 21, 101, 192
	}
}

// WkhtmltopdfWriter prints the HTML export through the wkhtmltopdf binary.
type WkhtmltopdfWriter struct {
	Path    string
	Runner  toolexec.Runner
	Timeout time.Duration
	Logger  hclog.Logger
}

func (p *WkhtmltopdfWriter) Write(w io.Writer, report *review.Report) error {
	return p.WriteContext(context.Background(), w, report)
}

func (p *WkhtmltopdfWriter) WriteContext(ctx context.Context, w io.Writer, report *review.Report) error {
	var page bytes.Buffer
	if err := (&HTMLWriter{}).Write(&page, report); err != nil {
		return &RenderError{Format: "pdf", Err: err}
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultPDFTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := p.Runner.Run(ctx, toolexec.Command{
		Name:  p.Path,
		Args:  []string{"--quiet", "--encoding", "utf-8", "-", "-"},
		Stdin: page.Bytes(),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("wkhtmltopdf timed out after %s: %w", timeout, err)
		}
		return &RenderError{Format: "pdf", Err: err}
	}
	if res.ExitCode != 0 {
		return &RenderError{Format: "pdf", Err: fmt.Errorf("wkhtmltopdf exited %d: %s",
			res.ExitCode, strings.TrimSpace(string(res.Stderr)))}
	}
	if !bytes.HasPrefix(res.Stdout, []byte("%PDF")) {
		return &RenderError{Format: "pdf", Err: errors.New("wkhtmltopdf produced no PDF output")}
	}
	p.Logger.Debug("rendered PDF", "bytes", len(res.Stdout), "elapsed", res.Duration)
	if _, err := w.Write(res.Stdout); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}
