package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/pyreview/internal/review"
	"github.com/dshills/pyreview/internal/toolexec"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *review.Report) error
}

// ContextWriter is implemented by writers that call out to external
// processes and honour cancellation.
type ContextWriter interface {
	WriteContext(ctx context.Context, w io.Writer, report *review.Report) error
}

// Formats lists the accepted format names.
var Formats = []string{"text", "json", "markdown", "sarif", "html", "pdf", "patch"}

// PDF engine names.
const (
	EngineFpdf        = "fpdf"
	EngineWkhtmltopdf = "wkhtmltopdf"
)

// Options configures the writers returned by GetWriter.
type Options struct {
	// Color enables ANSI colors in text output.
	Color bool
	// Interactive renders the HTML page served by the web gateway, with
	// download links under ReportsPath.
	Interactive bool
	ReportsPath string

	PDFEngine       string
	WkhtmltopdfPath string
	Runner          toolexec.Runner
	Timeout         time.Duration
	Logger          hclog.Logger
}

// RenderError reports that a report could not be rendered. There is no
// fallback format; the caller gets no deliverable.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s report: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{Color: opts.Color}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	case "html":
		return &HTMLWriter{Interactive: opts.Interactive, ReportsPath: opts.ReportsPath}, nil
	case "patch", "diff":
		return &PatchWriter{}, nil
	case "pdf":
		return newPDFWriter(opts)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Render writes report through the writer for format. Every failure is
// returned as a *RenderError.
func Render(ctx context.Context, w io.Writer, report *review.Report, format string, opts Options) error {
	writer, err := GetWriter(format, opts)
	if err != nil {
		return &RenderError{Format: format, Err: err}
	}
	if cw, ok := writer.(ContextWriter); ok {
		err = cw.WriteContext(ctx, w, report)
	} else {
		err = writer.Write(w, report)
	}
	if err == nil {
		return nil
	}
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Format: format, Err: err}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(ctx context.Context, report *review.Report, format, outPath string, opts Options) error {
	if outPath == "" {
		return Render(ctx, os.Stdout, report, format, opts)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := Render(ctx, f, report, format, opts); err != nil {
		f.Close()
		_ = os.Remove(outPath)
		return err
	}
	return f.Close()
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "sarif":
		return "application/sarif+json"
	case "markdown", "md":
		return "text/markdown; charset=utf-8"
	case "html":
		return "text/html; charset=utf-8"
	case "pdf":
		return "application/pdf"
	case "patch", "diff":
		return "text/x-diff; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
