package output

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dshills/pyreview/internal/toolexec"
)

type fakeRunner struct {
	got      toolexec.Command
	stdout   []byte
	stderr   string
	exitCode int
	err      error
	block    bool
}

func (f *fakeRunner) Run(ctx context.Context, cmd toolexec.Command) (toolexec.Result, error) {
	f.got = cmd
	if f.block {
		<-ctx.Done()
		return toolexec.Result{}, ctx.Err()
	}
	return toolexec.Result{Stdout: f.stdout, Stderr: []byte(f.stderr), ExitCode: f.exitCode}, f.err
}

func TestFPDFWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&FPDFWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %q", buf.Bytes()[:min(buf.Len(), 16)])
	}
	if !bytes.Contains(buf.Bytes(), []byte("%%EOF")) {
		t.Error("PDF trailer missing")
	}
}

func TestFPDFWriter_Degraded(t *testing.T) {
	var buf bytes.Buffer
	if err := (&FPDFWriter{}).Write(&buf, degradedReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

func TestFPDFWriter_ManyFindings(t *testing.T) {
	r := sampleReport()
	for i := 0; i < 200; i++ {
		f := r.Findings[0]
		f.Line = i + 1
		f.Message = strings.Repeat("very long message ", 10)
		r.Findings = append(r.Findings, f)
	}
	var buf bytes.Buffer
	if err := (&FPDFWriter{}).Write(&buf, r); err != nil {
		t.Fatalf("Write error: %v", err)
	}
}

func TestWkhtmltopdfWriter(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("%PDF-1.4 fake")}
	w, err := GetWriter("pdf", Options{PDFEngine: EngineWkhtmltopdf, WkhtmltopdfPath: "/opt/wk", Runner: runner})
	if err != nil {
		t.Fatalf("GetWriter error: %v", err)
	}

	var buf bytes.Buffer
	if err := Render(context.Background(), &buf, sampleReport(), "pdf", Options{PDFEngine: EngineWkhtmltopdf, WkhtmltopdfPath: "/opt/wk", Runner: runner}); err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if _, ok := w.(*WkhtmltopdfWriter); !ok {
		t.Errorf("writer = %T, want *WkhtmltopdfWriter", w)
	}
	if buf.String() != "%PDF-1.4 fake" {
		t.Errorf("output = %q", buf.String())
	}
	if runner.got.Name != "/opt/wk" {
		t.Errorf("command = %q, want /opt/wk", runner.got.Name)
	}
	if !strings.Contains(string(runner.got.Stdin), "<title>Code review: example.py</title>") {
		t.Error("wkhtmltopdf should receive the HTML export on stdin")
	}
	if strings.Contains(string(runner.got.Stdin), "/pdf\"") {
		t.Error("export HTML should not carry download links")
	}
}

func TestWkhtmltopdfWriter_Failures(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		want   string
	}{
		{"missing binary", &fakeRunner{err: &toolexec.NotFoundError{Name: "wkhtmltopdf"}}, "not found"},
		{"non-zero exit", &fakeRunner{exitCode: 1, stderr: "QXcbConnection: could not connect"}, "exited 1"},
		{"no output", &fakeRunner{stdout: []byte("")}, "no PDF output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &WkhtmltopdfWriter{Path: "wkhtmltopdf", Runner: tt.runner, Logger: nil}
			var buf bytes.Buffer
			err := w.WriteContext(context.Background(), &buf, sampleReport())
			var re *RenderError
			if !errors.As(err, &re) {
				t.Fatalf("expected RenderError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
			if buf.Len() != 0 {
				t.Error("nothing should be written on failure")
			}
		})
	}
}

func TestWkhtmltopdfWriter_Timeout(t *testing.T) {
	w, err := newPDFWriter(Options{
		PDFEngine: EngineWkhtmltopdf,
		Runner:    &fakeRunner{block: true},
		Timeout:   20 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = w.(*WkhtmltopdfWriter).WriteContext(context.Background(), &bytes.Buffer{}, sampleReport())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error should mention the timeout: %v", err)
	}
}
