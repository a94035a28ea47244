//go:build integration

package review_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dshills/pyreview/internal/analysis"
	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/format"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/output"
	"github.com/dshills/pyreview/internal/review"
	"github.com/dshills/pyreview/internal/suggest"
	"github.com/dshills/pyreview/internal/toolexec"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type engineProviderSpec struct {
	providerName string
	model        string
	envVar       string
}

var engineProviderSpecs = []engineProviderSpec{
	{"anthropic", "claude-haiku-4-5", "ANTHROPIC_API_KEY"},
	{"openai", "gpt-4.1-mini", "OPENAI_API_KEY"},
	{"gemini", "gemini-2.5-flash", "GEMINI_API_KEY"},
	{"ollama", "llama3.2", ""},
}

func skipIfEnvMissing(t *testing.T, envVar string) {
	t.Helper()
	if envVar == "" {
		return
	}
	if os.Getenv(envVar) == "" {
		t.Skipf("skipping: %s not set", envVar)
	}
}

func skipIfOllamaUnavailable(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost:11434/api/tags", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Skipf("skipping: ollama not reachable: %v", err)
	}
	resp.Body.Close()
}

func skipIfToolsMissing(t *testing.T) {
	t.Helper()
	for _, name := range []string{"flake8", "radon", "black"} {
		if _, err := toolexec.LookPath(name); err != nil {
			t.Skipf("skipping: %v", err)
		}
	}
}

func integrationContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	t.Cleanup(cancel)
	return ctx
}

func skipProvider(t *testing.T, spec engineProviderSpec) {
	t.Helper()
	skipIfEnvMissing(t, spec.envVar)
	if spec.providerName == "ollama" {
		skipIfOllamaUnavailable(t)
	}
}

// testSource has an unused import, style problems black will fix, and an
// obvious command injection.
const testSource = `import os, sys
import subprocess
def run_user_command(user_input):
  out=subprocess.check_output(user_input,shell=True)
  return out.decode()
`

func newSubmission(t *testing.T) intake.Submission {
	t.Helper()
	sub, err := intake.New(testSource, intake.OriginFile, "run.py", intake.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return sub
}

func toolEngine(cfg config.Config) *review.Engine {
	runner := toolexec.NewExecRunner(nil)
	return &review.Engine{
		Analyzer:  analysis.New(cfg.Analysis, runner, nil),
		Formatter: format.New(cfg.Formatter, runner, nil),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestIntegration_ToolsOnly(t *testing.T) {
	skipIfToolsMissing(t)
	cfg := config.Default()

	report, err := toolEngine(cfg).Run(integrationContext(t), newSubmission(t))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.AnalysisUnavailable {
		t.Fatalf("analysis unavailable: %s", report.AnalysisReason)
	}
	if !report.Formatted.OK {
		t.Fatalf("black failed: %s", report.Formatted.Error)
	}

	rules := map[string]bool{}
	for _, f := range report.Findings {
		rules[f.Rule] = true
	}
	for _, want := range []string{"F401", "E401"} {
		if !rules[want] {
			t.Errorf("expected %s among findings, got %v", want, rules)
		}
	}
	if !report.Summary.Changes.Changed() {
		t.Error("black should have reformatted the source")
	}
	if !strings.Contains(report.Formatted.Text, "out = subprocess.check_output(user_input, shell=True)") {
		t.Errorf("unexpected black output:\n%s", report.Formatted.Text)
	}
}

func TestIntegration_AllFormats(t *testing.T) {
	skipIfToolsMissing(t)
	report, err := toolEngine(config.Default()).Run(integrationContext(t), newSubmission(t))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	for _, f := range output.Formats {
		t.Run(f, func(t *testing.T) {
			var buf bytes.Buffer
			if err := output.Render(context.Background(), &buf, report, f, output.Options{}); err != nil {
				t.Fatalf("Render(%s) error: %v", f, err)
			}
			if buf.Len() == 0 {
				t.Errorf("%s output is empty", f)
			}
		})
	}

	var buf bytes.Buffer
	if err := output.Render(context.Background(), &buf, report, "json", output.Options{}); err != nil {
		t.Fatal(err)
	}
	var decoded review.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Findings) != len(report.Findings) {
		t.Errorf("JSON findings = %d, want %d", len(decoded.Findings), len(report.Findings))
	}
}

func TestIntegration_Wkhtmltopdf(t *testing.T) {
	skipIfToolsMissing(t)
	if _, err := toolexec.LookPath("wkhtmltopdf"); err != nil {
		t.Skipf("skipping: %v", err)
	}
	report, err := toolEngine(config.Default()).Run(integrationContext(t), newSubmission(t))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	err = output.Render(integrationContext(t), &buf, report, "pdf", output.Options{PDFEngine: output.EngineWkhtmltopdf})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}

func TestIntegration_Suggestions(t *testing.T) {
	skipIfToolsMissing(t)
	for _, spec := range engineProviderSpecs {
		t.Run(spec.providerName, func(t *testing.T) {
			skipProvider(t, spec)

			cfg := config.Default()
			cfg.Suggestions.Provider = spec.providerName
			cfg.Suggestions.Model = spec.model
			cfg.Suggestions.TimeoutSeconds = 120
			cfg.Cache.Enabled = false

			client, err := suggest.FromConfig(cfg, nil, nil)
			if err != nil {
				t.Fatalf("FromConfig error: %v", err)
			}
			engine := toolEngine(cfg)
			engine.Suggester = client

			report, err := engine.Run(integrationContext(t), newSubmission(t))
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if report.SuggestionsUnavailable {
				t.Fatalf("suggestions unavailable: %s", report.SuggestionsReason)
			}
			if len(report.Suggestions) == 0 {
				t.Fatal("expected at least one suggestion")
			}
			var mentionsShell bool
			for _, s := range report.Suggestions {
				text := strings.ToLower(s.Text)
				if strings.Contains(text, "shell") || strings.Contains(text, "injection") {
					mentionsShell = true
				}
			}
			if !mentionsShell {
				t.Logf("no suggestion mentioned the shell=True injection: %+v", report.Suggestions)
			}
		})
	}
}
