package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/review"
	"github.com/dshills/pyreview/internal/toolexec"
)

type toolOutput struct {
	res toolexec.Result
	err error
}

// fakeRunner answers by executable name.
type fakeRunner struct {
	outputs map[string]toolOutput
	calls   []toolexec.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd toolexec.Command) (toolexec.Result, error) {
	f.calls = append(f.calls, cmd)
	out, ok := f.outputs[cmd.Name]
	if !ok {
		return toolexec.Result{}, &toolexec.NotFoundError{Name: cmd.Name}
	}
	return out.res, out.err
}

const sample = "import os\nx=1;y=2\ndef f(a):\n    print(a)  # TODO tidy\n"

func sampleRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]toolOutput{
		"flake8": {res: toolexec.Result{ExitCode: 1, Stdout: []byte(
			"snippet.py:1:1: F401 'os' imported but unused\n" +
				"snippet.py:2:2: E225 missing whitespace around operator\n" +
				"snippet.py:2:4: E702 multiple statements on one line (semicolon)\n" +
				"snippet.py:9:80: W291 trailing whitespace\n")}},
		"radon": {res: toolexec.Result{Stdout: []byte(
			`{"/tmp/pyreview-1.py": [{"type": "function", "name": "f", "lineno": 3, "col_offset": 0, "complexity": 7, "rank": "B", "endline": 4}]}`)}},
	}}
}

func newSubmission(t *testing.T, text string) intake.Submission {
	t.Helper()
	sub, err := intake.New(text, intake.OriginPaste, "", intake.Options{})
	if err != nil {
		t.Fatalf("intake.New: %v", err)
	}
	return sub
}

func TestAnalyze_MergesAndOrders(t *testing.T) {
	a := New(config.Default().Analysis, sampleRunner(), nil)
	findings, err := a.Analyze(context.Background(), newSubmission(t, sample))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}

	want := []struct {
		rule string
		line int
		col  int
	}{
		{"F401", 1, 1},
		{"PY005", 1, 1},
		{"E225", 2, 2},
		{"E702", 2, 4},
		{"PY003", 2, 4},
		{"C901", 3, 1},
		{"PY002", 4, 5},
		{"PY001", 4, 17},
		{"W291", 4, 26},
	}
	if len(findings) != len(want) {
		for _, f := range findings {
			t.Logf("%s %d:%d %s", f.Rule, f.Line, f.Column, f.Message)
		}
		t.Fatalf("got %d findings, want %d", len(findings), len(want))
	}
	for i, w := range want {
		f := findings[i]
		if f.Rule != w.rule || f.Line != w.line || f.Column != w.col {
			t.Errorf("findings[%d] = %s %d:%d, want %s %d:%d", i, f.Rule, f.Line, f.Column, w.rule, w.line, w.col)
		}
		if f.ID == "" {
			t.Errorf("findings[%d] has no ID", i)
		}
	}

	if findings[0].Source != review.SourceFlake8 || findings[0].Severity != review.SeverityWarning {
		t.Errorf("F401 = %+v", findings[0])
	}
	if findings[5].Source != review.SourceRadon || findings[5].Severity != review.SeverityInfo {
		t.Errorf("C901 = %+v", findings[5])
	}
}

func TestAnalyze_Flake8Arguments(t *testing.T) {
	r := sampleRunner()
	a := New(config.Default().Analysis, r, nil)
	if _, err := a.Analyze(context.Background(), newSubmission(t, sample)); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 2 {
		t.Fatalf("runner called %d times, want 2", len(r.calls))
	}
	got := strings.Join(r.calls[0].Args, " ")
	want := "--format=default --max-line-length=99 --ignore=E501 --stdin-display-name=snippet.py -"
	if got != want {
		t.Errorf("flake8 args = %q, want %q", got, want)
	}
	if string(r.calls[0].Stdin) != sample {
		t.Errorf("flake8 stdin = %q", r.calls[0].Stdin)
	}
	if r.calls[1].Args[0] != "cc" || r.calls[1].Args[1] != "--json" {
		t.Errorf("radon args = %v", r.calls[1].Args)
	}
}

func TestAnalyze_SyntaxErrorIsUnavailable(t *testing.T) {
	r := &fakeRunner{outputs: map[string]toolOutput{
		"flake8": {res: toolexec.Result{ExitCode: 1, Stdout: []byte(
			"snippet.py:1:7: E999 SyntaxError: '(' was never closed\n")}},
		"radon": {res: toolexec.Result{Stdout: []byte(`{}`)}},
	}}
	a := New(config.Default().Analysis, r, nil)
	findings, err := a.Analyze(context.Background(), newSubmission(t, "print((1)\n"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if findings == nil || len(findings) != 0 {
		t.Errorf("findings = %#v, want empty non-nil slice", findings)
	}
	if len(r.calls) != 1 {
		t.Errorf("radon should not run after flake8 fails; calls = %d", len(r.calls))
	}
}

func TestAnalyze_RadonParseError(t *testing.T) {
	r := sampleRunner()
	r.outputs["radon"] = toolOutput{res: toolexec.Result{Stdout: []byte(
		`{"/tmp/x.py": {"error": "invalid syntax (<unknown>, line 1)"}}`)}}
	findings, err := New(config.Default().Analysis, r, nil).Analyze(context.Background(), newSubmission(t, sample))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if !strings.Contains(err.Error(), "invalid syntax") {
		t.Errorf("err = %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %v", findings)
	}
}

func TestAnalyze_ToolFailures(t *testing.T) {
	tests := []struct {
		name   string
		flake8 toolOutput
	}{
		{"missing", toolOutput{err: &toolexec.NotFoundError{Name: "flake8"}}},
		{"crash", toolOutput{res: toolexec.Result{ExitCode: 2, Stderr: []byte("Traceback (most recent call last):\n")}}},
		{"runner error", toolOutput{err: context.DeadlineExceeded}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRunner()
			r.outputs["flake8"] = tt.flake8
			findings, err := New(config.Default().Analysis, r, nil).Analyze(context.Background(), newSubmission(t, sample))

			var partial *review.PartialAnalysisError
			if !errors.As(err, &partial) {
				t.Fatalf("err = %v, want *review.PartialAnalysisError", err)
			}
			if errors.Is(err, ErrUnavailable) {
				t.Error("one failed tool should not make the whole analysis unavailable")
			}
			if len(partial.Failures) != 1 || !strings.HasPrefix(partial.Failures[0], "flake8") {
				t.Errorf("failures = %q", partial.Failures)
			}

			rules := map[string]bool{}
			for _, f := range findings {
				rules[f.Rule] = true
				if f.Source == review.SourceFlake8 {
					t.Errorf("unexpected flake8 finding %+v", f)
				}
			}
			for _, want := range []string{"C901", "PY001", "PY003"} {
				if !rules[want] {
					t.Errorf("missing %s in %v", want, rules)
				}
			}
		})
	}
}

func TestAnalyze_RadonMissingKeepsFlake8(t *testing.T) {
	r := sampleRunner()
	delete(r.outputs, "radon")
	findings, err := New(config.Default().Analysis, r, nil).Analyze(context.Background(), newSubmission(t, sample))

	var partial *review.PartialAnalysisError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want *review.PartialAnalysisError", err)
	}
	if !strings.Contains(partial.Failures[0], "radon") {
		t.Errorf("failures = %q", partial.Failures)
	}
	var flake8 int
	for _, f := range findings {
		if f.Source == review.SourceFlake8 {
			flake8++
		}
	}
	if flake8 == 0 {
		t.Errorf("flake8 findings dropped: %+v", findings)
	}
}

func TestAnalyze_AllToolsMissing(t *testing.T) {
	r := &fakeRunner{outputs: map[string]toolOutput{}}
	findings, err := New(config.Default().Analysis, r, nil).Analyze(context.Background(), newSubmission(t, sample))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	for _, name := range []string{"flake8", "radon"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("err = %v, want mention of %s", err, name)
		}
	}
	if findings == nil || len(findings) != 0 {
		t.Errorf("findings = %#v, want empty non-nil slice", findings)
	}
}

func TestAnalyze_CleanSource(t *testing.T) {
	r := &fakeRunner{outputs: map[string]toolOutput{
		"flake8": {res: toolexec.Result{}},
		"radon":  {res: toolexec.Result{Stdout: []byte(`{"/tmp/x.py": []}`)}},
	}}
	src := "def main():\n    return 0\n\n\nif __name__ == \"__main__\":\n    main()\n"
	findings, err := New(config.Default().Analysis, r, nil).Analyze(context.Background(), newSubmission(t, src))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %+v, want none", findings)
	}
}

func TestFlake8Severity(t *testing.T) {
	tests := []struct {
		code string
		want review.Severity
	}{
		{"E999", review.SeverityError},
		{"E902", review.SeverityError},
		{"F821", review.SeverityError},
		{"F632", review.SeverityError},
		{"F706", review.SeverityError},
		{"F401", review.SeverityWarning},
		{"E225", review.SeverityWarning},
		{"W291", review.SeverityInfo},
		{"C901", review.SeverityInfo},
		{"N802", review.SeverityInfo},
		{"D100", review.SeverityInfo},
	}
	for _, tt := range tests {
		if got := flake8Severity(tt.code); got != tt.want {
			t.Errorf("flake8Severity(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestParseFlake8_IgnoresNoise(t *testing.T) {
	out := "some warning from a plugin\nsnippet.py:3:1: E302 expected 2 blank lines, found 1\n\n"
	findings, err := parseFlake8([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Rule != "E302" || findings[0].Line != 3 {
		t.Errorf("findings = %+v", findings)
	}
}

func TestParseRadon_Thresholds(t *testing.T) {
	out := `{"x.py": [
		{"type": "function", "name": "simple", "lineno": 1, "col_offset": 0, "complexity": 5},
		{"type": "function", "name": "moderate", "lineno": 5, "col_offset": 0, "complexity": 6},
		{"type": "method", "name": "run", "classname": "Job", "lineno": 20, "col_offset": 4, "complexity": 11},
		{"type": "class", "name": "Job", "lineno": 18, "col_offset": 0, "complexity": 10}
	]}`
	findings, err := parseRadon([]byte(out), 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 3 {
		t.Fatalf("got %d findings, want 3: %+v", len(findings), findings)
	}
	if findings[0].Severity != review.SeverityInfo || !strings.Contains(findings[0].Message, "`moderate` complexity is moderate (6)") {
		t.Errorf("findings[0] = %+v", findings[0])
	}
	if findings[1].Severity != review.SeverityWarning || !strings.Contains(findings[1].Message, "`Job.run` has high complexity (11)") {
		t.Errorf("findings[1] = %+v", findings[1])
	}
	if findings[1].Column != 5 {
		t.Errorf("method column = %d, want 5", findings[1].Column)
	}
	if !strings.HasPrefix(findings[2].Message, "Class `Job`") {
		t.Errorf("findings[2] = %+v", findings[2])
	}
}

func TestParseRadon_Garbage(t *testing.T) {
	_, err := parseRadon([]byte("not json"), 5, 10)
	if err == nil {
		t.Fatal("expected an error")
	}
	if isSourceError(err) {
		t.Errorf("unreadable output is a tool failure, not a source error: %v", err)
	}
}

func TestClamp(t *testing.T) {
	text := "ab\nµµµ\n"
	findings := []review.Finding{
		{Line: 0, Column: 9},
		{Line: 7, Column: 1},
		{Line: 2, Column: 10},
		{Line: 1, Column: 0},
		{Line: 2, Column: 4},
	}
	got := Clamp(findings, text)
	want := [][2]int{{1, 1}, {2, 1}, {2, 4}, {1, 1}, {2, 4}}
	for i, w := range want {
		if got[i].Line != w[0] || got[i].Column != w[1] {
			t.Errorf("Clamp[%d] = %d:%d, want %d:%d", i, got[i].Line, got[i].Column, w[0], w[1])
		}
	}
}
