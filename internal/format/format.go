// Package format runs the black formatter over a submission.
package format

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/logging"
	"github.com/dshills/pyreview/internal/toolexec"
)

// Result is the formatter's output. When OK is false Text is the original
// submission text and Error says why formatting failed.
type Result struct {
	Text  string `json:"text"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Changed reports whether formatting altered the text.
func (r Result) Changed(original string) bool {
	return r.OK && r.Text != original
}

// Formatter wraps black.
type Formatter struct {
	runner     toolexec.Runner
	path       string
	lineLength int
	timeout    time.Duration
	logger     hclog.Logger
}

// New returns a Formatter. A nil runner uses os/exec.
func New(cfg config.FormatterConfig, runner toolexec.Runner, logger hclog.Logger) *Formatter {
	logger = logging.OrDiscard(logger).Named("format")
	if runner == nil {
		runner = toolexec.NewExecRunner(logger)
	}
	path := cfg.BlackPath
	if path == "" {
		path = "black"
	}
	return &Formatter{
		runner:     runner,
		path:       path,
		lineLength: cfg.LineLength,
		timeout:    cfg.Timeout(),
		logger:     logger,
	}
}

// Format pipes the submission through black. It never fails; failures are
// reported through Result.
func (f *Formatter) Format(ctx context.Context, sub intake.Submission) Result {
	original := sub.Text()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	args := []string{"--quiet"}
	if f.lineLength > 0 {
		args = append(args, "--line-length", strconv.Itoa(f.lineLength))
	}
	if strings.HasSuffix(sub.Filename(), ".pyi") {
		args = append(args, "--pyi")
	}
	args = append(args, "-")

	res, err := f.runner.Run(ctx, toolexec.Command{
		Name:  f.path,
		Args:  args,
		Stdin: []byte(original),
	})
	if err != nil {
		f.logger.Warn("formatter unavailable", "error", err)
		return failed(original, err.Error())
	}
	if res.ExitCode != 0 {
		reason := blackReason(res.Stderr, res.ExitCode)
		f.logger.Debug("formatter rejected input", "code", res.ExitCode, "reason", reason)
		return failed(original, reason)
	}
	return Result{Text: normalize(string(res.Stdout)), OK: true}
}

func failed(original, reason string) Result {
	return Result{Text: original, OK: false, Error: reason}
}

// blackReason extracts a one-line message from black's stderr.
// "error: cannot format -: Cannot parse: 1:4: x = (" becomes
// "Cannot parse: 1:4: x = (".
func blackReason(stderr []byte, code int) string {
	for _, line := range strings.Split(string(stderr), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Oh no!") || strings.Contains(line, "file would fail") {
			continue
		}
		line = strings.TrimPrefix(line, "error: ")
		if i := strings.Index(line, "cannot format -: "); i >= 0 {
			line = line[i+len("cannot format -: "):]
		}
		return line
	}
	return fmt.Sprintf("black exited with status %d", code)
}

func normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
