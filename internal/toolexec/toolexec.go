// Package toolexec runs the external Python tools (flake8, radon, black,
// wkhtmltopdf) behind a small interface so adapters can be tested with fakes.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/pyreview/internal/logging"
)

// Command describes one subprocess invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin []byte
	Dir   string
}

// Result is the captured outcome of a command that ran to completion.
// A non-zero ExitCode is not an error: linters exit 1 when they find issues.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// NotFoundError is returned when the executable is not on PATH.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found on the system", e.Name)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// waitDelay bounds how long Run waits for output pipes after the process is
// killed. A grandchild that inherited stdout would otherwise hold Run open
// past the context deadline.
const waitDelay = 2 * time.Second

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger hclog.Logger
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(logger hclog.Logger) *ExecRunner {
	return &ExecRunner{logger: logging.OrDiscard(logger)}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running tool", "cmd", cmd.Args)
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return res, &NotFoundError{Name: c.Name}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s: %w", c.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Debug("tool exited", "cmd", c.Name, "code", res.ExitCode, "elapsed", res.Duration)
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", c.Name, err)
	}
	r.logger.Debug("tool exited", "cmd", c.Name, "code", 0, "elapsed", res.Duration)
	return res, nil
}

// LookPath reports the resolved path of an executable, or an error when it
// is missing.
func LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", &NotFoundError{Name: name}
	}
	return p, nil
}
