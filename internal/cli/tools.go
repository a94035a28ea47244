package cli

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/logging"
	"github.com/dshills/pyreview/internal/output"
	"github.com/dshills/pyreview/internal/toolexec"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "External tool checks",
}

type toolCheck struct {
	name     string
	path     string
	args     []string
	required bool
}

func toolChecks(cfg config.Config) []toolCheck {
	return []toolCheck{
		{name: "flake8", path: cfg.Analysis.Flake8Path, args: []string{"--version"}, required: true},
		{name: "radon", path: cfg.Analysis.RadonPath, args: []string{"--version"}, required: true},
		{name: "black", path: cfg.Formatter.BlackPath, args: []string{"--version"}, required: true},
		{
			name:     "wkhtmltopdf",
			path:     cfg.Renderer.WkhtmltopdfPath,
			args:     []string{"--version"},
			required: cfg.Renderer.Engine == output.EngineWkhtmltopdf,
		},
	}
}

var toolsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that flake8, radon, black and the PDF engine are installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		runner := newRunner(logging.New("pyreview", cfg.LogLevel).Named("exec"))
		out := cmd.OutOrStdout()

		failed := false
		for _, c := range toolChecks(cfg) {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			res, err := runner.Run(ctx, toolexec.Command{Name: c.path, Args: c.args})
			cancel()

			status := "OK"
			detail := firstOutputLine(res)
			switch {
			case err != nil:
				status, detail = "MISSING", err.Error()
			case res.ExitCode != 0:
				status, detail = "BROKEN", fmt.Sprintf("exit status %d", res.ExitCode)
			}
			if status != "OK" {
				if c.required {
					failed = true
				} else {
					status = "SKIP"
				}
			}
			fmt.Fprintf(out, "%-8s %-12s %s\n", status, c.name, detail)
		}
		if failed {
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func firstOutputLine(res toolexec.Result) string {
	b := res.Stdout
	if len(bytes.TrimSpace(b)) == 0 {
		b = res.Stderr
	}
	b = bytes.TrimSpace(b)
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func init() {
	toolsCmd.AddCommand(toolsDoctorCmd)
}
