package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/logging"
	"github.com/dshills/pyreview/internal/output"
	"github.com/dshills/pyreview/internal/review"
)

// Review flags
var (
	flagProvider      string
	flagModel         string
	flagFormat        string
	flagOut           string
	flagFailOn        string
	flagRules         string
	flagNoRedact      bool
	flagNoSuggestions bool
	flagName          string
	flagPDFEngine     string
	flagNoColor       bool
)

func addProviderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProvider, "provider", "", "AI provider (openai, anthropic, gemini, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
}

func addReviewFlags(cmd *cobra.Command) {
	addProviderFlags(cmd)
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format ("+strings.Join(output.Formats, ", ")+")")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Fail on severity threshold (none, info, warning, error)")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path (.json, .yaml, .toml)")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoSuggestions, "no-suggestions", false, "Skip the AI suggestion step")
	cmd.Flags().StringVar(&flagName, "name", "", "Display name for code read from stdin")
	cmd.Flags().StringVar(&flagPDFEngine, "pdf-engine", "", "PDF engine (fpdf, wkhtmltopdf)")
	cmd.Flags().BoolVar(&flagNoColor, "no-color", false, "Disable colored text output")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagPDFEngine != "" {
		m["pdfEngine"] = flagPDFEngine
	}
	if flagNoSuggestions {
		m["suggestions"] = "false"
	}
	if flagNoRedact {
		m["redactSecrets"] = "false"
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// readSubmission reads a file argument, or stdin for "-".
func readSubmission(arg string, stdin io.Reader, opts intake.Options) (intake.Submission, error) {
	limit := opts.MaxBytes
	if limit <= 0 {
		limit = intake.DefaultMaxBytes
	}
	if arg == "-" {
		data, err := io.ReadAll(io.LimitReader(stdin, int64(limit)+1))
		if err != nil {
			return intake.Submission{}, fmt.Errorf("reading stdin: %w", err)
		}
		if len(data) > limit {
			return intake.Submission{}, &intake.OversizeError{Limit: limit, Size: len(data), Truncated: true}
		}
		return intake.New(string(data), intake.OriginStdin, flagName, opts)
	}

	if !intake.IsPythonFile(arg) {
		return intake.Submission{}, &intake.UnsupportedFileError{Filename: filepath.Base(arg)}
	}
	f, err := os.Open(arg)
	if err != nil {
		return intake.Submission{}, fmt.Errorf("opening %s: %w", arg, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return intake.Submission{}, fmt.Errorf("reading %s: %w", arg, err)
	}
	if len(data) > limit {
		return intake.Submission{}, &intake.OversizeError{Limit: limit, Size: len(data), Truncated: true}
	}
	return intake.New(string(data), intake.OriginFile, filepath.Base(arg), opts)
}

func renderOptions(cfg config.Config, logger hclog.Logger) output.Options {
	return output.Options{
		Color:           !flagNoColor && !color.NoColor,
		PDFEngine:       cfg.Renderer.Engine,
		WkhtmltopdfPath: cfg.Renderer.WkhtmltopdfPath,
		Runner:          newRunner(logger.Named("exec")),
		Timeout:         cfg.Renderer.Timeout(),
		Logger:          logger.Named("render"),
	}
}

func runReview(ctx context.Context, arg string, cfg config.Config, stdin io.Reader) {
	if !cfg.Privacy.RedactSecrets {
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}
	logger := logging.New("pyreview", cfg.LogLevel)

	sub, err := readSubmission(arg, stdin, intake.Options{MaxBytes: cfg.Intake.MaxBytes})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if intake.IsValidationError(err) {
			exitCode = ExitUsageError
		} else {
			exitCode = ExitRuntimeError
		}
		return
	}

	engine, rec, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}

	report, err := engine.Run(ctx, sub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if err := output.WriteReport(ctx, report, cfg.Format, flagOut, renderOptions(cfg, logger)); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if report.AnalysisUnavailable {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", report.AnalysisReason)
	}
	for _, skipped := range report.AnalysisSkipped {
		fmt.Fprintf(os.Stderr, "Warning: skipped %s\n", skipped)
	}
	if suggestErr := rec.lastErr(); isCredentialError(suggestErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", suggestErr)
		exitCode = ExitAuthError
		return
	} else if suggestErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", report.SuggestionsReason)
	}

	if cfg.FailOn != "none" && cfg.FailOn != "" {
		for _, f := range report.Findings {
			if review.MeetsThreshold(f.Severity, cfg.FailOn) {
				exitCode = ExitFindings
				return
			}
		}
	}
}

var reviewCmd = &cobra.Command{
	Use:   "review <file.py|->",
	Short: "Review a Python file, or stdin with -",
	Long: "Review a Python file: run flake8 and radon, show black's changes, ask the configured AI provider " +
		"for suggestions, and write the report in the selected format.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		if _, err := output.GetWriter(cfg.Format, output.Options{PDFEngine: cfg.Renderer.Engine}); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		runReview(ctx, args[0], cfg, cmd.InOrStdin())
		return nil
	},
}

func init() {
	addReviewFlags(reviewCmd)
}
