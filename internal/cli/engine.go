package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/pyreview/internal/analysis"
	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/format"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/providers"
	"github.com/dshills/pyreview/internal/review"
	"github.com/dshills/pyreview/internal/suggest"
	"github.com/dshills/pyreview/internal/toolexec"
)

// newRunner builds the subprocess runner for the Python tools. Tests replace
// it with a fake.
var newRunner = func(logger hclog.Logger) toolexec.Runner {
	return toolexec.NewExecRunner(logger)
}

// recordingSuggester keeps the last suggestion error so the caller can tell
// an authentication failure apart from other degradations.
type recordingSuggester struct {
	next review.Suggester

	mu  sync.Mutex
	err error
}

func (r *recordingSuggester) Suggest(ctx context.Context, sub intake.Submission, findings []review.Finding) ([]review.Suggestion, error) {
	out, err := r.next.Suggest(ctx, sub, findings)
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	return out, err
}

func (r *recordingSuggester) lastErr() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// setupError is a provider that could not be constructed, e.g. because its
// API key is missing.
type setupError struct {
	err error
}

func (e *setupError) Error() string { return e.err.Error() }

func (e *setupError) Unwrap() error { return e.err }

// failedSuggester stands in for a provider that could not be constructed.
type failedSuggester struct {
	err *setupError
}

func (f failedSuggester) Suggest(context.Context, intake.Submission, []review.Finding) ([]review.Suggestion, error) {
	return nil, fmt.Errorf("%w: %w", suggest.ErrUnavailable, f.err)
}

// buildEngine wires the analyzer, formatter and suggestion client from cfg.
// The returned recorder is nil when suggestions are disabled.
func buildEngine(cfg config.Config, logger hclog.Logger) (*review.Engine, *recordingSuggester, error) {
	rules, err := review.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading rules: %w", err)
	}

	runner := newRunner(logger.Named("exec"))
	engine := &review.Engine{
		Analyzer:  analysis.New(cfg.Analysis, runner, logger),
		Formatter: format.New(cfg.Formatter, runner, logger),
		Rules:     rules,
		Logger:    logger.Named("engine"),
	}
	if !cfg.Suggestions.Enabled {
		return engine, nil, nil
	}

	var next review.Suggester
	client, err := suggest.FromConfig(cfg, rules, logger.Named("suggest"))
	if err != nil {
		logger.Warn("suggestion provider unavailable", "provider", cfg.Suggestions.Provider, "error", err)
		next = failedSuggester{err: &setupError{err: err}}
	} else {
		next = client
	}
	rec := &recordingSuggester{next: next}
	engine.Suggester = rec
	return engine, rec, nil
}

// isCredentialError reports whether a suggestion failure means the provider
// rejected or lacks credentials.
func isCredentialError(err error) bool {
	if err == nil {
		return false
	}
	var setup *setupError
	return errors.As(err, &setup) || providers.IsAuthError(err)
}
