package suggest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/pyreview/internal/cache"
	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/intake"
	"github.com/dshills/pyreview/internal/logging"
	"github.com/dshills/pyreview/internal/providers"
	"github.com/dshills/pyreview/internal/redact"
	"github.com/dshills/pyreview/internal/review"
)

// ErrUnavailable marks a suggestion call that produced nothing usable.
var ErrUnavailable = errors.New("suggestions unavailable")

// DefaultMaxSuggestions caps the suggestions requested and kept per review.
const DefaultMaxSuggestions = 10

// Options controls a Client.
type Options struct {
	Provider       string
	Model          string
	Timeout        time.Duration
	MaxTokens      int
	MaxSuggestions int
	RedactSecrets  bool
	RedactPaths    []string
	Rules          *review.Rules
}

// Client implements review.Suggester on top of a providers.Reviewer.
type Client struct {
	reviewer providers.Reviewer
	cache    *cache.Cache
	opts     Options
	logger   hclog.Logger
}

// New returns a Client. A nil cache disables caching.
func New(reviewer providers.Reviewer, c *cache.Cache, opts Options, logger hclog.Logger) *Client {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	return &Client{reviewer: reviewer, cache: c, opts: opts, logger: logging.OrDiscard(logger)}
}

// FromConfig builds a Client for the configured provider, model and cache.
func FromConfig(cfg config.Config, rules *review.Rules, logger hclog.Logger) (*Client, error) {
	logger = logging.OrDiscard(logger)
	s := cfg.Suggestions
	reviewer, err := providers.New(s.Provider, s.Model, providers.Options{
		BaseURL: s.BaseURL,
		Timeout: s.Timeout(),
		Logger:  logger.Named("http"),
	})
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		logger.Warn("response cache disabled", "error", err)
		c = nil
	}
	return New(reviewer, c, Options{
		Provider:      s.Provider,
		Model:         s.Model,
		Timeout:       s.Timeout(),
		MaxTokens:     s.MaxTokens,
		RedactSecrets: cfg.Privacy.RedactSecrets,
		RedactPaths:   cfg.Privacy.RedactPaths,
		Rules:         rules,
	}, logger), nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Suggest asks the provider for suggestions on sub. It makes one attempt
// bounded by the configured timeout. On failure it returns an empty slice and
// an error wrapping ErrUnavailable (and the provider error, if any).
func (c *Client) Suggest(ctx context.Context, sub intake.Submission, findings []review.Finding) ([]review.Suggestion, error) {
	name := sub.DisplayName()

	source, redacted, withheld := sub.Text(), 0, redact.ShouldRedactPath(name, c.opts.RedactPaths)
	if c.opts.RedactSecrets {
		source, redacted, withheld = redact.Content(sub.Text(), name, c.opts.RedactPaths)
	}
	if withheld {
		return []review.Suggestion{}, unavailable(errors.New("source withheld by redaction policy"))
	}
	if redacted > 0 {
		c.logger.Info("redacted secrets before suggestion call", "count", redacted)
	}

	key := cache.BuildCacheKey(c.opts.Provider, c.opts.Model, source, FindingsDigest(findings))
	if c.cache != nil {
		if content, ok := c.cache.Get(key); ok {
			if out, err := Parse(content); err == nil {
				c.logger.Debug("suggestion cache hit", "name", name)
				return c.finish(out, sub), nil
			}
		}
	}

	callCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.reviewer.Review(callCtx, providers.ReviewRequest{
		SystemPrompt: review.SystemPrompt(),
		UserPrompt:   review.BuildUserPrompt(name, source, findings, c.opts.MaxSuggestions, c.opts.Rules),
		MaxTokens:    c.opts.MaxTokens,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", c.opts.Timeout, err)
		}
		c.logger.Warn("suggestion call failed", "provider", c.reviewer.Name(), "error", err)
		return []review.Suggestion{}, unavailable(err)
	}
	c.logger.Debug("suggestion call done", "provider", c.reviewer.Name(),
		"tokens", resp.TokensUsed, "ms", time.Since(start).Milliseconds())

	out, err := Parse(resp.Content)
	if err != nil {
		return []review.Suggestion{}, unavailable(err)
	}
	if c.cache != nil {
		if err := c.cache.Put(key, c.opts.Provider, c.opts.Model, resp.Content); err != nil {
			c.logger.Warn("caching suggestion response", "error", err)
		}
	}
	return c.finish(out, sub), nil
}

// finish drops out-of-range line references and applies the cap.
func (c *Client) finish(out []review.Suggestion, sub intake.Submission) []review.Suggestion {
	for i := range out {
		if out[i].Line > sub.Lines() {
			out[i].Line = 0
		}
	}
	if len(out) > c.opts.MaxSuggestions {
		out = out[:c.opts.MaxSuggestions]
	}
	return out
}

// FindingsDigest identifies the findings quoted in a prompt.
func FindingsDigest(findings []review.Finding) string {
	h := sha256.New()
	for i, f := range findings {
		if i == review.MaxPromptFindings {
			break
		}
		fmt.Fprintf(h, "%s\n", f.ID)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
