package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ReviewRequest contains the data sent to an LLM.
type ReviewRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// ReviewResponse contains the raw response from an LLM.
type ReviewResponse struct {
	Content    string
	TokensUsed int
}

// Reviewer is the provider abstraction interface.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error)
	Name() string
}

// Options configures the transport shared by all providers.
type Options struct {
	// BaseURL overrides the provider endpoint. Empty uses the provider default.
	BaseURL string
	// Timeout bounds a single HTTP exchange. Zero leaves it to the context.
	Timeout time.Duration
	Logger  hclog.Logger
}

func (o Options) logger() hclog.Logger {
	if o.Logger == nil {
		return hclog.NewNullLogger()
	}
	return o.Logger
}

const defaultMaxTokens = 2048

// New creates a provider by name.
func New(provider, model string, opts Options) (Reviewer, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(model, opts)
	case "openai":
		return NewOpenAI(model, opts)
	case "gemini", "google":
		return NewGemini(model, opts)
	case "ollama", "lmstudio":
		return NewOllama(model, opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// ModelInfo lists the well-known models of a provider.
type ModelInfo struct {
	Provider string
	Models   []string
}

// KnownModels is the catalogue printed by `pyreview models list`.
var KnownModels = []ModelInfo{
	{
		Provider: "openai",
		Models: []string{
			"gpt-4.1-mini",
			"gpt-4.1",
			"gpt-4o-mini",
			"o3-mini",
		},
	},
	{
		Provider: "anthropic",
		Models: []string{
			"claude-sonnet-4-5",
			"claude-haiku-4-5",
			"claude-opus-4-1",
		},
	},
	{
		Provider: "gemini",
		Models: []string{
			"gemini-2.5-flash",
			"gemini-2.5-pro",
		},
	},
	{
		Provider: "ollama",
		Models: []string{
			"qwen2.5-coder",
			"llama3.3",
			"codellama",
			"deepseek-coder-v2",
		},
	},
}
