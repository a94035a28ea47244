package providers

import (
	"context"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama implements the Reviewer interface for Ollama and LM Studio
// (OpenAI-compatible API).
type Ollama struct {
	apiKey  string
	model   string
	baseURL string
	client  *resty.Client
}

// NewOllama creates a new Ollama provider. No API key is required by default.
func NewOllama(model string, opts Options) (*Ollama, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	return &Ollama{
		// Optional API key for servers that require it (e.g., LM Studio)
		apiKey:  os.Getenv("PYREVIEW_OLLAMA_API_KEY"),
		model:   model,
		baseURL: ollamaEndpoint(baseURL),
		client:  newRestyClient(opts),
	}, nil
}

// ollamaEndpoint normalizes a host, /v1 or full completions URL.
func ollamaEndpoint(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1/chat/completions")
	baseURL = strings.TrimSuffix(baseURL, "/v1")
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return baseURL + "/v1/chat/completions"
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	return chatCompletion(ctx, o.client, o.baseURL, o.apiKey, o.model, req)
}
