package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"fortio.org/safecast"
	"google.golang.org/genai"
)

// Gemini implements the Reviewer interface for Google's Gemini API through
// the genai SDK.
type Gemini struct {
	model  string
	client *genai.Client
}

// NewGemini creates a new Gemini provider.
func NewGemini(model string, opts Options) (*Gemini, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY (or GOOGLE_API_KEY) environment variable is not set")
	}
	return newGeminiWithKey(context.Background(), key, model, opts)
}

func newGeminiWithKey(ctx context.Context, key, model string, opts Options) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{model: model, client: client}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	limit, err := safecast.Conv[int32](maxTokens)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("max tokens: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		MaxOutputTokens: limit,
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.UserPrompt}}}},
		cfg,
	)
	if err != nil {
		return ReviewResponse{}, geminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ReviewResponse{}, fmt.Errorf("no content in response")
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			content.WriteString(part.Text)
		}
	}
	if content.Len() == 0 {
		return ReviewResponse{}, fmt.Errorf("empty text content in API response")
	}

	out := ReviewResponse{Content: content.String()}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// geminiError maps SDK errors onto the shared error taxonomy.
func geminiError(err error) error {
	code, msg := 0, ""
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, msg = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr):
		code, msg = apiErrPtr.Code, apiErrPtr.Message
	default:
		return fmt.Errorf("sending request: %w", err)
	}
	// An invalid key is reported as a 400 by the Gemini API.
	if code == http.StatusBadRequest && strings.Contains(msg, "API key") {
		return &authError{message: msg}
	}
	return statusError(code, msg)
}
