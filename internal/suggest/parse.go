package suggest

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/dshills/pyreview/internal/review"
)

type rawSuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Line       int     `json:"line"`
	Text       string  `json:"text"`
	// Some models answer with "suggestion" or "message" instead of "text".
	Suggestion string `json:"suggestion"`
	Message    string `json:"message"`
}

// Parse turns a model response into suggestions. A JSON array (optionally in
// a code fence, under a "suggestions" key, or surrounded by prose) yields one
// suggestion per element; any other non-empty text becomes a single free-text suggestion.
// An empty response is an error.
func Parse(content string) ([]review.Suggestion, error) {
	content = stripFence(strings.TrimSpace(content))
	if content == "" {
		return nil, errors.New("empty response")
	}

	raw, ok := decodeArray(content)
	if !ok {
		return []review.Suggestion{{Text: content}}, nil
	}

	out := make([]review.Suggestion, 0, len(raw))
	for _, r := range raw {
		text := strings.TrimSpace(firstNonEmpty(r.Text, r.Suggestion, r.Message))
		if text == "" {
			continue
		}
		s := review.Suggestion{
			Text:       text,
			Category:   strings.ToLower(strings.TrimSpace(r.Category)),
			Confidence: r.Confidence,
			Line:       r.Line,
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			s.Confidence = 0
		}
		if s.Line < 0 {
			s.Line = 0
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeArray decodes content as a suggestion array or a wrapper object. When
// the model surrounds the JSON with prose, the outermost bracketed span is
// tried instead.
func decodeArray(content string) ([]rawSuggestion, bool) {
	if raw, ok := decodeJSON(content); ok {
		return raw, true
	}
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start := strings.Index(content, pair[0])
		end := strings.LastIndex(content, pair[1])
		if start < 0 || end <= start {
			continue
		}
		if start == 0 && end == len(content)-1 {
			continue
		}
		if raw, ok := decodeJSON(content[start : end+1]); ok {
			return raw, true
		}
	}
	return nil, false
}

func decodeJSON(content string) ([]rawSuggestion, bool) {
	switch content[0] {
	case '[':
		var raw []rawSuggestion
		if err := json.Unmarshal([]byte(content), &raw); err == nil {
			return raw, true
		}
	case '{':
		var wrapped struct {
			Suggestions []rawSuggestion `json:"suggestions"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Suggestions != nil {
			return wrapped.Suggestions, true
		}
	}
	return nil, false
}

// stripFence removes a surrounding markdown code fence.
func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return strings.Trim(content, "`")
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
