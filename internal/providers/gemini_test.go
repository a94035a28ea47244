package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestGemini(t *testing.T, url string) *Gemini {
	t.Helper()
	g, err := newGeminiWithKey(context.Background(), "test-key", "gemini-2.5-flash", Options{
		BaseURL: url,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("newGeminiWithKey error: %v", err)
	}
	return g
}

func TestGemini_Review(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("Missing API key in x-goog-api-key header")
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"systemInstruction"`) {
			t.Errorf("system instruction missing from %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "[]"}]}}],
			"usageMetadata": {"totalTokenCount": 75}
		}`)
	}))
	defer server.Close()

	resp, err := newTestGemini(t, server.URL).Review(context.Background(), ReviewRequest{
		SystemPrompt: "test",
		UserPrompt:   "test",
		MaxTokens:    10,
	})
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if resp.Content != "[]" {
		t.Errorf("Content = %q, want %q", resp.Content, "[]")
	}
	if resp.TokensUsed != 75 {
		t.Errorf("TokensUsed = %d, want 75", resp.TokensUsed)
	}
}

func TestGemini_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error": {"code": 403, "message": "permission denied", "status": "PERMISSION_DENIED"}}`)
	}))
	defer server.Close()

	_, err := newTestGemini(t, server.URL).Review(context.Background(), ReviewRequest{UserPrompt: "x"})
	if !IsAuthError(err) {
		t.Errorf("Expected auth error, got %T: %v", err, err)
	}
}

func TestGemini_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates": []}`)
	}))
	defer server.Close()

	if _, err := newTestGemini(t, server.URL).Review(context.Background(), ReviewRequest{UserPrompt: "x"}); err == nil {
		t.Error("Expected error for empty candidates")
	}
}
