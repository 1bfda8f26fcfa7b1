package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatResponse(content string) string {
	return `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":` + mustJSON(content) + `},"finish_reason":"stop"}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestSummarizeSendsFixedSystemPromptAndBoundedOutput(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse("Framing progressed on the east wing.")))
	}))
	defer srv.Close()

	p := NewOpenAIProviderWithLogger("test-key", srv.URL, "", nil, false)

	out, err := p.Summarize(context.Background(), "framing east wing\ninspection passed")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Framing progressed on the east wing." {
		t.Errorf("summary = %q", out)
	}

	if got.Model != DefaultOpenAIModel {
		t.Errorf("model = %q, want %q", got.Model, DefaultOpenAIModel)
	}
	if got.MaxTokens != MaxSummaryTokens {
		t.Errorf("max_tokens = %d, want %d", got.MaxTokens, MaxSummaryTokens)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || !strings.Contains(got.Messages[0].Content, "construction project manager") {
		t.Errorf("system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "framing east wing\ninspection passed" {
		t.Errorf("user message = %+v", got.Messages[1])
	}
}

func TestSummarizeReturnsErrorOnAPIFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"server error"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenAIProviderWithLogger("test-key", srv.URL, "", nil, false)

	if _, err := p.Summarize(context.Background(), "text"); err == nil {
		t.Fatal("expected error from failing API")
	}
}

func TestSummarizeRejectsEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProviderWithLogger("test-key", srv.URL, "", nil, false)

	_, err := p.Summarize(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), ErrNoChoicesInResponse) {
		t.Fatalf("err = %v, want no choices error", err)
	}
}

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	registry := NewProviderRegistry()
	RegisterOpenAI(registry)

	if _, err := registry.GetProvider("openai", map[string]string{}); err == nil {
		t.Error("provider created without api_key")
	}

	p, err := registry.GetProvider("openai", map[string]string{"api_key": "k"})
	if err != nil || p == nil {
		t.Fatalf("get provider: %v", err)
	}

	if _, err := registry.GetProvider("unknown", nil); err == nil {
		t.Error("unknown provider did not error")
	}
}

func TestSanitizeAPIKey(t *testing.T) {
	t.Parallel()

	if got := SanitizeAPIKey("sk-1234567890abcdef"); !strings.HasPrefix(got, "sk-1") || !strings.HasSuffix(got, "cdef") {
		t.Errorf("sanitized key = %q", got)
	}
	if got := SanitizeAPIKey("short"); got != RedactedValue {
		t.Errorf("short key = %q, want redacted", got)
	}
}
