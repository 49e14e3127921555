package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

const chatCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "test-model",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"to\":\"Paris\"}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`

func newRequest() *LLMRequest {
	return &LLMRequest{
		System:      "extract",
		Prompt:      "fly to paris",
		MaxTokens:   500,
		Temperature: 0.2,
		JSONMode:    true,
	}
}

func openAIFor(t *testing.T, url string, timeout time.Duration) LLMProvider {
	t.Helper()
	p, err := New(Config{
		Provider: "openrouter",
		APIKey:   "test-key",
		Model:    "test-model",
		BaseURL:  url,
		Timeout:  timeout,
		Referer:  "https://flightly.test",
		Title:    "Flightly",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestOpenAIGenerate(t *testing.T) {
	var gotReferer, gotTitle, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletion))
	}))
	defer srv.Close()

	resp, err := openAIFor(t, srv.URL, time.Second).Generate(context.Background(), newRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != `{"to":"Paris"}` {
		t.Errorf("content = %q", resp.Content)
	}
	if gotReferer != "https://flightly.test" || gotTitle != "Flightly" {
		t.Errorf("attribution headers = %q, %q", gotReferer, gotTitle)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestOpenAIStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusInternalServerError, KindStatus},
		{http.StatusBadGateway, KindStatus},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
			}))
			defer srv.Close()

			_, err := openAIFor(t, srv.URL, time.Second).Generate(context.Background(), newRequest())
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ProviderError", err)
			}
			if pe.Kind != tt.want || pe.StatusCode != tt.status {
				t.Errorf("kind = %s status = %d, want %s %d", pe.Kind, pe.StatusCode, tt.want, tt.status)
			}
		})
	}
}

func TestOpenAIEmptyChoicesIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := openAIFor(t, srv.URL, time.Second).Generate(context.Background(), newRequest())
	if KindOf(err) != KindMalformed {
		t.Fatalf("kind = %q (%v), want malformed", KindOf(err), err)
	}
}

func TestOpenAITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := openAIFor(t, srv.URL, 50*time.Millisecond).Generate(context.Background(), newRequest())
	if KindOf(err) != KindTimeout {
		t.Fatalf("kind = %q (%v), want timeout", KindOf(err), err)
	}
}

func TestOpenAINetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := openAIFor(t, url, time.Second).Generate(context.Background(), newRequest())
	if KindOf(err) != KindNetwork {
		t.Fatalf("kind = %q (%v), want network", KindOf(err), err)
	}
}

func TestAnthropicRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	p, err := New(Config{Provider: "anthropic", APIKey: "k", Model: "claude-test", BaseURL: srv.URL, Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Generate(context.Background(), newRequest())
	if KindOf(err) != KindRateLimit {
		t.Fatalf("kind = %q (%v), want rate_limit", KindOf(err), err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "carrier-pigeon"}, nil)
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}
