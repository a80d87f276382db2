package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/lankachat/internal/reliability"
)

func TestOpenAIProviderAgainstCompatibleServer(t *testing.T) {
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "hello from sdk"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 3, "total_tokens": 6}
		}`))
	}))
	defer ts.Close()

	p := NewOpenAIProvider(Descriptor{Name: "openai", Endpoint: ts.URL + "/v1/", APIKey: "sk-test", Timeout: 2 * time.Second})
	text, err := p.Complete(context.Background(), "user: hi")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "hello from sdk" {
		t.Fatalf("Complete() = %q, want %q", text, "hello from sdk")
	}
	if !strings.HasSuffix(path, "/chat/completions") {
		t.Fatalf("request path = %q, want .../chat/completions", path)
	}
}

func TestOpenAIProviderStatusMiss(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer ts.Close()

	p := NewOpenAIProvider(Descriptor{Name: "openai", Endpoint: ts.URL + "/v1/", APIKey: "sk-test", Timeout: 2 * time.Second})
	_, err := p.Complete(context.Background(), "user: hi")
	if got := reliability.Classify(err); got != reliability.ReasonStatus {
		t.Fatalf("Classify(%v) = %q, want %q", err, got, reliability.ReasonStatus)
	}
}

func TestAnthropicProviderAgainstStubServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "ak-test" {
			t.Errorf("X-Api-Key = %q, want ak-test", r.Header.Get("X-Api-Key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "ayubowan"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`))
	}))
	defer ts.Close()

	p := NewAnthropicProvider(Descriptor{Name: "claude", Endpoint: ts.URL, APIKey: "ak-test", Timeout: 2 * time.Second})
	text, err := p.Complete(context.Background(), "user: hi")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "ayubowan" {
		t.Fatalf("Complete() = %q, want %q", text, "ayubowan")
	}
}
