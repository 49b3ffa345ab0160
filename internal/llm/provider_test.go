package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeProvider(t *testing.T) {
	tests := map[string]string{
		"openai":  ProviderOpenAI,
		"ChatGPT": ProviderOpenAI,
		"gpt":     ProviderOpenAI,
		"google":  ProviderGoogle,
		"gemini":  ProviderGoogle,
		"fake":    ProviderFake,
		"llama":   "",
	}
	for in, want := range tests {
		if got := NormalizeProvider(in); got != want {
			t.Fatalf("NormalizeProvider(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(Config{Provider: "openai", Model: "gpt-4o"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY is not set") {
		t.Fatalf("expected variable name in error, got %q", err.Error())
	}
}

func TestNewUnsupportedProvider(t *testing.T) {
	_, err := New(Config{Provider: "unknown", Model: "x"})
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}
}

func TestNewInfersProvider(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g-key")
	client, err := New(Config{Model: "gemini-1.5-flash"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := client.(*Google); !ok {
		t.Fatalf("expected google client, got %T", client)
	}
	if _, err := New(Config{Model: "mystery"}); err == nil || !strings.Contains(err.Error(), "could not infer provider") {
		t.Fatalf("expected inference error, got %v", err)
	}
}

func TestFakeProviderUsesEnvResponse(t *testing.T) {
	t.Setenv(FakeResponseEnv, "canned")
	client, err := New(Config{Model: "fake:test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := client.Complete(context.Background(), Request{System: "s", User: "u"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "canned" {
		t.Fatalf("unexpected fake response %q", got)
	}
}

func TestOpenAIComplete(t *testing.T) {
	t.Setenv("LOOPSTER_TEST_OPENAI", "sk-test")
	var seen openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello back"}}]}`))
	}))
	defer server.Close()

	client, err := New(Config{Provider: "openai", Model: "gpt-4o-mini", BaseURL: server.URL + "/v1/", APIKeyEnv: "LOOPSTER_TEST_OPENAI"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := client.Complete(context.Background(), Request{System: "be brief", User: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello back" {
		t.Fatalf("unexpected response %q", got)
	}
	if seen.Model != "gpt-4o-mini" || len(seen.Messages) != 2 {
		t.Fatalf("unexpected request %+v", seen)
	}
	if seen.Messages[0].Role != "system" || seen.Messages[1].Content != "hi" {
		t.Fatalf("unexpected messages %+v", seen.Messages)
	}
}

func TestOpenAIProviderError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	client, err := New(Config{Provider: "gpt", Model: "gpt-4o", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Complete(context.Background(), Request{User: "hi"})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if providerErr.StatusCode != http.StatusTooManyRequests || providerErr.Type != "rate_limit_error" || providerErr.Message != "slow down" {
		t.Fatalf("unexpected provider error %+v", providerErr)
	}
}

func TestGoogleComplete(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g-key")
	var seen googleRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-pro:generateContent" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "g-key" {
			t.Errorf("unexpected key header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"part one, "},{"text":"part two"}]}}]}`))
	}))
	defer server.Close()

	client, err := New(Config{Provider: "gemini", Model: "gemini-1.5-pro", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := client.Complete(context.Background(), Request{System: "sys", User: "question"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "part one, part two" {
		t.Fatalf("unexpected response %q", got)
	}
	if seen.SystemInstruction == nil || seen.SystemInstruction.Parts[0].Text != "sys" {
		t.Fatalf("expected system instruction, got %+v", seen)
	}
	if len(seen.Contents) != 1 || seen.Contents[0].Parts[0].Text != "question" {
		t.Fatalf("unexpected contents %+v", seen.Contents)
	}
}

func TestGoogleProviderErrorUsesStatus(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad model","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client, err := New(Config{Provider: "google", Model: "gemini-x", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Complete(context.Background(), Request{User: "hi"})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.Type != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP 400") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestProviderErrorPlainBody(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := New(Config{Provider: "openai", Model: "gpt-4o", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Complete(context.Background(), Request{User: "hi"})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.Message != "gateway down" {
		t.Fatalf("expected plain provider error, got %v", err)
	}
}

func TestCompleteRequiresModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	client, err := New(Config{Provider: "openai"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Complete(context.Background(), Request{User: "hi"}); err == nil {
		t.Fatalf("expected missing model error")
	}
}
