// Package llm wraps the chat completion providers used to summarize and
// analyze captured sessions.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider names after alias resolution.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderFake   = "fake"
)

// ErrMissingAPIKey is returned when the provider's key variable is unset.
var ErrMissingAPIKey = errors.New("missing API key")

// Request is a single system + user exchange.
type Request struct {
	// Model overrides the client's default model when set.
	Model  string
	System string
	User   string
}

// Client completes chat requests.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKeyEnv  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ProviderError is returned when the provider responds with a non-2xx status.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// NormalizeProvider resolves provider aliases. It returns "" for unknown names.
func NormalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai", "chatgpt", "gpt":
		return ProviderOpenAI
	case "google", "gemini":
		return ProviderGoogle
	case "fake":
		return ProviderFake
	default:
		return ""
	}
}

// New builds a client for cfg.Provider, inferring it from cfg.Model when empty.
func New(cfg Config) (Client, error) {
	provider := cfg.Provider
	if strings.TrimSpace(provider) == "" {
		provider = InferProvider(cfg.Model)
		if provider == "" {
			return nil, fmt.Errorf("could not infer provider from model: %s", cfg.Model)
		}
	}
	name := NormalizeProvider(provider)
	if name == "" {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	if name == ProviderFake {
		return NewFake(fakeResponse()), nil
	}

	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultKeyEnv(name)
	}
	key := strings.TrimSpace(os.Getenv(keyEnv))
	if key == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrMissingAPIKey, keyEnv)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	switch name {
	case ProviderOpenAI:
		return &OpenAI{httpClient: httpClient, baseURL: baseURL(cfg.BaseURL, defaultOpenAIURL), apiKey: key, model: cfg.Model}, nil
	default:
		return &Google{httpClient: httpClient, baseURL: baseURL(cfg.BaseURL, defaultGoogleURL), apiKey: key, model: cfg.Model}, nil
	}
}

func defaultKeyEnv(provider string) string {
	if provider == ProviderGoogle {
		return "GOOGLE_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func baseURL(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	return strings.TrimRight(value, "/")
}

func pickModel(req Request, fallback string) (string, error) {
	if req.Model != "" {
		return req.Model, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", errors.New("llm: model is required")
}

// postJSON sends body to endpoint and decodes a 2xx JSON response into out.
func postJSON(ctx context.Context, httpClient *http.Client, endpoint string, headers map[string]string, body any, out any, prefix string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", prefix, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", prefix, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: sending request: %w", prefix, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readProviderError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", prefix, err)
	}
	return nil
}

// readProviderError understands both {"error":{"type","message"}} and
// Google's {"error":{"status","message"}} bodies.
func readProviderError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var wire struct {
		Error struct {
			Type    string `json:"type"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		errType := wire.Error.Type
		if errType == "" {
			errType = wire.Error.Status
		}
		return &ProviderError{StatusCode: resp.StatusCode, Type: errType, Message: wire.Error.Message}
	}
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &ProviderError{StatusCode: resp.StatusCode, Message: message}
}
