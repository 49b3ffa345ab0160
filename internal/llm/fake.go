package llm

import (
	"context"
	"os"
	"sync"
)

// FakeResponseEnv overrides the canned answer of the fake provider.
const FakeResponseEnv = "LOOPSTER_FAKE_RESPONSE"

func fakeResponse() string {
	if value, ok := os.LookupEnv(FakeResponseEnv); ok {
		return value
	}
	return "OK"
}

// Fake returns canned responses in order, repeating the last one.
type Fake struct {
	mu        sync.Mutex
	responses []string
	requests  []Request
}

// NewFake constructs a fake client.
func NewFake(responses ...string) *Fake {
	if len(responses) == 0 {
		responses = []string{"OK"}
	}
	return &Fake{responses: responses}
}

// Complete records req and returns the next canned response.
func (f *Fake) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

// Requests returns the requests seen so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}
