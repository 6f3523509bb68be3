package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient implements Client for tests. Responses are returned in order;
// GenerateFunc, when set, takes precedence.
type MockClient struct {
	// GenerateFunc overrides response selection entirely when non-nil.
	GenerateFunc func(ctx context.Context, req Request) (string, error)

	// Responses are returned one per call when GenerateFunc is nil.
	// The last response repeats once the list is exhausted.
	Responses []string

	// ModelName is returned by Model. Defaults to "mock".
	ModelName string

	mu       sync.Mutex
	calls    int
	requests []Request
}

// Generate returns the next canned response, recording the request.
func (m *MockClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}

	if len(m.Responses) == 0 {
		return "", fmt.Errorf("mock client has no responses configured")
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Model returns the configured mock model name.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock"
	}
	return m.ModelName
}

// Calls returns how many times Generate was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of the recorded requests in call order.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
