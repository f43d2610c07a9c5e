package provider

import (
	"context"
	"sync"
)

// MockProvider is a deterministic Provider for tests. It counts calls so retry
// budgets can be asserted.
type MockProvider struct {
	// Response is returned by Generate when Err is nil.
	Response string

	// Err, if set, is returned by Generate instead of a response.
	Err error

	// FailTimes limits Err to the first n calls; zero means every call fails.
	FailTimes int

	// Responses, if set, are returned in order; the last one repeats.
	Responses []string

	mu          sync.Mutex
	calls       int
	lastRequest Request
}

func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func NewMockProviderWithError(err error) *MockProvider {
	return &MockProvider{Err: err}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastRequest = req

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil && (m.FailTimes == 0 || m.calls <= m.FailTimes) {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		i := m.calls - 1
		if i >= len(m.Responses) {
			i = len(m.Responses) - 1
		}
		return m.Responses[i], nil
	}
	return m.Response, nil
}

// Calls returns how many times Generate ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request passed to Generate.
func (m *MockProvider) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

func (m *MockProvider) Name() string  { return "mock" }
func (m *MockProvider) Model() string { return "mock-model" }
func (m *MockProvider) Close() error  { return nil }
