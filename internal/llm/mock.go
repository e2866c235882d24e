package llm

import (
	"context"
	"sync"
)

// MockGateway is a test double for Gateway. It can also back dry runs.
// Responses are returned in order; the last one repeats.
type MockGateway struct {
	Responses []*Response
	Err       error

	mu    sync.Mutex
	Calls []Request
}

// Complete records the request and returns the next canned response.
func (m *MockGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &Response{}, nil
	}

	i := len(m.Calls) - 1
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	return m.Responses[i], nil
}

// Text is a convenience constructor for a single-text mock.
func Text(text string) *MockGateway {
	return &MockGateway{Responses: []*Response{{Text: text, Model: "mock"}}}
}

// CallCount returns the number of recorded requests.
func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
