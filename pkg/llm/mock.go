package llm

import (
	"context"
	"sync"
)

// MockCompletionClient is a configurable mock for testing completion
// consumers. Set the function fields to control behavior in tests. Safe for
// concurrent use; batch consumers call Complete from multiple goroutines.
type MockCompletionClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns a canned result.
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// Model is returned by ModelID. Defaults to "mock-model".
	Model string

	mu sync.Mutex

	// Call tracking for verification
	CompleteCalls    int
	CompleteRequests []CompletionRequest
}

// NewMockCompletionClient creates a new mock with sensible defaults.
func NewMockCompletionClient() *MockCompletionClient {
	return &MockCompletionClient{
		Model: "mock-model",
	}
}

// Complete implements CompletionClient.
func (m *MockCompletionClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.CompleteRequests = append(m.CompleteRequests, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResult{
		Text:       "mock completion",
		TokensUsed: 10,
		Model:      m.ModelID(),
	}, nil
}

// ModelID implements CompletionClient.
func (m *MockCompletionClient) ModelID() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// CallCount returns how many times Complete has been invoked.
func (m *MockCompletionClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CompleteCalls
}

// Requests returns a copy of the recorded completion requests.
func (m *MockCompletionClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.CompleteRequests))
	copy(out, m.CompleteRequests)
	return out
}

// Reset clears call tracking counters.
func (m *MockCompletionClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls = 0
	m.CompleteRequests = nil
}

// Ensure MockCompletionClient implements CompletionClient at compile time.
var _ CompletionClient = (*MockCompletionClient)(nil)
