package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (m *MockClient) Name() string {
	return MockClientName
}

// RequestCount returns the number of Chat calls made.
func (m *MockClient) RequestCount() int64 {
	return m.requestCount.Load()
}

// Chat returns the configured response, or a failure result when
// ShouldFail is set or FailAfter has been exceeded.
func (m *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	count := m.requestCount.Add(1)

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}

	result := &ChatResult{
		RequestID:     req.RequestID,
		Provider:      MockClientName,
		ModelUsed:     "mock-model",
		ExecutionTime: m.Latency,
	}

	if m.ShouldFail || (m.FailAfter > 0 && count > int64(m.FailAfter)) {
		result.Success = false
		result.ErrorType = "mock_error"
		result.ErrorMessage = "mock failure (status 500): simulated endpoint error"
		return result, fmt.Errorf("mock failure (status 500): simulated endpoint error")
	}

	result.Success = true
	result.Content = m.ResponseText
	result.PromptTokens = 10
	result.CompletionTokens = 20
	result.TotalTokens = 30

	return result, nil
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
