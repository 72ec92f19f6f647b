package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one canned answer. A non-nil Err is returned instead of
// content.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays canned responses in order and records requests. It
// backs the "mock" provider setting, so offline runs exercise the full
// narration path.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request

	// Default answers once the queue is drained. When nil, a drained mock
	// reports ErrProviderUnavailable.
	Default *MockResponse
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	var next MockResponse
	switch {
	case len(m.responses) > 0:
		next = m.responses[0]
		m.responses = m.responses[1:]
	case m.Default != nil:
		next = *m.Default
	default:
		return nil, &ErrProviderUnavailable{}
	}
	if next.Err != nil {
		return nil, next.Err
	}
	if req.Schema != nil {
		if err := validateResponse(req.Schema, next.Content); err != nil {
			return nil, err
		}
	}

	usage := next.Usage
	if usage.TotalTokens == 0 {
		usage = estimateUsage(req, next.Content)
	}
	return &Response{Content: next.Content, Usage: usage, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// estimateUsage approximates tokens at four bytes each.
func estimateUsage(req Request, out json.RawMessage) Usage {
	in := len(req.System)
	for _, msg := range req.Messages {
		in += len(msg.Content)
	}
	u := Usage{InputTokens: (in + 3) / 4, OutputTokens: (len(out) + 3) / 4}
	u.TotalTokens = u.InputTokens + u.OutputTokens
	return u
}
