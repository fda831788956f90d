// Package testutil provides test doubles for the gateway package.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/reqderive/gateway"
)

// MockGateway is a thread-safe gateway substitute for testing. It returns
// configured responses in sequence and counts calls, so tests can verify
// cache behavior against exact gateway call counts.
//
// Usage:
//
//	mock := &testutil.MockGateway{
//	    Responses: []string{`[{"text": "...", "category": "A", "confidence": 0.9}]`},
//	}
//
//	// Error gateway
//	mock := &testutil.MockGateway{Err: errors.New("connection refused")}
type MockGateway struct {
	mu            sync.Mutex
	callCount     int
	responseIndex int
	lastSystem    string
	lastPrompt    string

	// Responses are returned in sequence; the last one repeats.
	Responses []string

	// Err, if set, is returned from every call (takes precedence).
	Err error

	// Delay is slept before responding, for latency-sensitive tests.
	Delay time.Duration

	// StreamChunkSize splits streamed responses into chunks of this many
	// bytes. 0 streams the whole response as one chunk.
	StreamChunkSize int
}

var _ gateway.Gateway = (*MockGateway)(nil)

// Generate implements gateway.Gateway.
func (m *MockGateway) Generate(ctx context.Context, prompt string) (string, error) {
	return m.next(ctx, "", prompt)
}

// GenerateWithSystem implements gateway.Gateway.
func (m *MockGateway) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return m.next(ctx, system, prompt)
}

// GenerateStream implements gateway.Gateway. The configured response is
// delivered through onChunk in StreamChunkSize pieces before being returned
// whole.
func (m *MockGateway) GenerateStream(ctx context.Context, system, prompt string, onChunk gateway.ChunkFunc, onProgress gateway.ProgressFunc) (string, error) {
	content, err := m.next(ctx, system, prompt)
	if err != nil {
		return "", err
	}

	if onProgress != nil {
		onProgress("generation started")
	}

	size := m.StreamChunkSize
	if size <= 0 {
		size = len(content)
	}
	for i := 0; i < len(content); i += size {
		end := i + size
		if end > len(content) {
			end = len(content)
		}
		if onChunk != nil {
			onChunk(content[i:end])
		}
	}

	if onProgress != nil {
		onProgress("generation complete")
	}

	return content, nil
}

// next returns the next configured response, honoring Err, Delay, and
// context cancellation.
func (m *MockGateway) next(ctx context.Context, system, prompt string) (string, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.lastSystem = system
	m.lastPrompt = prompt

	if m.Err != nil {
		return "", m.Err
	}

	if len(m.Responses) == 0 {
		return "", nil
	}

	resp := m.Responses[m.responseIndex]
	if m.responseIndex < len(m.Responses)-1 {
		m.responseIndex++
	}
	return resp, nil
}

// CallCount returns how many generation calls were made.
func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the prompt of the most recent call.
func (m *MockGateway) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// LastSystem returns the system message of the most recent call.
func (m *MockGateway) LastSystem() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSystem
}

// PromptContains reports whether the most recent prompt contains s.
func (m *MockGateway) PromptContains(s string) bool {
	return strings.Contains(m.LastPrompt(), s)
}

// Reset clears call state so the mock can be reused across test cases.
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.responseIndex = 0
	m.lastSystem = ""
	m.lastPrompt = ""
}
