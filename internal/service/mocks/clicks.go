package mocks

import (
	"context"
	"sync"
)

// MockClickRecorder collects recorded codes synchronously.
type MockClickRecorder struct {
	mu    sync.Mutex
	codes []string
}

func NewMockClickRecorder() *MockClickRecorder {
	return &MockClickRecorder{}
}

func (m *MockClickRecorder) RecordClick(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, code)
	return nil
}

// Codes returns a copy of the recorded codes in call order.
func (m *MockClickRecorder) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.codes))
	copy(out, m.codes)
	return out
}

// SequenceGenerator returns the given codes in order, then repeats the last one.
type SequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func NewSequenceGenerator(codes ...string) *SequenceGenerator {
	return &SequenceGenerator{codes: codes}
}

func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i]
}

// Calls returns how many codes were generated.
func (g *SequenceGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
