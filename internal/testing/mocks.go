package testing

import (
	"sync"

	"github.com/aristath/qfarm/internal/biome"
)

// MockRecorder collects biome events in memory.
type MockRecorder struct {
	mu     sync.Mutex
	events []biome.Event
}

// NewMockRecorder creates an empty recorder
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

// Record implements biome.Recorder
func (m *MockRecorder) Record(e biome.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of everything recorded so far
func (m *MockRecorder) Events() []biome.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]biome.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Actions returns the action names in recording order
func (m *MockRecorder) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}
