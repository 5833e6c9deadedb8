package llm

import (
	"context"
	"sync"

	"github.com/PabloGalante/arcana-engine/internal/domain"
)

// MockNarrator replays a scripted sequence of narrator messages. Tests
// and the local mock mode queue responses in advance; once the script is
// exhausted every call returns a plain narration so the agent loop always
// terminates.
type MockNarrator struct {
	mu     sync.Mutex
	script []*domain.Message

	// Calls records the transcript passed to each Generate call, newest
	// last, for assertions on prompt construction.
	Calls [][]*domain.Message

	// ToolsSeen records the tool schemas offered on each call.
	ToolsSeen [][]domain.ToolSchema
}

func NewMockNarrator(script ...*domain.Message) *MockNarrator {
	return &MockNarrator{script: script}
}

// Enqueue appends messages to the remaining script.
func (m *MockNarrator) Enqueue(msgs ...*domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, msgs...)
}

func (m *MockNarrator) Generate(_ context.Context, msgs []*domain.Message, tools []domain.ToolSchema) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, msgs)
	m.ToolsSeen = append(m.ToolsSeen, tools)

	if len(m.script) == 0 {
		return &domain.Message{
			Role: domain.RoleNarrator,
			Text: "The torchlight flickers as the Dungeon Master considers your move.",
		}, nil
	}

	next := m.script[0]
	m.script = m.script[1:]
	return next, nil
}

// MockEmbedder produces deterministic embeddings from the text bytes.
// Similar strings do not embed near each other; tests that care about
// ranking construct vectors directly instead.
type MockEmbedder struct{}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	const dim = 8

	v := make([]float32, dim)
	for i, b := range []byte(text) {
		v[i%dim] += float32(b) / 255
	}
	if len(text) == 0 {
		v[0] = 1
	}
	return v, nil
}
