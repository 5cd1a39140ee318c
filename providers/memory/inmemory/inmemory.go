package inmemory

import (
	"context"
	"sync"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/memory"
	"github.com/leofalp/sagent/providers/observability"
)

// ArrayMemory is a concurrency-safe, slice-backed message history.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
}

var _ memory.Provider = (*ArrayMemory)(nil)

// New returns an empty ArrayMemory.
func New() *ArrayMemory {
	return &ArrayMemory{messages: []ai.Message{}}
}

// AppendMessage stores a copy of message. A nil message is ignored.
func (m *ArrayMemory) AppendMessage(ctx context.Context, message *ai.Message) error {
	if message == nil {
		return nil
	}

	m.mu.Lock()
	m.messages = append(m.messages, *message)
	total := len(m.messages)
	m.mu.Unlock()

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryAppend,
			observability.String(observability.AttrMemoryMessageRole, string(message.Role)),
			observability.Int(observability.AttrMemoryMessageLength, len(message.Content)),
		)
		span.SetAttributes(observability.Int(observability.AttrMemoryTotalMessages, total))
	}
	return nil
}

func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages), nil
}

// AllMessages returns a copy of the history.
func (m *ArrayMemory) AllMessages(ctx context.Context) ([]ai.Message, error) {
	return m.LastMessages(ctx, -1)
}

// LastMessages returns up to the last n messages, oldest first. A negative n
// returns everything; zero returns an empty slice.
func (m *ArrayMemory) LastMessages(_ context.Context, n int) ([]ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n < 0 || n > len(m.messages) {
		n = len(m.messages)
	}
	out := make([]ai.Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	return out, nil
}

// PopLastMessage removes and returns the newest message, or nil when empty.
func (m *ArrayMemory) PopLastMessage(_ context.Context) (*ai.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.messages) == 0 {
		return nil, nil
	}
	last := m.messages[len(m.messages)-1]
	m.messages = m.messages[:len(m.messages)-1]
	return &last, nil
}

// ClearMessages empties the history, keeping the backing array.
func (m *ArrayMemory) ClearMessages(ctx context.Context) error {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}

	m.mu.Lock()
	m.messages = m.messages[:0]
	m.mu.Unlock()
	return nil
}

func (m *ArrayMemory) FilterByRole(_ context.Context, role ai.MessageRole) ([]ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := []ai.Message{}
	for _, msg := range m.messages {
		if msg.Role == role {
			filtered = append(filtered, msg)
		}
	}
	return filtered, nil
}

// Sessions is a memory.Store keeping one ArrayMemory per session id for the
// lifetime of the process.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*ArrayMemory
}

var _ memory.Store = (*Sessions)(nil)

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*ArrayMemory)}
}

// Session returns the history for sessionID, creating it on first use.
func (s *Sessions) Session(sessionID string) memory.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.sessions[sessionID]
	if !ok {
		history = New()
		s.sessions[sessionID] = history
	}
	return history
}

// Len returns the number of sessions created so far.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
