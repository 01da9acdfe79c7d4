// Package memory provides the conversation-history capability an agent loop
// leans on each turn: append messages, produce a bounded textual context for
// a query.
//
// Grounded on internal/sessions/memory.go's MemoryStore: mutex-guarded
// slice storage, a trim-to-cap policy against unbounded growth, and
// deep-clone-on-read/write so callers can never mutate stored state through
// an aliased slice or map.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/haasonsaas/swarm/internal/value"
)

// maxMessagesPerMemory mirrors the teacher's maxMessagesPerSession cap:
// once exceeded, the oldest messages are trimmed to keep the bound.
const maxMessagesPerMemory = 1000

// Memory is the capability an agent loop depends on for conversation state.
type Memory interface {
	// Append records a message.
	Append(ctx context.Context, msg value.MemoryMessage) error
	// Context returns a bounded textual rendering of stored messages
	// relevant to query, never exceeding maxChars.
	Context(ctx context.Context, query string, maxChars int) (string, error)
	// AllMessages returns every stored message in insertion order.
	AllMessages(ctx context.Context) ([]value.MemoryMessage, error)
	// Clear discards all stored messages.
	Clear(ctx context.Context) error
}

// InMemory is a mutex-guarded, process-local Memory implementation.
type InMemory struct {
	mu       sync.RWMutex
	messages []value.MemoryMessage
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (m *InMemory) Append(ctx context.Context, msg value.MemoryMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, cloneMessage(msg))
	if len(m.messages) > maxMessagesPerMemory {
		excess := len(m.messages) - maxMessagesPerMemory
		m.messages = m.messages[excess:]
	}
	return nil
}

func (m *InMemory) AllMessages(ctx context.Context) ([]value.MemoryMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]value.MemoryMessage, len(m.messages))
	for i, msg := range m.messages {
		out[i] = cloneMessage(msg)
	}
	return out, nil
}

func (m *InMemory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	return nil
}

// Context renders the most recent messages, oldest first, as a newline-
// joined transcript, taking only as many (from the most recent backwards) as
// fit within maxChars. query is accepted for interface symmetry with
// retrieval-backed implementations; this implementation does not rank by it.
func (m *InMemory) Context(ctx context.Context, query string, maxChars int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxChars <= 0 {
		return "", nil
	}

	var lines []string
	used := 0
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		line := string(msg.Role) + ": " + msg.Content
		if used+len(line)+1 > maxChars {
			break
		}
		lines = append(lines, line)
		used += len(line) + 1
	}
	// lines was built newest-first; reverse for chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n"), nil
}

func cloneMessage(msg value.MemoryMessage) value.MemoryMessage {
	clone := msg
	if msg.Metadata != nil {
		clone.Metadata = make(map[string]value.Value, len(msg.Metadata))
		for k, v := range msg.Metadata {
			clone.Metadata[k] = v
		}
	}
	if len(msg.ToolCalls) > 0 {
		clone.ToolCalls = append([]value.ToolCall{}, msg.ToolCalls...)
	}
	return clone
}
