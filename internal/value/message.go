package value

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a MemoryMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// MemoryMessage is one turn in an agent's conversation history.
//
// Tool messages always carry a non-empty ToolCallID (the invariant is
// enforced by NewToolMessage, not by the zero value, since MemoryMessage is
// a plain struct used freely in tests and fixtures).
type MemoryMessage struct {
	ID         uuid.UUID
	Role       Role
	Content    string
	Timestamp  time.Time
	Metadata   map[string]Value
	ToolCallID string     // set when Role == RoleTool
	ToolCalls  []ToolCall // set when Role == RoleAssistant requested tools
}

// NewMemoryMessage creates a message with a fresh ID and the current time.
func NewMemoryMessage(role Role, content string) MemoryMessage {
	return MemoryMessage{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  make(map[string]Value),
	}
}

// NewToolMessage creates a tool-result message, enforcing the ToolCallID
// invariant at construction.
func NewToolMessage(toolCallID, content string) MemoryMessage {
	m := NewMemoryMessage(RoleTool, content)
	m.ToolCallID = toolCallID
	return m
}

// TokenUsage reports input/output token counts for a single inference call.
// TotalTokens is always derived, never stored independently.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// TotalTokens returns InputTokens + OutputTokens.
func (u TokenUsage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}
