package agentloop

import "github.com/haasonsaas/swarm/internal/value"

// EventKind tags one observation-only event emitted during a streaming run.
// Events never affect the resulting AgentResult; they exist purely so a
// caller can watch a run progress.
type EventKind string

const (
	EventStarted            EventKind = "started"
	EventOutputToken        EventKind = "output_token"
	EventThinking           EventKind = "thinking"
	EventToolCallStarted    EventKind = "tool_call_started"
	EventToolCallPartial    EventKind = "tool_call_partial"
	EventToolCallCompleted  EventKind = "tool_call_completed"
	EventToolCallFailed     EventKind = "tool_call_failed"
	EventHandoff            EventKind = "handoff"
	EventGuardrailTriggered EventKind = "guardrail_triggered"
	EventIterationStarted   EventKind = "iteration_started"
	EventIterationCompleted EventKind = "iteration_completed"
	EventCompleted          EventKind = "completed"
	EventFailed             EventKind = "failed"
)

// Event is one item in a run's observation stream. Exactly the fields
// relevant to Kind are populated.
type Event struct {
	Kind      EventKind
	Iteration int

	Text     string // OutputToken text delta
	Thinking string // Thinking text delta

	ToolCall   *value.ToolCall
	ToolResult *value.ToolResult

	HandoffFrom string
	HandoffTo   string

	GuardrailName    string
	GuardrailMessage string

	Result *AgentResult
	Err    error
}
