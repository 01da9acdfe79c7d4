// Package hooks provides an event-driven dispatch system for agent run and
// orchestration graph events: the same priority-ordered handler registry a
// caller can use to wire logging, tracing, metrics, or custom side effects
// onto the observation stream agentloop and graph already emit internally.
package hooks

import (
	"context"
	"time"
)

// EventType identifies the category of hook event.
type EventType string

const (
	// Run lifecycle events, mirroring agentloop.EventKind.
	EventRunStarted            EventType = "run.started"
	EventRunOutputToken        EventType = "run.output_token"
	EventRunThinking           EventType = "run.thinking"
	EventRunIterationStarted   EventType = "run.iteration_started"
	EventRunIterationCompleted EventType = "run.iteration_completed"
	EventRunCompleted          EventType = "run.completed"
	EventRunFailed             EventType = "run.failed"

	// Tool dispatch events.
	EventToolCallStarted   EventType = "tool.call_started"
	EventToolCallPartial   EventType = "tool.call_partial"
	EventToolCallCompleted EventType = "tool.call_completed"
	EventToolCallFailed    EventType = "tool.call_failed"

	// Handoff and guardrail events.
	EventHandoff            EventType = "handoff"
	EventGuardrailTriggered EventType = "guardrail.triggered"

	// Orchestration graph events.
	EventGraphStepStarted  EventType = "graph.step_started"
	EventGraphStepFinished EventType = "graph.step_finished"
	EventGraphInterrupted  EventType = "graph.interrupted"
	EventGraphResumed      EventType = "graph.resumed"
)

// Event represents a hook event with context and payload. Exactly the
// fields relevant to Type are populated.
type Event struct {
	// Type is the event category.
	Type EventType `json:"type"`

	// RunID identifies the agent run or graph execution this event
	// belongs to.
	RunID string `json:"run_id,omitempty"`

	// AgentName identifies the agent that produced this event, for
	// run-lifecycle and tool events.
	AgentName string `json:"agent_name,omitempty"`

	// Timestamp when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Iteration is the agent loop iteration this event occurred in.
	Iteration int `json:"iteration,omitempty"`

	// Text is an output token or final-answer text delta.
	Text string `json:"text,omitempty"`

	// Thinking is a thinking-trace text delta.
	Thinking string `json:"thinking,omitempty"`

	// ToolName and ToolCallID identify a tool dispatch event.
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`

	// HandoffFrom and HandoffTo name the source and destination agents
	// of a handoff event.
	HandoffFrom string `json:"handoff_from,omitempty"`
	HandoffTo   string `json:"handoff_to,omitempty"`

	// GuardrailName and GuardrailMessage describe a triggered guardrail.
	GuardrailName    string `json:"guardrail_name,omitempty"`
	GuardrailMessage string `json:"guardrail_message,omitempty"`

	// StepID and StepKind identify an orchestration graph step event.
	StepID   string `json:"step_id,omitempty"`
	StepKind string `json:"step_kind,omitempty"`

	// Context holds additional event-specific data.
	Context map[string]any `json:"context,omitempty"`

	// Error if this is an error event.
	Error    error  `json:"-"`
	ErrorMsg string `json:"error,omitempty"`
}

// Handler is a function that processes hook events.
// Handlers should be fast and non-blocking. Long-running operations
// should be dispatched to goroutines.
type Handler func(ctx context.Context, event *Event) error

// Priority determines the order handlers are called.
type Priority int

const (
	PriorityHighest Priority = 0
	PriorityHigh    Priority = 25
	PriorityNormal  Priority = 50
	PriorityLow     Priority = 75
	PriorityLowest  Priority = 100
)

// Registration represents a registered hook handler.
type Registration struct {
	// ID is a unique identifier for this registration
	ID string

	// EventKey is the event type this handler listens for
	EventKey string

	// Handler is the function to call
	Handler Handler

	// Priority determines call order (lower = earlier)
	Priority Priority

	// Name is a human-readable name for debugging
	Name string

	// Source identifies where this handler came from (package, plugin, etc)
	Source string
}

// Filter allows selective event handling.
type Filter struct {
	// EventTypes to include (empty = all)
	EventTypes []EventType

	// AgentNames to include (empty = all)
	AgentNames []string

	// RunIDs to include (empty = all)
	RunIDs []string
}

// Matches checks if an event matches the filter.
func (f *Filter) Matches(event *Event) bool {
	if f == nil {
		return true
	}

	if len(f.EventTypes) > 0 {
		found := false
		for _, t := range f.EventTypes {
			if t == event.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.AgentNames) > 0 {
		found := false
		for _, n := range f.AgentNames {
			if n == event.AgentName {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.RunIDs) > 0 {
		found := false
		for _, id := range f.RunIDs {
			if id == event.RunID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// NewEvent creates a new event with timestamp set.
func NewEvent(eventType EventType, runID string) *Event {
	return &Event{
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now(),
		Context:   make(map[string]any),
	}
}

// WithAgent sets the agent name on the event.
func (e *Event) WithAgent(agentName string) *Event {
	e.AgentName = agentName
	return e
}

// WithTool sets tool call identifiers on the event.
func (e *Event) WithTool(toolName, toolCallID string) *Event {
	e.ToolName = toolName
	e.ToolCallID = toolCallID
	return e
}

// WithContext adds context data to the event.
func (e *Event) WithContext(key string, value any) *Event {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithError sets the error on the event.
func (e *Event) WithError(err error) *Event {
	e.Error = err
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}
