package hooks

import (
	"errors"
	"testing"
	"time"
)

func TestEventType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		event    EventType
		expected string
	}{
		{"RunStarted", EventRunStarted, "run.started"},
		{"RunOutputToken", EventRunOutputToken, "run.output_token"},
		{"RunThinking", EventRunThinking, "run.thinking"},
		{"RunIterationStarted", EventRunIterationStarted, "run.iteration_started"},
		{"RunIterationCompleted", EventRunIterationCompleted, "run.iteration_completed"},
		{"RunCompleted", EventRunCompleted, "run.completed"},
		{"RunFailed", EventRunFailed, "run.failed"},
		{"ToolCallStarted", EventToolCallStarted, "tool.call_started"},
		{"ToolCallPartial", EventToolCallPartial, "tool.call_partial"},
		{"ToolCallCompleted", EventToolCallCompleted, "tool.call_completed"},
		{"ToolCallFailed", EventToolCallFailed, "tool.call_failed"},
		{"Handoff", EventHandoff, "handoff"},
		{"GuardrailTriggered", EventGuardrailTriggered, "guardrail.triggered"},
		{"GraphStepStarted", EventGraphStepStarted, "graph.step_started"},
		{"GraphStepFinished", EventGraphStepFinished, "graph.step_finished"},
		{"GraphInterrupted", EventGraphInterrupted, "graph.interrupted"},
		{"GraphResumed", EventGraphResumed, "graph.resumed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.event) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.event)
			}
		})
	}
}

func TestPriority_Constants(t *testing.T) {
	tests := []struct {
		name     string
		priority Priority
		expected Priority
	}{
		{"Highest", PriorityHighest, 0},
		{"High", PriorityHigh, 25},
		{"Normal", PriorityNormal, 50},
		{"Low", PriorityLow, 75},
		{"Lowest", PriorityLowest, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.priority != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, tt.priority)
			}
		})
	}

	// Verify ordering: Highest < High < Normal < Low < Lowest
	if !(PriorityHighest < PriorityHigh && PriorityHigh < PriorityNormal &&
		PriorityNormal < PriorityLow && PriorityLow < PriorityLowest) {
		t.Error("priority constants are not in proper order")
	}
}

func TestNewEvent(t *testing.T) {
	eventType := EventRunStarted
	runID := "run-123"

	event := NewEvent(eventType, runID)

	if event.Type != eventType {
		t.Errorf("expected type %s, got %s", eventType, event.Type)
	}
	if event.RunID != runID {
		t.Errorf("expected run ID %s, got %s", runID, event.RunID)
	}
	if event.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
	if event.Context == nil {
		t.Error("expected non-nil context map")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
}

func TestEvent_WithAgent(t *testing.T) {
	event := NewEvent(EventRunStarted, "run-1")

	result := event.WithAgent("triage")

	if result != event {
		t.Error("expected same event instance for chaining")
	}
	if event.AgentName != "triage" {
		t.Errorf("expected agent name 'triage', got %s", event.AgentName)
	}
}

func TestEvent_WithTool(t *testing.T) {
	event := NewEvent(EventToolCallStarted, "run-1")

	result := event.WithTool("web_search", "call-456")

	if result != event {
		t.Error("expected same event instance for chaining")
	}
	if event.ToolName != "web_search" {
		t.Errorf("expected tool name 'web_search', got %s", event.ToolName)
	}
	if event.ToolCallID != "call-456" {
		t.Errorf("expected tool call ID 'call-456', got %s", event.ToolCallID)
	}
}

func TestEvent_WithContext(t *testing.T) {
	event := NewEvent(EventRunStarted, "run-1")

	event.WithContext("key1", "value1")
	if event.Context["key1"] != "value1" {
		t.Error("expected key1 to be set")
	}

	event.WithContext("key2", 42)
	if event.Context["key2"] != 42 {
		t.Error("expected key2 to be set")
	}

	if len(event.Context) < 2 {
		t.Errorf("expected at least 2 context entries, got %d", len(event.Context))
	}
}

func TestEvent_WithContext_NilContext(t *testing.T) {
	event := &Event{
		Type:    EventRunStarted,
		Context: nil,
	}

	event.WithContext("key", "value")

	if event.Context == nil {
		t.Error("expected context to be initialized")
	}
	if event.Context["key"] != "value" {
		t.Error("expected key to be set")
	}
}

func TestEvent_WithError(t *testing.T) {
	event := NewEvent(EventRunFailed, "run-1")
	err := errors.New("something went wrong")

	result := event.WithError(err)

	if result != event {
		t.Error("expected same event instance for chaining")
	}
	if event.Error != err {
		t.Error("expected error to be set")
	}
	if event.ErrorMsg != "something went wrong" {
		t.Errorf("expected error msg 'something went wrong', got %s", event.ErrorMsg)
	}
}

func TestEvent_WithError_Nil(t *testing.T) {
	event := NewEvent(EventRunFailed, "run-1")

	event.WithError(nil)

	if event.Error != nil {
		t.Error("expected nil error")
	}
	if event.ErrorMsg != "" {
		t.Error("expected empty error message")
	}
}

func TestEvent_ChainedBuilders(t *testing.T) {
	err := errors.New("test error")

	event := NewEvent(EventRunFailed, "run-1").
		WithAgent("triage").
		WithTool("web_search", "call-1").
		WithContext("retry_count", 3).
		WithContext("model", "claude-3").
		WithError(err)

	if event.Type != EventRunFailed {
		t.Error("type mismatch")
	}
	if event.RunID != "run-1" {
		t.Error("run ID mismatch")
	}
	if event.AgentName != "triage" {
		t.Error("agent name mismatch")
	}
	if event.ToolName != "web_search" {
		t.Error("tool name mismatch")
	}
	if event.Context["retry_count"] != 3 {
		t.Error("context retry_count mismatch")
	}
	if event.Context["model"] != "claude-3" {
		t.Error("context model mismatch")
	}
	if event.Error != err {
		t.Error("error mismatch")
	}
}

func TestFilter_Matches_AgentNames(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		event  *Event
		want   bool
	}{
		{
			name: "agent name filter matches",
			filter: &Filter{
				AgentNames: []string{"triage", "billing"},
			},
			event: NewEvent(EventRunStarted, "run-1").WithAgent("triage"),
			want:  true,
		},
		{
			name: "agent name filter does not match",
			filter: &Filter{
				AgentNames: []string{"billing"},
			},
			event: NewEvent(EventRunStarted, "run-1").WithAgent("triage"),
			want:  false,
		},
		{
			name: "empty agent names matches all",
			filter: &Filter{
				AgentNames: []string{},
			},
			event: NewEvent(EventRunStarted, "run-1").WithAgent("triage"),
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.event); got != tt.want {
				t.Errorf("Filter.Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Matches_CombinedFilters(t *testing.T) {
	filter := &Filter{
		EventTypes: []EventType{EventRunStarted, EventRunCompleted},
		AgentNames: []string{"triage"},
		RunIDs:     []string{"run-1"},
	}

	tests := []struct {
		name  string
		event *Event
		want  bool
	}{
		{
			name:  "all filters match",
			event: NewEvent(EventRunStarted, "run-1").WithAgent("triage"),
			want:  true,
		},
		{
			name:  "event type does not match",
			event: NewEvent(EventRunFailed, "run-1").WithAgent("triage"),
			want:  false,
		},
		{
			name:  "agent name does not match",
			event: NewEvent(EventRunStarted, "run-1").WithAgent("billing"),
			want:  false,
		},
		{
			name:  "run ID does not match",
			event: NewEvent(EventRunStarted, "run-2").WithAgent("triage"),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.Matches(tt.event); got != tt.want {
				t.Errorf("Filter.Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistration_Fields(t *testing.T) {
	reg := &Registration{
		ID:       "reg-123",
		EventKey: "run.started",
		Priority: PriorityHigh,
		Name:     "TestHandler",
		Source:   "test-plugin",
	}

	if reg.ID != "reg-123" {
		t.Error("ID mismatch")
	}
	if reg.EventKey != "run.started" {
		t.Error("EventKey mismatch")
	}
	if reg.Priority != PriorityHigh {
		t.Error("Priority mismatch")
	}
	if reg.Name != "TestHandler" {
		t.Error("Name mismatch")
	}
	if reg.Source != "test-plugin" {
		t.Error("Source mismatch")
	}
}
