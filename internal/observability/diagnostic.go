// Package observability provides diagnostic event types and emission.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// DiagnosticRunState represents the state of an agent/graph run.
type DiagnosticRunState string

const (
	RunStateIdle       DiagnosticRunState = "idle"
	RunStateRunning    DiagnosticRunState = "running"
	RunStateInterrupted DiagnosticRunState = "interrupted"
)

// DiagnosticEventType identifies the type of diagnostic event.
type DiagnosticEventType string

const (
	EventTypeModelUsage          DiagnosticEventType = "model.usage"
	EventTypeToolDispatched      DiagnosticEventType = "tool.dispatched"
	EventTypeGraphStepStarted    DiagnosticEventType = "graph.step.started"
	EventTypeGraphStepFinished   DiagnosticEventType = "graph.step.finished"
	EventTypeRunState            DiagnosticEventType = "run.state"
	EventTypeRunStuck            DiagnosticEventType = "run.stuck"
	EventTypeRunAttempt          DiagnosticEventType = "run.attempt"
	EventTypeDiagnosticHeartbeat DiagnosticEventType = "diagnostic.heartbeat"
)

// DiagnosticEvent is the base event structure.
type DiagnosticEvent struct {
	Type DiagnosticEventType `json:"type"`
	Seq  int64               `json:"seq"`
	Ts   int64               `json:"ts"`
}

// ModelUsageEvent tracks token usage for a Modeling-phase request.
type ModelUsageEvent struct {
	DiagnosticEvent
	RunID      string          `json:"run_id,omitempty"`
	AgentName  string          `json:"agent_name,omitempty"`
	Provider   string          `json:"provider,omitempty"`
	Model      string          `json:"model,omitempty"`
	Usage      UsageDetails    `json:"usage"`
	Context    *ContextDetails `json:"context,omitempty"`
	CostUSD    float64         `json:"cost_usd,omitempty"`
	DurationMs int64           `json:"duration_ms,omitempty"`
}

// UsageDetails contains token usage breakdown.
type UsageDetails struct {
	Input        int64 `json:"input,omitempty"`
	Output       int64 `json:"output,omitempty"`
	CacheRead    int64 `json:"cache_read,omitempty"`
	CacheWrite   int64 `json:"cache_write,omitempty"`
	PromptTokens int64 `json:"prompt_tokens,omitempty"`
	Total        int64 `json:"total,omitempty"`
}

// ContextDetails contains context window information.
type ContextDetails struct {
	Limit int64 `json:"limit,omitempty"`
	Used  int64 `json:"used,omitempty"`
}

// ToolDispatchedEvent tracks a Dispatching-phase tool call.
type ToolDispatchedEvent struct {
	DiagnosticEvent
	RunID      string `json:"run_id,omitempty"`
	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Outcome    string `json:"outcome"` // "completed", "error", "denied"
}

// GraphStepStartedEvent tracks the start of a single orchestration step.
type GraphStepStartedEvent struct {
	DiagnosticEvent
	RunID  string `json:"run_id,omitempty"`
	StepID string `json:"step_id"`
	Kind   string `json:"kind"`
}

// GraphStepFinishedEvent tracks the completion of a single orchestration step.
type GraphStepFinishedEvent struct {
	DiagnosticEvent
	RunID      string `json:"run_id,omitempty"`
	StepID     string `json:"step_id"`
	Kind       string `json:"kind"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Outcome    string `json:"outcome"` // "completed", "interrupted", "error"
	Error      string `json:"error,omitempty"`
}

// RunStateEvent tracks run state transitions.
type RunStateEvent struct {
	DiagnosticEvent
	RunID     string             `json:"run_id,omitempty"`
	PrevState DiagnosticRunState `json:"prev_state,omitempty"`
	State     DiagnosticRunState `json:"state"`
	Reason    string             `json:"reason,omitempty"`
}

// RunStuckEvent tracks runs that have exceeded an expected iteration budget
// without reaching a terminal state.
type RunStuckEvent struct {
	DiagnosticEvent
	RunID string             `json:"run_id,omitempty"`
	State DiagnosticRunState `json:"state"`
	AgeMs int64              `json:"age_ms"`
}

// RunAttemptEvent tracks run attempts.
type RunAttemptEvent struct {
	DiagnosticEvent
	RunID   string `json:"run_id"`
	Attempt int    `json:"attempt"`
}

// DiagnosticHeartbeatEvent summarizes current in-flight work.
type DiagnosticHeartbeatEvent struct {
	DiagnosticEvent
	ActiveRuns  int `json:"active_runs"`
	GraphSteps  int `json:"graph_steps"`
	Interrupted int `json:"interrupted"`
}

// DiagnosticEventPayload is a union type for all diagnostic events.
type DiagnosticEventPayload interface {
	EventType() DiagnosticEventType
	Sequence() int64
	Timestamp() int64
}

// Implement DiagnosticEventPayload for all event types
func (e *DiagnosticEvent) EventType() DiagnosticEventType { return e.Type }
func (e *DiagnosticEvent) Sequence() int64                { return e.Seq }
func (e *DiagnosticEvent) Timestamp() int64               { return e.Ts }

// DiagnosticListener receives diagnostic events.
type DiagnosticListener func(event DiagnosticEventPayload)

// DiagnosticEmitter manages diagnostic event emission.
type DiagnosticEmitter struct {
	mu        sync.RWMutex
	seq       int64
	enabled   bool
	listeners []DiagnosticListener
}

var globalEmitter = &DiagnosticEmitter{}

// SetDiagnosticsEnabled enables or disables diagnostic events.
func SetDiagnosticsEnabled(enabled bool) {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	globalEmitter.enabled = enabled
}

// IsDiagnosticsEnabled returns whether diagnostics are enabled.
func IsDiagnosticsEnabled() bool {
	globalEmitter.mu.RLock()
	defer globalEmitter.mu.RUnlock()
	return globalEmitter.enabled
}

// OnDiagnosticEvent registers a listener for diagnostic events.
func OnDiagnosticEvent(listener DiagnosticListener) func() {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	globalEmitter.listeners = append(globalEmitter.listeners, listener)

	// Return unsubscribe function
	return func() {
		globalEmitter.mu.Lock()
		defer globalEmitter.mu.Unlock()
		for i, l := range globalEmitter.listeners {
			// Compare function pointers (this is a simplification)
			if &l == &listener {
				globalEmitter.listeners = append(globalEmitter.listeners[:i], globalEmitter.listeners[i+1:]...)
				break
			}
		}
	}
}

// nextSeq returns the next sequence number.
func nextSeq() int64 {
	return atomic.AddInt64(&globalEmitter.seq, 1)
}

// emit sends an event to all listeners.
func emit(event DiagnosticEventPayload) {
	globalEmitter.mu.RLock()
	if !globalEmitter.enabled {
		globalEmitter.mu.RUnlock()
		return
	}
	listeners := make([]DiagnosticListener, len(globalEmitter.listeners))
	copy(listeners, globalEmitter.listeners)
	globalEmitter.mu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					_ = recovered
				}
			}() // Ignore listener panics
			listener(event)
		}()
	}
}

// EmitModelUsage emits a model usage event.
func EmitModelUsage(e *ModelUsageEvent) {
	e.Type = EventTypeModelUsage
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitToolDispatched emits a tool dispatch event.
func EmitToolDispatched(e *ToolDispatchedEvent) {
	e.Type = EventTypeToolDispatched
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitGraphStepStarted emits a graph step start event.
func EmitGraphStepStarted(e *GraphStepStartedEvent) {
	e.Type = EventTypeGraphStepStarted
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitGraphStepFinished emits a graph step completion event.
func EmitGraphStepFinished(e *GraphStepFinishedEvent) {
	e.Type = EventTypeGraphStepFinished
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRunState emits a run state event.
func EmitRunState(e *RunStateEvent) {
	e.Type = EventTypeRunState
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRunStuck emits a run stuck event.
func EmitRunStuck(e *RunStuckEvent) {
	e.Type = EventTypeRunStuck
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRunAttempt emits a run attempt event.
func EmitRunAttempt(e *RunAttemptEvent) {
	e.Type = EventTypeRunAttempt
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitDiagnosticHeartbeat emits a diagnostic heartbeat event.
func EmitDiagnosticHeartbeat(e *DiagnosticHeartbeatEvent) {
	e.Type = EventTypeDiagnosticHeartbeat
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// ResetDiagnosticsForTest resets diagnostic state for testing.
func ResetDiagnosticsForTest() {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	atomic.StoreInt64(&globalEmitter.seq, 0)
	globalEmitter.listeners = nil
}
