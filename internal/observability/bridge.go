package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/swarm/internal/agentloop"
	"github.com/haasonsaas/swarm/internal/graph"
	"github.com/haasonsaas/swarm/internal/hooks"
)

// GraphBridge implements graph.StepObserver, turning every step execution
// into a span, a metric observation, and a hooks.Registry dispatch. It is
// the concrete "hook dispatch layered on top of the observation stream" for
// the orchestration graph engine.
type GraphBridge struct {
	Tracer   *Tracer
	Metrics  *Metrics
	Registry *hooks.Registry

	spansMu sync.Mutex
	spans   map[string]trace.Span
}

// NewGraphBridge builds a GraphBridge. Any of tracer, metrics, or registry
// may be nil to skip that concern.
func NewGraphBridge(tracer *Tracer, metrics *Metrics, registry *hooks.Registry) *GraphBridge {
	return &GraphBridge{Tracer: tracer, Metrics: metrics, Registry: registry, spans: make(map[string]trace.Span)}
}

// StepStarted implements graph.StepObserver.
func (b *GraphBridge) StepStarted(ctx context.Context, runID, stepID string, kind graph.Kind) {
	if b.Tracer != nil {
		_, span := b.Tracer.TraceGraphStep(ctx, runID, stepID, kind.String())
		b.spansMu.Lock()
		b.spans[stepID] = span
		b.spansMu.Unlock()
	}
	if b.Metrics != nil {
		EmitGraphStepStarted(&GraphStepStartedEvent{RunID: runID, StepID: stepID, Kind: kind.String()})
	}
	if b.Registry != nil {
		event := hooks.NewEvent(hooks.EventGraphStepStarted, runID)
		event.StepID = stepID
		event.StepKind = kind.String()
		b.Registry.TriggerAsync(ctx, event)
	}
}

// StepFinished implements graph.StepObserver.
func (b *GraphBridge) StepFinished(ctx context.Context, runID, stepID string, kind graph.Kind, dur time.Duration, err error) {
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}

	if b.Tracer != nil {
		b.spansMu.Lock()
		span, ok := b.spans[stepID]
		delete(b.spans, stepID)
		b.spansMu.Unlock()
		if ok {
			if err != nil {
				b.Tracer.RecordError(span, err)
			}
			span.End()
		}
	}
	if b.Metrics != nil {
		b.Metrics.RecordGraphStep(kind.String(), outcome, dur.Seconds())
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		EmitGraphStepFinished(&GraphStepFinishedEvent{RunID: runID, StepID: stepID, Kind: kind.String(), Outcome: outcome, DurationMs: dur.Milliseconds(), Error: errMsg})
	}
	if b.Registry != nil {
		event := hooks.NewEvent(hooks.EventGraphStepFinished, runID)
		event.StepID = stepID
		event.StepKind = kind.String()
		event.WithError(err)
		b.Registry.TriggerAsync(ctx, event)
	}
}

// BridgeAgentLoopEvents drains events (an agentloop.AgentLoop.Run observation
// channel) until it closes, converting each into a span, a metric
// observation, and a hooks.Registry dispatch. Call it in its own goroutine
// alongside the Run call producing events; it returns once events closes.
func BridgeAgentLoopEvents(ctx context.Context, runID, agentName string, events <-chan agentloop.Event, tracer *Tracer, metrics *Metrics, registry *hooks.Registry) {
	var modelingSpan, dispatchingSpan trace.Span
	var modelingStart, dispatchingStart time.Time

	for ev := range events {
		switch ev.Kind {
		case agentloop.EventIterationStarted:
			if tracer != nil {
				_, modelingSpan = tracer.TraceModeling(ctx, runID, agentName, "", "")
			}
			modelingStart = time.Now()
			if registry != nil {
				registry.TriggerAsync(ctx, hooks.NewEvent(hooks.EventRunIterationStarted, runID).WithAgent(agentName))
			}

		case agentloop.EventIterationCompleted:
			if modelingSpan != nil {
				modelingSpan.End()
				modelingSpan = nil
			}
			if metrics != nil && !modelingStart.IsZero() {
				metrics.RecordLLMRequest("", "", "success", time.Since(modelingStart).Seconds(), 0, 0)
			}
			if registry != nil {
				registry.TriggerAsync(ctx, hooks.NewEvent(hooks.EventRunIterationCompleted, runID).WithAgent(agentName))
			}

		case agentloop.EventToolCallStarted:
			dispatchingStart = time.Now()
			if tracer != nil {
				_, dispatchingSpan = tracer.TraceDispatching(ctx, runID, 1)
			}
			if registry != nil {
				toolName := ""
				callID := ""
				if ev.ToolCall != nil {
					toolName = ev.ToolCall.Name
					callID = ev.ToolCall.ID
				}
				registry.TriggerAsync(ctx, hooks.NewEvent(hooks.EventToolCallStarted, runID).WithAgent(agentName).WithTool(toolName, callID))
			}

		case agentloop.EventToolCallCompleted, agentloop.EventToolCallFailed:
			status := "success"
			eventType := hooks.EventToolCallCompleted
			if ev.Kind == agentloop.EventToolCallFailed {
				status = "error"
				eventType = hooks.EventToolCallFailed
			}
			toolName := ""
			callID := ""
			if ev.ToolCall != nil {
				toolName = ev.ToolCall.Name
				callID = ev.ToolCall.ID
			}
			if dispatchingSpan != nil {
				if ev.Err != nil {
					tracer.RecordError(dispatchingSpan, ev.Err)
				}
				dispatchingSpan.End()
				dispatchingSpan = nil
			}
			if metrics != nil && !dispatchingStart.IsZero() {
				metrics.RecordToolExecution(toolName, status, time.Since(dispatchingStart).Seconds())
			}
			if registry != nil {
				event := hooks.NewEvent(eventType, runID).WithAgent(agentName).WithTool(toolName, callID)
				event.WithError(ev.Err)
				registry.TriggerAsync(ctx, event)
			}

		case agentloop.EventHandoff:
			if registry != nil {
				event := hooks.NewEvent(hooks.EventHandoff, runID)
				event.HandoffFrom = ev.HandoffFrom
				event.HandoffTo = ev.HandoffTo
				registry.TriggerAsync(ctx, event)
			}

		case agentloop.EventGuardrailTriggered:
			if registry != nil {
				event := hooks.NewEvent(hooks.EventGuardrailTriggered, runID).WithAgent(agentName)
				event.GuardrailName = ev.GuardrailName
				event.GuardrailMessage = ev.GuardrailMessage
				registry.TriggerAsync(ctx, event)
			}

		case agentloop.EventCompleted:
			if metrics != nil {
				metrics.RecordRunAttempt("success")
			}
			if registry != nil {
				registry.TriggerAsync(ctx, hooks.NewEvent(hooks.EventRunCompleted, runID).WithAgent(agentName))
			}

		case agentloop.EventFailed:
			if metrics != nil {
				metrics.RecordRunAttempt("failed")
				metrics.RecordError("agentloop", "run_failed")
			}
			if registry != nil {
				event := hooks.NewEvent(hooks.EventRunFailed, runID).WithAgent(agentName)
				event.WithError(ev.Err)
				registry.TriggerAsync(ctx, event)
			}
		}
	}
}
