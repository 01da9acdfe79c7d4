package agentloop

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/swarm/internal/guardrail"
	"github.com/haasonsaas/swarm/internal/handoff"
	"github.com/haasonsaas/swarm/internal/membrane"
	"github.com/haasonsaas/swarm/internal/provider"
	"github.com/haasonsaas/swarm/internal/registry"
	"github.com/haasonsaas/swarm/internal/value"
)

const eventBufferSize = 64

// AgentLoop runs the Start → Planning → Modeling → Dispatching → Merging →
// Decision state machine for one agent.
type AgentLoop struct {
	provider provider.InferenceProvider
	registry *registry.Registry
	planner  *membrane.Planner
	guards   *guardrail.Runner
	config   AgentConfiguration

	inputGuardrails  []guardrail.Guardrail
	outputGuardrails []guardrail.Guardrail
	approval         ApprovalPolicy
}

// NewAgentLoop constructs an AgentLoop. config is validated immediately;
// an invalid configuration is rejected here rather than at first Run.
func NewAgentLoop(p provider.InferenceProvider, reg *registry.Registry, planner *membrane.Planner, config AgentConfiguration) (*AgentLoop, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = registry.New()
	}
	if planner == nil {
		planner = membrane.NewPlanner(config.MembraneProfile)
	}
	for _, t := range planner.SyntheticTools(reg.List()) {
		if _, exists := reg.Lookup(t.Schema().Name); exists {
			continue
		}
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return &AgentLoop{
		provider: p,
		registry: reg,
		planner:  planner,
		guards:   guardrail.NewRunner(),
		config:   config,
		approval: NeverApprovalPolicy(),
	}, nil
}

// SetApprovalPolicy replaces the Dispatching state's approval gate.
func (l *AgentLoop) SetApprovalPolicy(p ApprovalPolicy) { l.approval = p }

// SetInputGuardrails replaces the guardrails run in the Start state.
func (l *AgentLoop) SetInputGuardrails(g ...guardrail.Guardrail) { l.inputGuardrails = g }

// SetOutputGuardrails replaces the guardrails run over a final completion.
func (l *AgentLoop) SetOutputGuardrails(g ...guardrail.Guardrail) { l.outputGuardrails = g }

// runState carries mutable state threaded through one Run's state machine.
type runState struct {
	iteration int
	messages  []value.MemoryMessage // growing transcript fed to the membrane
	start     time.Time
}

// Run executes the agent loop against the given prior history and new user
// input, returning a channel of observation events. The channel is closed
// after exactly one EventCompleted or EventFailed event.
func (l *AgentLoop) Run(ctx context.Context, history []value.MemoryMessage, userInput string) (<-chan Event, error) {
	if l.provider == nil {
		return nil, &ConfigurationError{Field: "provider", Reason: "must not be nil"}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if l.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, l.config.Timeout)
	}

	events := make(chan Event, eventBufferSize)

	go func() {
		defer close(events)
		if cancel != nil {
			defer cancel()
		}
		l.runLoop(runCtx, history, userInput, events)
	}()

	return events, nil
}

func (l *AgentLoop) runLoop(ctx context.Context, history []value.MemoryMessage, userInput string, events chan<- Event) {
	state := &runState{start: time.Now()}
	state.messages = append(state.messages, history...)

	events <- Event{Kind: EventStarted}

	// Start: validate input via input guardrails.
	if err := l.guards.Run(ctx, guardrail.PhaseInput, userInput, l.inputGuardrails); err != nil {
		l.fail(events, state, err)
		return
	}

	state.messages = append(state.messages, value.NewMemoryMessage(value.RoleUser, userInput))

	if l.config.MaxIterations == 0 {
		l.fail(events, state, &MaxIterationsReached{MaxIterations: 0})
		return
	}

	for {
		select {
		case <-ctx.Done():
			l.fail(events, state, &Cancelled{Cause: ctx.Err()})
			return
		default:
		}

		events <- Event{Kind: EventIterationStarted, Iteration: state.iteration}

		// Planning: membrane produces (prompt, exposedTools).
		catalog := l.registry.List()
		plan := l.planner.SafePlan(catalog, state.messages, userInput)

		// Modeling: provider returns (text, Completed) or (text?, toolCalls, ToolCall).
		resp, err := l.modelingPhase(ctx, plan, events, state)
		if err != nil {
			l.fail(events, state, err)
			return
		}

		if resp.Finish != provider.FinishToolCall || len(resp.ToolCalls) == 0 {
			if err := l.guards.Run(ctx, guardrail.PhaseOutput, resp.Text, l.outputGuardrails); err != nil {
				l.fail(events, state, err)
				return
			}
			l.complete(events, state, resp.Text, nil, nil, resp.Usage)
			return
		}

		// Dispatching.
		results, tripErr := l.dispatchingPhase(ctx, resp.ToolCalls, events)
		if tripErr != nil {
			l.failWithPartial(events, state, resp.ToolCalls, results, tripErr)
			return
		}

		anyFailed := false
		for _, r := range results {
			if r.IsError() {
				anyFailed = true
			}
		}
		if l.config.StopOnToolError && anyFailed {
			var failing value.ToolResult
			for _, r := range results {
				if r.IsError() {
					failing = r
					break
				}
			}
			l.failWithPartial(events, state, resp.ToolCalls, results, &ToolExecutionFailed{ToolName: failing.Name, Message: failing.ErrorMessage})
			return
		}

		// A handoff tool's result is never an ordinary tool result: per
		// spec's non-nested mode the target's output terminates this run
		// as the final answer; nested mode folds it back in like any other
		// tool result and the loop continues.
		if targetID, output, nested, found := l.handoffResult(results); found {
			events <- Event{Kind: EventHandoff, Iteration: state.iteration, HandoffFrom: l.config.Name, HandoffTo: targetID}
			if !nested {
				if err := l.guards.Run(ctx, guardrail.PhaseOutput, output, l.outputGuardrails); err != nil {
					l.failWithPartial(events, state, resp.ToolCalls, results, err)
					return
				}
				l.complete(events, state, output, resp.ToolCalls, results, resp.Usage)
				return
			}
		}

		// Merging: append tool results to the conversation.
		l.mergingPhase(state, resp.ToolCalls, results)

		events <- Event{Kind: EventIterationCompleted, Iteration: state.iteration}

		// Decision.
		state.iteration++
		if state.iteration >= l.config.MaxIterations {
			l.failWithPartial(events, state, resp.ToolCalls, results, &MaxIterationsReached{MaxIterations: l.config.MaxIterations})
			return
		}
	}
}

func (l *AgentLoop) modelingPhase(ctx context.Context, plan membrane.Plan, events chan<- Event, state *runState) (provider.Response, error) {
	system := plan.Prompt
	if l.config.SystemPrompt != "" {
		system = l.config.SystemPrompt + "\n\n" + plan.Prompt
	}
	req := provider.Request{
		System:   system,
		Messages: []value.MemoryMessage{lastUserMessage(state.messages)},
		Tools:    plan.ExposedTools,
		Options:  l.config.toProviderOptions(),
	}

	if !l.config.Streaming {
		return l.provider.Generate(ctx, req)
	}

	deltas, err := l.provider.Stream(ctx, req)
	if err != nil {
		return provider.Response{}, err
	}
	var resp provider.Response
	var text strings.Builder
	for d := range deltas {
		if d.Err != nil {
			return provider.Response{}, d.Err
		}
		if d.TextDelta != "" {
			text.WriteString(d.TextDelta)
			events <- Event{Kind: EventOutputToken, Iteration: state.iteration, Text: d.TextDelta}
		}
		if d.ThinkingDelta != "" {
			events <- Event{Kind: EventThinking, Iteration: state.iteration, Thinking: d.ThinkingDelta}
		}
		if d.ToolCall != nil {
			resp.ToolCalls = append(resp.ToolCalls, *d.ToolCall)
		}
		if d.Finish != provider.FinishUnspecified {
			resp.Finish = d.Finish
		}
		resp.Usage = d.Usage
	}
	resp.Text = text.String()
	return resp, nil
}

func lastUserMessage(messages []value.MemoryMessage) value.MemoryMessage {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == value.RoleUser {
			return messages[i]
		}
	}
	if len(messages) == 0 {
		return value.NewMemoryMessage(value.RoleUser, "")
	}
	return messages[len(messages)-1]
}

// dispatchingPhase applies the approval policy to each call, then executes
// approved calls (concurrently, bounded by MaxConcurrency, if
// ParallelToolCalls is set; otherwise serially in request order), returning
// results in the original request order regardless of completion order.
func (l *AgentLoop) dispatchingPhase(ctx context.Context, calls []value.ToolCall, events chan<- Event) ([]value.ToolResult, error) {
	results := make([]value.ToolResult, len(calls))
	toExecute := make([]int, 0, len(calls))

	for i, call := range calls {
		events <- Event{Kind: EventToolCallStarted, ToolCall: &calls[i]}

		approved, reason := l.approval.evaluate(ctx, call)
		if !approved {
			rejected := value.ToolResult{CallID: call.ID, Name: call.Name, ErrorMessage: "rejected: " + reason}
			results[i] = rejected
			events <- Event{Kind: EventToolCallFailed, ToolCall: &calls[i], ToolResult: &rejected}
			continue
		}
		toExecute = append(toExecute, i)
	}

	if len(toExecute) == 0 {
		return results, nil
	}

	if !l.config.ParallelToolCalls {
		for _, idx := range toExecute {
			res, err := l.invokeOne(ctx, calls[idx], events)
			results[idx] = res
			if err != nil {
				return results, err
			}
		}
		return results, nil
	}

	maxConc := l.config.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 5
	}
	sem := make(chan struct{}, maxConc)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, idx := range toExecute {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := l.invokeOne(ctx, calls[i], events)
			results[i] = res
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(idx)
	}
	wg.Wait()
	return results, firstErr
}

// invokeOne dispatches a single approved call. The returned error is
// non-nil only for a *guardrail.TripwireError, which must terminate the
// run rather than be folded into the tool result.
func (l *AgentLoop) invokeOne(ctx context.Context, call value.ToolCall, events chan<- Event) (value.ToolResult, error) {
	result, err := l.registry.Invoke(ctx, call)
	if err != nil {
		if _, isTripwire := err.(*guardrail.TripwireError); isTripwire {
			return value.ToolResult{CallID: call.ID, Name: call.Name}, err
		}
		result = value.ToolResult{CallID: call.ID, Name: call.Name, ErrorMessage: err.Error()}
	}
	l.planner.RecordToolUse(call.Name)
	if result.IsError() {
		events <- Event{Kind: EventToolCallFailed, ToolCall: &call, ToolResult: &result}
	} else {
		events <- Event{Kind: EventToolCallCompleted, ToolCall: &call, ToolResult: &result}
	}
	return result, nil
}

// handoffResult scans results for a handoff tool's output (handoff.Tool.Execute
// marks its result distinctively), returning the target agent ID, its output,
// and whether the caller should fold the result back in (nested) or treat it
// as this run's final answer. Only the first handoff result in a turn is
// honored; a model that calls more than one handoff tool in a single turn
// gets the first.
func (l *AgentLoop) handoffResult(results []value.ToolResult) (targetID, output string, nested, found bool) {
	for _, r := range results {
		if r.IsError() {
			continue
		}
		targetID, output, nested, found = handoff.IsHandoffResult(r.Output)
		if found {
			return targetID, output, nested, found
		}
	}
	return "", "", false, false
}

func (l *AgentLoop) mergingPhase(state *runState, calls []value.ToolCall, results []value.ToolResult) {
	assistant := value.NewMemoryMessage(value.RoleAssistant, "")
	assistant.ToolCalls = calls
	state.messages = append(state.messages, assistant)

	for _, r := range results {
		content := r.ErrorMessage
		if content == "" {
			if data, err := r.Output.MarshalJSON(); err == nil {
				content = string(data)
			}
		}
		state.messages = append(state.messages, value.NewToolMessage(r.CallID, content))
	}
}

func (l *AgentLoop) complete(events chan<- Event, state *runState, output string, calls []value.ToolCall, results []value.ToolResult, usage value.TokenUsage) {
	result := newAgentResult()
	result.Output = output
	result.ToolCalls = calls
	result.ToolResults = results
	result.IterationCount = state.iteration + 1
	result.Duration = time.Since(state.start)
	result.TokenUsage = &usage
	result.setMetadata("engine", value.Str("agentloop"))
	events <- Event{Kind: EventCompleted, Iteration: state.iteration, Result: &result}
}

func (l *AgentLoop) failWithPartial(events chan<- Event, state *runState, calls []value.ToolCall, results []value.ToolResult, err error) {
	result := newAgentResult()
	result.ToolCalls = calls
	result.ToolResults = results
	result.IterationCount = state.iteration + 1
	result.Duration = time.Since(state.start)
	result.setMetadata("engine", value.Str("agentloop"))
	events <- Event{Kind: EventFailed, Iteration: state.iteration, Result: &result, Err: err}
}

func (l *AgentLoop) fail(events chan<- Event, state *runState, err error) {
	result := newAgentResult()
	result.IterationCount = state.iteration
	result.Duration = time.Since(state.start)
	result.setMetadata("engine", value.Str("agentloop"))
	events <- Event{Kind: EventFailed, Iteration: state.iteration, Result: &result, Err: err}
}
