package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/swarm/internal/handoff"
	"github.com/haasonsaas/swarm/internal/value"
)

// StepObserver receives notifications around every step execution, letting a
// caller layer tracing, metrics, or hook dispatch on top of the engine
// without the engine itself depending on any of them. A nil StepObserver
// (the default) is a no-op.
type StepObserver interface {
	StepStarted(ctx context.Context, runID, stepID string, kind Kind)
	StepFinished(ctx context.Context, runID, stepID string, kind Kind, dur time.Duration, err error)
}

// dagConcurrency bounds how many DAG/Parallel children run at once per
// stage, matching the agent loop's default tool-dispatch concurrency.
const dagConcurrency = 5

// OutcomeKind tags a Run/Resume result.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeInterrupted
)

// Outcome is the result of one Run or Resume call.
type Outcome struct {
	Kind      OutcomeKind
	Output    string
	Interrupt *InterruptHandle
}

// InterruptHandle is the single-use capability returned when a workflow
// pauses at a HumanApproval or Interrupt step.
type InterruptHandle struct {
	ThreadID     string
	WorkflowID   string
	InterruptID  string
	CheckpointID string
	Checkpoint   CheckpointState
	Reason       string
}

type pendingInterrupt struct {
	interruptID  string
	checkpointID string
}

// Engine runs a compiled Graph: single-threaded cooperative at the graph
// level, with Parallel and DAG steps introducing bounded concurrency
// internally.
type Engine struct {
	graph    *Graph
	store    CheckpointStore
	policy   CheckpointPolicy
	observer StepObserver

	mu      sync.Mutex
	pending map[string]pendingInterrupt
}

// NewEngine builds an Engine over a compiled graph. A nil store defaults to
// an in-memory one.
func NewEngine(g *Graph, store CheckpointStore, policy CheckpointPolicy) *Engine {
	if store == nil {
		store = NewInMemoryCheckpointStore()
	}
	return &Engine{graph: g, store: store, policy: policy, pending: make(map[string]pendingInterrupt)}
}

// SetObserver attaches o to the engine; every subsequent step execution
// reports through it. Pass nil to detach.
func (e *Engine) SetObserver(o StepObserver) {
	e.observer = o
}

type mapChannelView struct{ m *value.OrderedMap }

func (v mapChannelView) Get(channel string) (value.Value, bool) {
	if v.m == nil {
		return value.Value{}, false
	}
	return v.m.Get(channel)
}

// runState is the mutable context threaded through one Run/Resume call: the
// channel-value map, the replay trace (pathKey -> recorded leaf output),
// and, on a resume, the single frontier step being unpaused.
type runState struct {
	mu        sync.Mutex
	runID     string
	channels  *value.OrderedMap
	trace     map[string]string
	stepIndex int

	resumeTarget  *string
	resumePayload value.Value
}

func (rs *runState) view() ChannelView {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return mapChannelView{m: rs.channels}
}

func (rs *runState) lookupTrace(pathKey string) (string, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out, ok := rs.trace[pathKey]
	return out, ok
}

func (rs *runState) recordTrace(pathKey, output string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.trace[pathKey] = output
	rs.stepIndex++
}

func (rs *runState) snapshotTrace() map[string]string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make(map[string]string, len(rs.trace))
	for k, v := range rs.trace {
		out[k] = v
	}
	return out
}

func (rs *runState) snapshotStepIndex() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.stepIndex
}

// interruptSignal bubbles up through execStep when a HumanApproval or
// Interrupt step pauses the workflow. Path is the full dotted frontier from
// root to the paused step; IntermediateOutput is the value that was flowing
// into it.
type interruptSignal struct {
	Reason             string
	Path               []string
	IntermediateOutput string
}

// Run executes the graph from its root with input, returning either a
// completed Outcome or an Outcome carrying a resumable InterruptHandle.
func (e *Engine) Run(ctx context.Context, threadID, workflowID, input string) (Outcome, error) {
	rs := &runState{runID: threadID, channels: value.NewOrderedMap(), trace: map[string]string{}}
	return e.run(ctx, threadID, workflowID, input, rs)
}

// Resume consumes handle (a single-use capability) and replays the graph
// from its recorded frontier, substituting payload at the interrupt point.
func (e *Engine) Resume(ctx context.Context, handle InterruptHandle, payload value.Value) (Outcome, error) {
	e.mu.Lock()
	pending, ok := e.pending[handle.ThreadID]
	e.mu.Unlock()
	if !ok {
		return Outcome{}, &NoInterruptToResume{ThreadID: handle.ThreadID}
	}
	if pending.interruptID != handle.InterruptID {
		return Outcome{}, &ResumeInterruptMismatch{Expected: pending.interruptID, Got: handle.InterruptID}
	}
	if handle.Checkpoint.EventSchemaVersion != EventSchemaVersion {
		return Outcome{}, &IncompatibleSchemaVersion{Expected: EventSchemaVersion, Got: handle.Checkpoint.EventSchemaVersion}
	}

	e.mu.Lock()
	delete(e.pending, handle.ThreadID)
	e.mu.Unlock()

	cp := handle.Checkpoint
	channels := value.NewOrderedMap()
	if cp.ChannelValues != nil {
		channels = cp.ChannelValues.Clone()
	}
	frontierKey := strings.Join(cp.Frontier, "/")
	rs := &runState{
		runID:         handle.ThreadID,
		channels:      channels,
		trace:         cp.trace(),
		stepIndex:     cp.StepIndex,
		resumeTarget:  &frontierKey,
		resumePayload: payload,
	}
	return e.run(ctx, handle.ThreadID, handle.WorkflowID, "", rs)
}

func (e *Engine) run(ctx context.Context, threadID, workflowID, input string, rs *runState) (Outcome, error) {
	rootPath := []string{e.graph.Root.Name}
	out, interrupt, err := e.execStep(ctx, e.graph.Root, input, rootPath, rs)
	if err != nil {
		return Outcome{}, err
	}
	if interrupt != nil {
		return e.pause(ctx, threadID, workflowID, interrupt, rs)
	}
	if e.policy.shouldCheckpoint(rs.snapshotStepIndex()) {
		_ = e.checkpoint(ctx, workflowID, rs, nil)
	}
	return Outcome{Kind: OutcomeCompleted, Output: out}, nil
}

func (e *Engine) checkpoint(ctx context.Context, workflowID string, rs *runState, interrupt *interruptSignal) (CheckpointState, error) {
	cp := CheckpointState{
		WorkflowID:         workflowID,
		RunID:              newRunID(),
		StepIndex:          rs.snapshotStepIndex(),
		ChannelValues:      rs.channels.Clone(),
		EventSchemaVersion: EventSchemaVersion,
	}
	if interrupt != nil {
		cp.Frontier = interrupt.Path
		cp.IntermediateOutput = interrupt.IntermediateOutput
		cp.InterruptionReason = interrupt.Reason
	}
	cp.setTrace(rs.snapshotTrace())
	return cp, e.store.Save(ctx, cp)
}

func (e *Engine) pause(ctx context.Context, threadID, workflowID string, interrupt *interruptSignal, rs *runState) (Outcome, error) {
	cp, err := e.checkpoint(ctx, workflowID, rs, interrupt)
	if err != nil {
		return Outcome{}, err
	}
	interruptID := newRunID()
	checkpointID := newRunID()

	e.mu.Lock()
	e.pending[threadID] = pendingInterrupt{interruptID: interruptID, checkpointID: checkpointID}
	e.mu.Unlock()

	return Outcome{
		Kind: OutcomeInterrupted,
		Interrupt: &InterruptHandle{
			ThreadID:     threadID,
			WorkflowID:   workflowID,
			InterruptID:  interruptID,
			CheckpointID: checkpointID,
			Checkpoint:   cp,
			Reason:       interrupt.Reason,
		},
	}, nil
}

func childPath(path []string, name string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = name
	return out
}

func (e *Engine) execStep(ctx context.Context, s Step, input string, path []string, rs *runState) (string, *interruptSignal, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	if e.observer != nil {
		stepID := strings.Join(path, "/")
		start := time.Now()
		e.observer.StepStarted(ctx, rs.runID, stepID, s.Kind)
		out, interrupt, err := e.execStepInner(ctx, s, input, path, rs)
		e.observer.StepFinished(ctx, rs.runID, stepID, s.Kind, time.Since(start), err)
		return out, interrupt, err
	}
	return e.execStepInner(ctx, s, input, path, rs)
}

func (e *Engine) execStepInner(ctx context.Context, s Step, input string, path []string, rs *runState) (string, *interruptSignal, error) {
	switch s.Kind {
	case KindSequential:
		cur := input
		for _, child := range s.Sequence {
			out, interrupt, err := e.execStep(ctx, child, cur, childPath(path, child.Name), rs)
			if err != nil {
				return "", nil, err
			}
			if interrupt != nil {
				return "", interrupt, nil
			}
			cur = out
		}
		return cur, nil, nil

	case KindParallel:
		return e.execParallel(ctx, s, input, path, rs)

	case KindDAG:
		return e.execDAG(ctx, s, input, path, rs)

	case KindRouter:
		return e.execRouter(ctx, s, input, path, rs)

	case KindBranch:
		ok, err := s.Predicate(ctx, rs.view(), input)
		if err != nil {
			return "", nil, err
		}
		chosen := s.Else
		if ok {
			chosen = s.Then
		}
		if chosen == nil {
			return input, nil, nil
		}
		return e.execStep(ctx, *chosen, input, childPath(path, chosen.Name), rs)

	case KindRepeatWhile:
		return e.execRepeatWhile(ctx, s, input, path, rs)

	case KindTransform:
		pathKey := strings.Join(path, "/")
		if out, ok := rs.lookupTrace(pathKey); ok {
			return out, nil, nil
		}
		out := input
		if s.TransformFn != nil {
			out = s.TransformFn(input)
		}
		rs.recordTrace(pathKey, out)
		return out, nil, nil

	case KindGuard:
		pathKey := strings.Join(path, "/")
		if out, ok := rs.lookupTrace(pathKey); ok {
			return out, nil, nil
		}
		if s.GuardCheck != nil {
			if err := s.GuardCheck(ctx, rs.view(), input); err != nil {
				return "", nil, err
			}
		}
		rs.recordTrace(pathKey, input)
		return input, nil, nil

	case KindAgentRun:
		pathKey := strings.Join(path, "/")
		if out, ok := rs.lookupTrace(pathKey); ok {
			return out, nil, nil
		}
		if s.Agent == nil {
			return "", nil, fmt.Errorf("graph: agentRun step %q has no agent", s.Name)
		}
		out, err := s.Agent.Run(ctx, input)
		if err != nil {
			return "", nil, err
		}
		rs.recordTrace(pathKey, out)
		return out, nil, nil

	case KindHumanApproval:
		return e.execInterruptible(ctx, s, input, path, rs, s.Name, func(out string, payload value.Value) (string, error) {
			if s.ApprovalHandler != nil {
				return s.ApprovalHandler(ctx, out, payload)
			}
			return out, nil
		})

	case KindInterrupt:
		return e.execInterruptible(ctx, s, input, path, rs, s.InterruptReason, func(out string, payload value.Value) (string, error) {
			if str, ok := payload.AsString(); ok {
				return str, nil
			}
			return out, nil
		})

	default:
		return "", nil, fmt.Errorf("graph: unknown step kind %v", s.Kind)
	}
}

// execInterruptible implements the shared pause/resume mechanics for
// HumanApproval and Interrupt: pause unconditionally unless this call is the
// resume targeting this exact frontier path, in which case resolve produces
// the step's output from the pre-interrupt input and the resume payload.
func (e *Engine) execInterruptible(_ context.Context, _ Step, input string, path []string, rs *runState, reason string, resolve func(output string, payload value.Value) (string, error)) (string, *interruptSignal, error) {
	pathKey := strings.Join(path, "/")
	if out, ok := rs.lookupTrace(pathKey); ok {
		return out, nil, nil
	}
	if rs.resumeTarget != nil && *rs.resumeTarget == pathKey {
		out, err := resolve(input, rs.resumePayload)
		if err != nil {
			return "", nil, err
		}
		rs.recordTrace(pathKey, out)
		return out, nil, nil
	}
	return "", &interruptSignal{
		Reason:             reason,
		Path:               append([]string(nil), path...),
		IntermediateOutput: input,
	}, nil
}

func (e *Engine) execRouter(ctx context.Context, s Step, input string, path []string, rs *runState) (string, *interruptSignal, error) {
	names := make([]string, 0, len(s.Routes))
	for name := range s.Routes {
		names = append(names, name)
	}
	sort.Strings(names)

	dec, selectErr := s.RouterStrategy.SelectRoute(ctx, input, names)

	var chosen *Step
	if selectErr == nil {
		if route, ok := s.Routes[dec.SelectedAgentName]; ok {
			chosen = &route
		}
	}
	if chosen == nil {
		if s.Fallback != nil {
			chosen = s.Fallback
		} else if selectErr != nil {
			return "", nil, selectErr
		} else {
			return "", nil, &handoff.UnknownRoute{AgentName: dec.SelectedAgentName}
		}
	}
	return e.execStep(ctx, *chosen, input, childPath(path, chosen.Name), rs)
}

func (e *Engine) execRepeatWhile(ctx context.Context, s Step, input string, path []string, rs *runState) (string, *interruptSignal, error) {
	if s.Body == nil {
		return input, nil, nil
	}
	cur := input
	for i := 0; i < s.MaxIterations; i++ {
		cont, err := s.Condition(ctx, rs.view(), cur)
		if err != nil {
			return "", nil, err
		}
		if !cont {
			break
		}
		iterPath := childPath(path, fmt.Sprintf("%s#%d", s.Body.Name, i))
		out, interrupt, err := e.execStep(ctx, *s.Body, cur, iterPath, rs)
		if err != nil {
			return "", nil, err
		}
		if interrupt != nil {
			return "", interrupt, nil
		}
		cur = out
	}
	return cur, nil, nil
}

func (e *Engine) execParallel(ctx context.Context, s Step, input string, path []string, rs *runState) (string, *interruptSignal, error) {
	if len(s.ParallelItems) == 0 {
		return input, nil, nil
	}
	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, dagConcurrency)
	outputs := make([]string, len(s.ParallelItems))
	errs := make([]error, len(s.ParallelItems))

	var (
		wg             sync.WaitGroup
		mu             sync.Mutex
		firstErr       error
		firstInterrupt *interruptSignal
	)

	for i, item := range s.ParallelItems {
		i, item := i, item
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-execCtx.Done():
				return
			}
			defer func() { <-sem }()

			out, interrupt, err := e.execStep(execCtx, item, input, childPath(path, item.Name), rs)

			mu.Lock()
			defer mu.Unlock()
			outputs[i] = out
			errs[i] = err
			if err != nil && s.ErrorHandling == ParallelFailFast && firstErr == nil {
				firstErr = err
				cancel()
			}
			if interrupt != nil && firstInterrupt == nil {
				firstInterrupt = interrupt
				cancel()
			}
		}()
	}
	wg.Wait()

	if firstInterrupt != nil {
		return "", firstInterrupt, nil
	}
	if firstErr != nil {
		return "", nil, firstErr
	}

	switch s.MergeStrategy {
	case MergeFirstSuccess:
		for i, err := range errs {
			if err == nil {
				return outputs[i], nil, nil
			}
		}
		return "", nil, fmt.Errorf("graph: parallel step %q: all items failed", s.Name)
	default:
		return strings.Join(outputs, "\n"), nil, nil
	}
}

func (e *Engine) execDAG(ctx context.Context, s Step, input string, path []string, rs *runState) (string, *interruptSignal, error) {
	if len(s.Nodes) == 0 {
		return input, nil, nil
	}
	byName := make(map[string]DAGNode, len(s.Nodes))
	for _, n := range s.Nodes {
		byName[n.Name] = n
	}
	stages := stageDAG(s.Nodes)

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, dagConcurrency)
	nodeOutputs := make(map[string]string, len(s.Nodes))

	var (
		mu             sync.Mutex
		firstErr       error
		firstInterrupt *interruptSignal
	)

	for _, stage := range stages {
		if firstErr != nil || firstInterrupt != nil {
			break
		}
		var wg sync.WaitGroup
		for _, name := range stage {
			name := name
			node := byName[name]
			wg.Add(1)
			go func() {
				defer wg.Done()
				select {
				case sem <- struct{}{}:
				case <-execCtx.Done():
					return
				}
				defer func() { <-sem }()

				in := input
				if len(node.DependsOn) > 0 {
					mu.Lock()
					parts := make([]string, len(node.DependsOn))
					for i, dep := range node.DependsOn {
						parts[i] = nodeOutputs[dep]
					}
					mu.Unlock()
					in = strings.Join(parts, "\n")
				}

				out, interrupt, err := e.execStep(execCtx, node.Step, in, childPath(path, node.Name), rs)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					return
				}
				if interrupt != nil {
					if firstInterrupt == nil {
						firstInterrupt = interrupt
						cancel()
					}
					return
				}
				nodeOutputs[name] = out
			}()
		}
		wg.Wait()
	}

	if firstInterrupt != nil {
		return "", firstInterrupt, nil
	}
	if firstErr != nil {
		return "", nil, firstErr
	}

	sinks := sinkNodes(s.Nodes)
	parts := make([]string, 0, len(sinks))
	for _, name := range sinks {
		parts = append(parts, nodeOutputs[name])
	}
	return strings.Join(parts, "\n"), nil, nil
}
