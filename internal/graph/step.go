// Package graph compiles declarative orchestration step trees into a
// dataflow graph that runs with checkpointing, interruption, and resume.
package graph

import (
	"context"

	"github.com/haasonsaas/swarm/internal/handoff"
	"github.com/haasonsaas/swarm/internal/value"
)

// EventSchemaVersion tags every checkpoint this engine writes. A resume
// against a checkpoint written under a different version is refused.
const EventSchemaVersion = "hsw.v1"

// ChannelView is read-only access to the current run's channel values,
// handed to predicates, guards, and approval handlers.
type ChannelView interface {
	Get(channel string) (value.Value, bool)
}

// PredicateFunc decides a Branch or RepeatWhile condition.
type PredicateFunc func(ctx context.Context, channels ChannelView, input string) (bool, error)

// TransformFunc is a pure string-to-string step body.
type TransformFunc func(input string) string

// GuardFunc inspects the current input/channels and either passes (nil) or
// fails the step with a terminal error.
type GuardFunc func(ctx context.Context, channels ChannelView, input string) error

// ApprovalFunc resolves a HumanApproval step once its resume payload
// arrives. output is the value flowing into the step at the moment it
// interrupted; payload is whatever the resumer supplied. A nil
// ApprovalFunc passes output through unchanged, treating the mere act of
// resuming as approval.
type ApprovalFunc func(ctx context.Context, output string, payload value.Value) (string, error)

// AgentRunner is anything an AgentRun step can drive to produce output from
// input. Any handoff.Target satisfies it.
type AgentRunner interface {
	Run(ctx context.Context, input string) (string, error)
}

// Kind tags the variant held by a Step.
type Kind int

const (
	KindSequential Kind = iota
	KindParallel
	KindDAG
	KindRouter
	KindBranch
	KindRepeatWhile
	KindTransform
	KindGuard
	KindHumanApproval
	KindInterrupt
	KindAgentRun
)

func (k Kind) String() string {
	switch k {
	case KindSequential:
		return "sequential"
	case KindParallel:
		return "parallel"
	case KindDAG:
		return "dag"
	case KindRouter:
		return "router"
	case KindBranch:
		return "branch"
	case KindRepeatWhile:
		return "repeatWhile"
	case KindTransform:
		return "transform"
	case KindGuard:
		return "guard"
	case KindHumanApproval:
		return "humanApproval"
	case KindInterrupt:
		return "interrupt"
	case KindAgentRun:
		return "agentRun"
	default:
		return "unknown"
	}
}

// ParallelErrorHandling governs how a Parallel step reacts to a failing
// item.
type ParallelErrorHandling int

const (
	ParallelFailFast ParallelErrorHandling = iota
	ParallelContinueOnError
)

// MergeStrategy governs how a Parallel step combines its items' outputs.
type MergeStrategy int

const (
	MergeConcat MergeStrategy = iota
	MergeFirstSuccess
)

// DAGNode is one node of a DAG step: a named sub-step plus the names of
// nodes it depends on.
type DAGNode struct {
	Name      string
	Step      Step
	DependsOn []string
}

// Step is the closed, eleven-shape tagged union every orchestration is
// built from. Name identifies the step within its enclosing scope for
// checkpoint frontiers and, for DAG nodes, for dependency references.
// Exactly the fields relevant to Kind are populated; the rest are zero.
type Step struct {
	Name string
	Kind Kind

	// Sequential
	Sequence []Step

	// Parallel
	ParallelItems []Step
	ErrorHandling ParallelErrorHandling
	MergeStrategy MergeStrategy

	// DAG
	Nodes []DAGNode

	// Router
	RouterStrategy handoff.Strategy
	Routes         map[string]Step
	Fallback       *Step

	// Branch
	Predicate PredicateFunc
	Then      *Step
	Else      *Step

	// RepeatWhile
	Body          *Step
	Condition     PredicateFunc
	MaxIterations int

	// Transform
	TransformFn TransformFunc

	// Guard
	GuardCheck GuardFunc

	// HumanApproval
	ApprovalHandler ApprovalFunc

	// Interrupt
	InterruptReason string

	// AgentRun
	Agent AgentRunner
}

// Sequential chains steps, feeding each step's output as the next step's
// input.
func Sequential(name string, steps ...Step) Step {
	return Step{Name: name, Kind: KindSequential, Sequence: steps}
}

// Parallel fans the same input out to every item and merges their outputs.
func Parallel(name string, errorHandling ParallelErrorHandling, merge MergeStrategy, items ...Step) Step {
	return Step{Name: name, Kind: KindParallel, ParallelItems: items, ErrorHandling: errorHandling, MergeStrategy: merge}
}

// DAG runs nodes in dependency order with bounded concurrency per stage.
func DAG(name string, nodes ...DAGNode) Step {
	return Step{Name: name, Kind: KindDAG, Nodes: nodes}
}

// Router dispatches to whichever of routes a strategy selects, falling back
// to fallback if the selection is unregistered or unavailable.
func Router(name string, strategy handoff.Strategy, routes map[string]Step, fallback *Step) Step {
	return Step{Name: name, Kind: KindRouter, RouterStrategy: strategy, Routes: routes, Fallback: fallback}
}

// Branch evaluates predicate and runs then or els accordingly.
func Branch(name string, predicate PredicateFunc, then Step, els *Step) Step {
	return Step{Name: name, Kind: KindBranch, Predicate: predicate, Then: &then, Else: els}
}

// RepeatWhile runs body while condition holds, up to maxIterations times.
func RepeatWhile(name string, body Step, condition PredicateFunc, maxIterations int) Step {
	return Step{Name: name, Kind: KindRepeatWhile, Body: &body, Condition: condition, MaxIterations: maxIterations}
}

// Transform applies a pure string function to the input.
func Transform(name string, fn TransformFunc) Step {
	return Step{Name: name, Kind: KindTransform, TransformFn: fn}
}

// Guard runs check and fails the step on a non-nil error; otherwise the
// input passes through unchanged.
func Guard(name string, check GuardFunc) Step {
	return Step{Name: name, Kind: KindGuard, GuardCheck: check}
}

// HumanApproval always interrupts the workflow. On resume, handler (or a
// passthrough default) produces the step's output from the pre-interrupt
// input and the resume payload.
func HumanApproval(name string, handler ApprovalFunc) Step {
	return Step{Name: name, Kind: KindHumanApproval, ApprovalHandler: handler}
}

// Interrupt always interrupts the workflow for reason. On resume, the
// resume payload becomes the step's output.
func Interrupt(name, reason string) Step {
	return Step{Name: name, Kind: KindInterrupt, InterruptReason: reason}
}

// AgentRun drives agent with the current input.
func AgentRun(name string, agent AgentRunner) Step {
	return Step{Name: name, Kind: KindAgentRun, Agent: agent}
}
