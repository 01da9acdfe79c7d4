// Package guardrail runs ordered validators over agent input, output, and
// tool calls/results, short-circuiting the surrounding flow on a tripwire.
//
// Grounded on internal/tools/policy's resolver pattern (ordered, named
// checks evaluated against a target) and internal/agent/tool_result_guard.go
// (post-hoc validation of tool output before it re-enters the conversation).
package guardrail

import (
	"context"
	"fmt"
)

// Phase identifies which of the four guardrail kinds is running.
type Phase string

const (
	PhaseInput      Phase = "input"
	PhaseOutput     Phase = "output"
	PhaseToolInput  Phase = "tool_input"
	PhaseToolOutput Phase = "tool_output"
)

// Outcome tags a GuardrailResult's disposition.
type Outcome int

const (
	Passed Outcome = iota
	Failed
	Tripwire
)

// Result is what a single Guardrail returns.
type Result struct {
	Outcome Outcome
	Message string
	Info    map[string]any
}

func PassedResult() Result { return Result{Outcome: Passed} }

func FailedResult(message string) Result { return Result{Outcome: Failed, Message: message} }

func TripwireResult(message string, info map[string]any) Result {
	return Result{Outcome: Tripwire, Message: message, Info: info}
}

// Guardrail inspects a target value (input text, output text, tool call
// arguments, or tool result) and returns a Result.
type Guardrail interface {
	Name() string
	Check(ctx context.Context, phase Phase, target any) (Result, error)
}

// Func adapts a plain function into a Guardrail.
type Func struct {
	FName string
	Fn    func(ctx context.Context, phase Phase, target any) (Result, error)
}

func (f Func) Name() string { return f.FName }

func (f Func) Check(ctx context.Context, phase Phase, target any) (Result, error) {
	return f.Fn(ctx, phase, target)
}

// TripwireError is the typed, terminal error surfaced when a guardrail trips.
// It is never recovered locally (spec.md §7 propagation policy).
type TripwireError struct {
	GuardrailName string
	Phase         Phase
	Message       string
	Info          map[string]any
}

func (e *TripwireError) Error() string {
	return fmt.Sprintf("guardrail tripwire: %s (%s): %s", e.GuardrailName, e.Phase, e.Message)
}

// Runner evaluates an ordered list of Guardrails for a given phase.
type Runner struct {
	// Concurrent runs all guardrails for a phase concurrently instead of in
	// declared order; the first tripwire observed (in any order) still wins,
	// but the returned error ensures determinism (lowest index guardrail
	// among the tripped ones, matching "declared order" from spec.md when
	// collisions are possible).
	Concurrent bool
}

// NewRunner returns a Runner evaluating guardrails sequentially.
func NewRunner() *Runner {
	return &Runner{}
}

// Run evaluates guardrails in order (or concurrently if configured) and
// returns the first tripwire as a *TripwireError, or the first Failed result
// as a plain error. A nil error means every guardrail Passed.
func (r *Runner) Run(ctx context.Context, phase Phase, target any, guardrails []Guardrail) error {
	if len(guardrails) == 0 {
		return nil
	}
	if !r.Concurrent {
		for _, g := range guardrails {
			if err := r.runOne(ctx, phase, target, g); err != nil {
				return err
			}
		}
		return nil
	}

	type outcome struct {
		idx int
		err error
	}
	results := make([]outcome, len(guardrails))
	done := make(chan outcome, len(guardrails))
	for i, g := range guardrails {
		go func(idx int, gr Guardrail) {
			done <- outcome{idx: idx, err: r.runOne(ctx, phase, target, gr)}
		}(i, g)
	}
	for range guardrails {
		o := <-done
		results[o.idx] = o
	}
	for _, o := range results {
		if o.err != nil {
			return o.err
		}
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, phase Phase, target any, g Guardrail) error {
	res, err := g.Check(ctx, phase, target)
	if err != nil {
		return fmt.Errorf("guardrail %q: %w", g.Name(), err)
	}
	switch res.Outcome {
	case Passed:
		return nil
	case Failed:
		return fmt.Errorf("guardrail %q failed: %s", g.Name(), res.Message)
	case Tripwire:
		return &TripwireError{GuardrailName: g.Name(), Phase: phase, Message: res.Message, Info: res.Info}
	default:
		return fmt.Errorf("guardrail %q: unknown outcome", g.Name())
	}
}
