package agentloop

import (
	"context"

	"github.com/haasonsaas/swarm/internal/graph"
	"github.com/haasonsaas/swarm/internal/handoff"
	"github.com/haasonsaas/swarm/internal/value"
)

// Runner adapts an AgentLoop to the narrow Run(ctx, input) (string, error)
// shape that both graph.AgentRunner and handoff.Target expect, draining the
// loop's event channel down to its terminal output and surfacing its
// Completed/Failed event as a plain return value. Neither package needs to
// know an AgentLoop, its event stream, or its state machine exists.
type Runner struct {
	loop    *AgentLoop
	id      string
	typ     string
	history []value.MemoryMessage
}

// NewRunner wraps loop, identified by id (handoff resolution's identity
// dimension) and typ (its type-match resolution tier). history, if set, is
// replayed on every Run call ahead of that call's input; a nil history
// means each Run starts the loop fresh, which is the right default for an
// AgentRun step or handoff target that should not carry state between
// invocations.
func NewRunner(loop *AgentLoop, id, typ string, history []value.MemoryMessage) *Runner {
	return &Runner{loop: loop, id: id, typ: typ, history: history}
}

// ID implements handoff.Target.
func (r *Runner) ID() string { return r.id }

// Name implements handoff.Target, using the wrapped loop's configured name.
func (r *Runner) Name() string { return r.loop.config.Name }

// Type implements handoff.Target.
func (r *Runner) Type() string { return r.typ }

// Run implements graph.AgentRunner and handoff.Target: it starts loop
// against r.history plus input, drains every event to completion, and
// returns the run's final output or terminal error.
func (r *Runner) Run(ctx context.Context, input string) (string, error) {
	events, err := r.loop.Run(ctx, r.history, input)
	if err != nil {
		return "", err
	}

	var result *AgentResult
	var runErr error
	for ev := range events {
		switch ev.Kind {
		case EventCompleted:
			result = ev.Result
		case EventFailed:
			result = ev.Result
			runErr = ev.Err
		}
	}

	if runErr != nil {
		return "", runErr
	}
	if result == nil {
		return "", &ConfigurationError{Field: "Run", Reason: "loop closed its event channel without a terminal event"}
	}
	return result.Output, nil
}

var (
	_ graph.AgentRunner = (*Runner)(nil)
	_ handoff.Target    = (*Runner)(nil)
)
