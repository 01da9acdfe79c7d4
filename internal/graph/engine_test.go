package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/swarm/internal/handoff"
	"github.com/haasonsaas/swarm/internal/value"
)

func TestInterruptAndResume(t *testing.T) {
	root := Sequential("workflow",
		Transform("prep", func(s string) string { return "prep:" + s }),
		HumanApproval("Approve?", nil),
		Transform("finish", func(s string) string { return s + ":done" }),
	)
	g, err := Compile(root)
	require.NoError(t, err)

	store := NewInMemoryCheckpointStore()
	engine := NewEngine(g, store, EveryStepCheckpointPolicy())

	outcome, err := engine.Run(context.Background(), "thread-1", "wf-1", "payload")
	require.NoError(t, err)
	require.Equal(t, OutcomeInterrupted, outcome.Kind)
	require.NotNil(t, outcome.Interrupt)
	assert.Equal(t, "prep:payload", outcome.Interrupt.Checkpoint.IntermediateOutput)
	assert.NotEmpty(t, outcome.Interrupt.InterruptID)
	assert.NotEmpty(t, outcome.Interrupt.CheckpointID)

	resumed, err := engine.Resume(context.Background(), *outcome.Interrupt, value.Str("approved"))
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, resumed.Kind)
	assert.Equal(t, "prep:payload:done", resumed.Output)
}

func TestResumeIsSingleUse(t *testing.T) {
	root := Sequential("workflow", Interrupt("pause", "manual review"))
	g, err := Compile(root)
	require.NoError(t, err)

	engine := NewEngine(g, nil, DisabledCheckpointPolicy())
	outcome, err := engine.Run(context.Background(), "thread-1", "wf-1", "x")
	require.NoError(t, err)
	require.Equal(t, OutcomeInterrupted, outcome.Kind)

	handle := *outcome.Interrupt
	_, err = engine.Resume(context.Background(), handle, value.Str("ok"))
	require.NoError(t, err)

	_, err = engine.Resume(context.Background(), handle, value.Str("ok"))
	require.Error(t, err)
	var noInterrupt *NoInterruptToResume
	require.ErrorAs(t, err, &noInterrupt)
}

func TestResumeRejectsMismatchedInterruptID(t *testing.T) {
	root := Sequential("workflow", Interrupt("pause", "manual review"))
	g, err := Compile(root)
	require.NoError(t, err)

	engine := NewEngine(g, nil, DisabledCheckpointPolicy())
	outcome, err := engine.Run(context.Background(), "thread-1", "wf-1", "x")
	require.NoError(t, err)

	bad := *outcome.Interrupt
	bad.InterruptID = "not-the-real-one"
	_, err = engine.Resume(context.Background(), bad, value.Str("ok"))
	require.Error(t, err)
	var mismatch *ResumeInterruptMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestResumeRejectsIncompatibleSchemaVersion(t *testing.T) {
	root := Sequential("workflow", Interrupt("pause", "manual review"))
	g, err := Compile(root)
	require.NoError(t, err)

	engine := NewEngine(g, nil, DisabledCheckpointPolicy())
	outcome, err := engine.Run(context.Background(), "thread-1", "wf-1", "x")
	require.NoError(t, err)

	bad := *outcome.Interrupt
	bad.Checkpoint.EventSchemaVersion = "hsw.v0"
	_, err = engine.Resume(context.Background(), bad, value.Str("ok"))
	require.Error(t, err)
	var incompatible *IncompatibleSchemaVersion
	require.ErrorAs(t, err, &incompatible)
}

func TestParallelMergeConcat(t *testing.T) {
	root := Parallel("fanout", ParallelFailFast, MergeConcat,
		Transform("x", func(s string) string { return "X:" + s }),
		Transform("y", func(s string) string { return "Y:" + s }),
	)
	g, err := Compile(root)
	require.NoError(t, err)

	engine := NewEngine(g, nil, DisabledCheckpointPolicy())
	outcome, err := engine.Run(context.Background(), "t", "w", "in")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"X:in", "Y:in"}, splitLines(outcome.Output))
}

func TestParallelFailFastPropagatesError(t *testing.T) {
	boom := fmt.Errorf("boom")
	root := Parallel("fanout", ParallelFailFast, MergeConcat,
		AgentRun("ok", runnerFunc(func(ctx context.Context, input string) (string, error) { return "ok", nil })),
		AgentRun("bad", runnerFunc(func(ctx context.Context, input string) (string, error) { return "", boom })),
	)
	g, err := Compile(root)
	require.NoError(t, err)

	engine := NewEngine(g, nil, DisabledCheckpointPolicy())
	_, err = engine.Run(context.Background(), "t", "w", "in")
	require.Error(t, err)
}

func TestBranchSelectsThenOrElse(t *testing.T) {
	positive := Branch("classify",
		func(ctx context.Context, channels ChannelView, input string) (bool, error) { return input == "yes", nil },
		Transform("then", func(string) string { return "went-then" }),
		stepPtr(Transform("else", func(string) string { return "went-else" })),
	)
	g, err := Compile(positive)
	require.NoError(t, err)
	engine := NewEngine(g, nil, DisabledCheckpointPolicy())

	out, err := engine.Run(context.Background(), "t", "w", "yes")
	require.NoError(t, err)
	assert.Equal(t, "went-then", out.Output)

	out, err = engine.Run(context.Background(), "t2", "w2", "no")
	require.NoError(t, err)
	assert.Equal(t, "went-else", out.Output)
}

func TestRepeatWhileStopsAtMaxIterations(t *testing.T) {
	root := RepeatWhile("loop",
		Transform("step", func(s string) string { return s + "x" }),
		func(ctx context.Context, channels ChannelView, input string) (bool, error) { return true, nil },
		3,
	)
	g, err := Compile(root)
	require.NoError(t, err)
	engine := NewEngine(g, nil, DisabledCheckpointPolicy())

	out, err := engine.Run(context.Background(), "t", "w", "")
	require.NoError(t, err)
	assert.Equal(t, "xxx", out.Output)
}

func TestRouterFallsBackToFallbackStep(t *testing.T) {
	root := Router("route", handoff.FixedStrategy{AgentName: "ghost"},
		map[string]Step{"billing": Transform("billing", func(string) string { return "billing-handled" })},
		stepPtr(Transform("fallback", func(string) string { return "fallback-handled" })),
	)
	g, err := Compile(root)
	require.NoError(t, err)
	engine := NewEngine(g, nil, DisabledCheckpointPolicy())

	out, err := engine.Run(context.Background(), "t", "w", "in")
	require.NoError(t, err)
	assert.Equal(t, "fallback-handled", out.Output)
}

func TestGuardFailsStep(t *testing.T) {
	root := Sequential("workflow",
		Guard("check", func(ctx context.Context, channels ChannelView, input string) error {
			if input == "" {
				return fmt.Errorf("empty input")
			}
			return nil
		}),
	)
	g, err := Compile(root)
	require.NoError(t, err)
	engine := NewEngine(g, nil, DisabledCheckpointPolicy())

	_, err = engine.Run(context.Background(), "t", "w", "")
	require.Error(t, err)
}

func stepPtr(s Step) *Step { return &s }

type runnerFunc func(ctx context.Context, input string) (string, error)

func (f runnerFunc) Run(ctx context.Context, input string) (string, error) { return f(ctx, input) }
