package handoff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorDelegatesToSubAgent(t *testing.T) {
	sup := NewSupervisor("coordinator", NeverPolicy())
	sub := &stubTarget{id: "sub", output: "done"}

	result, err := sup.Delegate(context.Background(), sub, nil, "task")
	require.NoError(t, err)
	assert.Equal(t, "done", result.Output)

	decision, ok := result.Metadata.Get("routing_decision")
	require.True(t, ok)
	s, _ := decision.AsString()
	assert.Equal(t, "primary", s)
}

func TestSupervisorRecordsFallbackDecision(t *testing.T) {
	sup := NewSupervisor("coordinator", FallbackPolicy())
	sub := &stubTarget{id: "sub", interrupted: true}
	fallback := &stubTarget{id: "fb", output: "fallback ran"}

	result, err := sup.Delegate(context.Background(), sub, fallback, "task")
	require.NoError(t, err)
	assert.Equal(t, "fallback ran", result.Output)

	decision, ok := result.Metadata.Get("routing_decision")
	require.True(t, ok)
	s, _ := decision.AsString()
	assert.Equal(t, "fallback", s)
}

func TestSupervisorPropagatesErrorUnderNeverPolicy(t *testing.T) {
	sup := NewSupervisor("coordinator", NeverPolicy())
	sub := &stubTarget{id: "sub", interrupted: true}

	_, err := sup.Delegate(context.Background(), sub, nil, "task")
	require.Error(t, err)
	var interrupted *SubAgentInterrupted
	require.ErrorAs(t, err, &interrupted)
}
