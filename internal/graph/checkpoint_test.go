package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/swarm/internal/value"
)

func TestInMemoryCheckpointStoreRoundTrips(t *testing.T) {
	store := NewInMemoryCheckpointStore()
	channels := value.NewOrderedMap()
	channels.Set("x", value.Str("y"))
	cp := CheckpointState{
		WorkflowID:         "wf/with:odd\\chars",
		RunID:              "run-1",
		StepIndex:          2,
		Frontier:           []string{"a", "b"},
		ChannelValues:      channels,
		EventSchemaVersion: EventSchemaVersion,
	}

	require.NoError(t, store.Save(context.Background(), cp))
	loaded, ok, err := store.Load(context.Background(), cp.WorkflowID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cp.WorkflowID, loaded.WorkflowID)
	assert.Equal(t, cp.StepIndex, loaded.StepIndex)
	assert.Equal(t, cp.Frontier, loaded.Frontier)
	v, ok := loaded.ChannelValues.Get("x")
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "y", s)
}

func TestInMemoryCheckpointStoreDelete(t *testing.T) {
	store := NewInMemoryCheckpointStore()
	cp := CheckpointState{WorkflowID: "wf-1", EventSchemaVersion: EventSchemaVersion}
	require.NoError(t, store.Save(context.Background(), cp))
	require.NoError(t, store.Delete(context.Background(), "wf-1"))
	_, ok, err := store.Load(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSanitizeWorkflowIDStripsUnsafeCharacters(t *testing.T) {
	cases := []string{
		"a/b\\c:d",
		"../../etc/passwd",
		"thread..name",
		"",
	}
	for _, c := range cases {
		sanitized := SanitizeWorkflowID(c)
		assert.NotContains(t, sanitized, "/")
		assert.NotContains(t, sanitized, "\\")
		assert.NotContains(t, sanitized, ":")
		assert.NotContains(t, sanitized, "..")
		assert.NotEmpty(t, sanitized)
	}
}

func TestCheckpointCanonicalIsByteIdenticalForEqualState(t *testing.T) {
	channels := value.NewOrderedMap()
	channels.Set("b", value.Int(2))
	channels.Set("a", value.Int(1))
	cp := CheckpointState{
		WorkflowID:         "wf-1",
		RunID:              "run-1",
		StepIndex:          1,
		Frontier:           []string{"x"},
		ChannelValues:      channels,
		EventSchemaVersion: EventSchemaVersion,
	}
	a, err := cp.Canonical()
	require.NoError(t, err)
	b, err := cp.Canonical()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotContains(t, string(a), `\/`)
}

func TestEveryNStepsCheckpointPolicy(t *testing.T) {
	p := EveryNStepsCheckpointPolicy(3)
	assert.False(t, p.shouldCheckpoint(1))
	assert.False(t, p.shouldCheckpoint(2))
	assert.True(t, p.shouldCheckpoint(3))
	assert.True(t, p.shouldCheckpoint(6))
}

func TestDisabledCheckpointPolicyNeverCheckpoints(t *testing.T) {
	p := DisabledCheckpointPolicy()
	assert.False(t, p.shouldCheckpoint(1))
	assert.False(t, p.shouldCheckpoint(100))
}
