package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeverPolicyPropagatesInterruption(t *testing.T) {
	primary := &stubTarget{id: "p", interrupted: true}
	_, _, err := NeverPolicy().Resolve(context.Background(), primary, nil, "in")
	require.Error(t, err)
	var interrupted *SubAgentInterrupted
	require.ErrorAs(t, err, &interrupted)
}

func TestNeverPolicyRunsAvailablePrimary(t *testing.T) {
	primary := &stubTarget{id: "p", output: "ok"}
	out, decision, err := NeverPolicy().Resolve(context.Background(), primary, nil, "in")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "primary", decision)
}

func TestFallbackPolicyRunsFallbackWhenInterrupted(t *testing.T) {
	primary := &stubTarget{id: "p", interrupted: true}
	fallback := &stubTarget{id: "f", output: "fb"}
	out, decision, err := FallbackPolicy().Resolve(context.Background(), primary, fallback, "in")
	require.NoError(t, err)
	assert.Equal(t, "fb", out)
	assert.Equal(t, "fallback", decision)
	assert.Equal(t, 0, primary.calls)
}

func TestTimeoutThenFallbackRunsPrimaryWhenAvailable(t *testing.T) {
	primary := &stubTarget{id: "p", output: "ok"}
	fallback := &stubTarget{id: "f", output: "fb"}
	policy := TimeoutThenFallbackPolicy(50*time.Millisecond, 5*time.Millisecond)
	out, decision, err := policy.Resolve(context.Background(), primary, fallback, "in")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "primary", decision)
}

func TestTimeoutThenFallbackFallsBackAfterDeadline(t *testing.T) {
	primary := &stubTarget{id: "p", interrupted: true}
	fallback := &stubTarget{id: "f", output: "fb"}
	policy := TimeoutThenFallbackPolicy(20*time.Millisecond, 5*time.Millisecond)
	out, decision, err := policy.Resolve(context.Background(), primary, fallback, "in")
	require.NoError(t, err)
	assert.Equal(t, "fb", out)
	assert.Equal(t, "fallback", decision)
}

func TestParallelRacePrefersFallbackWhenPrimaryStaysInterrupted(t *testing.T) {
	primary := &stubTarget{id: "p", interrupted: true}
	fallback := &stubTarget{id: "f", output: "fb"}
	policy := ParallelRacePolicy(20*time.Millisecond, 5*time.Millisecond)
	out, decision, err := policy.Resolve(context.Background(), primary, fallback, "in")
	require.NoError(t, err)
	assert.Equal(t, "fb", out)
	assert.Equal(t, "fallback", decision)
}

func TestParallelRaceUsesPrimaryWhenItBecomesAvailableFirst(t *testing.T) {
	primary := &stubTarget{id: "p", output: "ok"}
	fallback := &stubTarget{id: "f", output: "fb"}
	policy := ParallelRacePolicy(50*time.Millisecond, 5*time.Millisecond)
	out, decision, err := policy.Resolve(context.Background(), primary, fallback, "in")
	require.NoError(t, err)
	assert.Contains(t, []string{"ok", "fb"}, out)
	assert.Contains(t, []string{"primary", "fallback"}, decision)
}
