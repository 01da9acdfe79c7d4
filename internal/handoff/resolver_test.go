package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverPrefersExactIDMatch(t *testing.T) {
	r := NewResolver()
	candidates := []Target{
		&stubTarget{id: "billing", name: "Support Desk", typ: "billing"},
		&stubTarget{id: "support", name: "billing", typ: "general"},
	}
	target, ok := r.Resolve(candidates, "billing")
	assert.True(t, ok)
	assert.Equal(t, "billing", target.ID())
}

func TestResolverFallsBackToNameMatch(t *testing.T) {
	r := NewResolver()
	candidates := []Target{
		&stubTarget{id: "agent-1", name: "Billing Agent", typ: "billing"},
	}
	target, ok := r.Resolve(candidates, "billing agent")
	assert.True(t, ok)
	assert.Equal(t, "agent-1", target.ID())
}

func TestResolverFallsBackToTypeMatch(t *testing.T) {
	r := NewResolver()
	candidates := []Target{
		&stubTarget{id: "agent-1", name: "Nova", typ: "billing"},
	}
	target, ok := r.Resolve(candidates, "billing")
	assert.True(t, ok)
	assert.Equal(t, "agent-1", target.ID())
}

func TestResolverFallsBackToSubstringMatch(t *testing.T) {
	r := NewResolver()
	candidates := []Target{
		&stubTarget{id: "agent-1", name: "Billing Support Agent", typ: "billing"},
	}
	target, ok := r.Resolve(candidates, "support")
	assert.True(t, ok)
	assert.Equal(t, "agent-1", target.ID())
}

func TestResolverAmbiguityResolvesToFirstInOrder(t *testing.T) {
	r := NewResolver()
	candidates := []Target{
		&stubTarget{id: "agent-1", name: "Nova", typ: "billing"},
		&stubTarget{id: "agent-2", name: "Atlas", typ: "billing"},
	}
	target, ok := r.Resolve(candidates, "billing")
	assert.True(t, ok)
	assert.Equal(t, "agent-1", target.ID())
}

func TestResolverReturnsFalseWhenNothingMatches(t *testing.T) {
	r := NewResolver()
	candidates := []Target{
		&stubTarget{id: "agent-1", name: "Nova", typ: "billing"},
	}
	_, ok := r.Resolve(candidates, "unrelated")
	assert.False(t, ok)
}

func TestResolverReturnsFalseOnEmptyQuery(t *testing.T) {
	r := NewResolver()
	_, ok := r.Resolve([]Target{&stubTarget{id: "a"}}, "")
	assert.False(t, ok)
}
