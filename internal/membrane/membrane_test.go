package membrane

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/swarm/internal/value"
)

func toolSchema(name string) value.ToolSchema {
	return value.ToolSchema{Name: name, Description: "does " + name}
}

// nonSyntheticTools filters the four always-exposed synthetic schemas out
// of a Plan's ExposedTools, so assertions below can focus on JIT selection
// over the caller's own catalog.
func nonSyntheticTools(tools []value.ToolSchema) []value.ToolSchema {
	out := make([]value.ToolSchema, 0, len(tools))
	for _, s := range tools {
		if !IsSyntheticTool(s.Name) {
			out = append(out, s)
		}
	}
	return out
}

func TestPlanBelowJITThresholdExposesAll(t *testing.T) {
	p := NewPlanner(Profile{JITMinToolCount: 10, DefaultJITLoadCount: 2, CharBudget: 10000, PointerThresholdBytes: 1000})
	catalog := []value.ToolSchema{toolSchema("b"), toolSchema("a")}
	plan := p.Plan(catalog, nil, "")
	exposed := nonSyntheticTools(plan.ExposedTools)
	require.Len(t, exposed, 2)
	assert.Equal(t, "a", exposed[0].Name)
}

func TestPlanAtJITThresholdLimitsExposure(t *testing.T) {
	p := NewPlanner(Profile{JITMinToolCount: 2, DefaultJITLoadCount: 1, CharBudget: 10000, PointerThresholdBytes: 1000})
	catalog := []value.ToolSchema{toolSchema("alpha"), toolSchema("beta")}
	plan := p.Plan(catalog, nil, "")
	assert.Len(t, nonSyntheticTools(plan.ExposedTools), 1)
}

func TestPlanFavorsUsedToolsUnderJIT(t *testing.T) {
	p := NewPlanner(Profile{JITMinToolCount: 2, DefaultJITLoadCount: 1, CharBudget: 10000, PointerThresholdBytes: 1000})
	p.RecordToolUse("beta")
	catalog := []value.ToolSchema{toolSchema("alpha"), toolSchema("beta")}
	plan := p.Plan(catalog, nil, "")
	exposed := nonSyntheticTools(plan.ExposedTools)
	require.Len(t, exposed, 1)
	assert.Equal(t, "beta", exposed[0].Name)
}

func TestPlanAlwaysExposesSyntheticTools(t *testing.T) {
	p := NewPlanner(Profile{JITMinToolCount: 100, DefaultJITLoadCount: 5, CharBudget: 10000, PointerThresholdBytes: 1000})
	plan := p.Plan(nil, nil, "")
	names := make(map[string]bool, len(plan.ExposedTools))
	for _, s := range plan.ExposedTools {
		names[s.Name] = true
	}
	for _, name := range []string{ToolLoadToolSchema, ToolAddTools, ToolRemoveTools, ToolResolvePointer} {
		assert.True(t, names[name], "expected %s to always be exposed", name)
	}
}

func TestPointerizesOversizedContent(t *testing.T) {
	p := NewPlanner(Profile{CharBudget: 100000, PointerThresholdBytes: 10, PointerSummaryMaxChars: 5})
	history := []value.MemoryMessage{
		value.NewMemoryMessage(value.RoleUser, "this content is definitely over ten bytes"),
	}
	plan := p.Plan(nil, history, "")
	require.Len(t, plan.Pointers, 1)
	assert.Contains(t, plan.Prompt, "pointer:")
	assert.NotContains(t, plan.Prompt, "[... context truncated for strict4k budget ...]")
}

func TestResolvePointerReturnsOriginalContent(t *testing.T) {
	p := NewPlanner(Profile{CharBudget: 100000, PointerThresholdBytes: 10, PointerSummaryMaxChars: 5})
	history := []value.MemoryMessage{
		value.NewMemoryMessage(value.RoleUser, "this content is definitely over ten bytes"),
	}
	plan := p.Plan(nil, history, "")
	content, ok := p.ResolvePointer(plan.Pointers[0].ID)
	require.True(t, ok)
	assert.Equal(t, "this content is definitely over ten bytes", content)
}

func TestAddToolsAndRemoveToolsAffectNextPlan(t *testing.T) {
	p := NewPlanner(Profile{JITMinToolCount: 100, DefaultJITLoadCount: 5, CharBudget: 10000, PointerThresholdBytes: 1000})
	catalog := []value.ToolSchema{toolSchema("alpha"), toolSchema("beta")}
	p.RemoveTools([]string{"beta"})
	plan := p.Plan(catalog, nil, "")
	exposed := nonSyntheticTools(plan.ExposedTools)
	require.Len(t, exposed, 1)
	assert.Equal(t, "alpha", exposed[0].Name)
}

func TestSafePlanHappyPathDoesNotFallBack(t *testing.T) {
	p := NewPlanner(Strict4KProfile())
	plan := p.SafePlan(nil, []value.MemoryMessage{value.NewMemoryMessage(value.RoleUser, "hi")}, "")
	assert.False(t, plan.FallbackUsed)
	assert.Contains(t, plan.Prompt, "hi")
}

func TestSyntheticToolNamesAreAlwaysRecognized(t *testing.T) {
	for _, name := range []string{ToolLoadToolSchema, ToolAddTools, ToolRemoveTools, ToolResolvePointer} {
		assert.True(t, IsSyntheticTool(name))
	}
	assert.False(t, IsSyntheticTool("some_other_tool"))
}

func TestSyntheticToolsResolvePointerRoundTrip(t *testing.T) {
	p := NewPlanner(Strict4KProfile())
	history := []value.MemoryMessage{value.NewMemoryMessage(value.RoleUser, strings.Repeat("x", 1000))}
	plan := p.Plan(nil, history, "")
	require.Len(t, plan.Pointers, 1)

	tools := p.SyntheticTools(nil)
	var resolve value.Value
	for _, tool := range tools {
		if tool.Schema().Name == ToolResolvePointer {
			args := value.NewOrderedMap()
			args.Set("pointer_id", value.Str(plan.Pointers[0].ID))
			out, err := tool.Execute(context.Background(), args)
			require.NoError(t, err)
			resolve = out
		}
	}
	s, ok := resolve.AsString()
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("x", 1000), s)
}
