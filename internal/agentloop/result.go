package agentloop

import (
	"time"

	"github.com/haasonsaas/swarm/internal/value"
)

// AgentResult is a run's terminal output, whether the run finished
// normally, hit its iteration cap, or was cancelled.
type AgentResult struct {
	Output         string
	ToolCalls      []value.ToolCall
	ToolResults    []value.ToolResult
	IterationCount int
	Duration       time.Duration
	TokenUsage     *value.TokenUsage

	// Metadata carries diagnostic keys the loop emits: engine identity,
	// checkpoint id, membrane fallback flags, routing decisions. Populated
	// lazily; callers should use Get/Set rather than assuming presence.
	Metadata *value.OrderedMap
}

func newAgentResult() AgentResult {
	return AgentResult{Metadata: value.NewOrderedMap()}
}

func (r *AgentResult) setMetadata(key string, v value.Value) {
	if r.Metadata == nil {
		r.Metadata = value.NewOrderedMap()
	}
	r.Metadata.Set(key, v)
}
