// Package agentloop implements the tool-using agent loop: the inner state
// machine of a single agent, alternating model invocations and tool
// executions under an iteration cap, an approval policy, and bounded
// concurrency.
//
// Grounded on internal/agent/loop.go's AgenticLoop/LoopConfig (state machine
// shape, sanitize-on-construct config) and internal/agent/executor.go's
// Executor (bounded parallel dispatch via a semaphore, order-preserving
// result join), generalized from swarm's session/job/branch-store-backed
// loop to a narrower, storage-agnostic core built on value.Value,
// provider.InferenceProvider, registry.Registry, and membrane.Planner.
package agentloop

import (
	"time"

	"github.com/haasonsaas/swarm/internal/membrane"
	"github.com/haasonsaas/swarm/internal/provider"
)

// AgentConfiguration is a named bag of knobs governing one agent's loop
// behavior. Validate rejects negative or contradictory values at
// construction, mirroring LoopConfig's sanitizeLoopConfig but failing loudly
// instead of silently substituting defaults for caller-supplied values.
type AgentConfiguration struct {
	Name string

	// Model identifies the backing model passed to the provider. Distinct
	// from Name, which identifies the agent for metadata/event purposes.
	Model string

	// SystemPrompt is the agent's fixed instructions, prepended to the
	// membrane-rendered transcript on every Planning turn.
	SystemPrompt string

	// MaxIterations bounds Planning→Modeling→Dispatching→Merging→Decision
	// cycles. Default: 10.
	MaxIterations int

	// Timeout bounds the whole run's wall-clock duration. Zero means no
	// limit.
	Timeout time.Duration

	Temperature   *float64
	MaxTokens     int
	TopP          *float64
	StopSequences []string
	Seed          *int64
	ToolChoice    provider.ToolChoice

	// Streaming enables emission of Event values over the run's event
	// channel. When false, Run still executes but only ever sends the
	// terminal Completed/Failed event.
	Streaming bool

	// StopOnToolError terminates the run with *ToolExecutionFailed the
	// first time any dispatched call's result carries a non-empty
	// ErrorMessage, instead of continuing the loop with the error folded
	// into the tool result.
	StopOnToolError bool

	// MembraneProfile configures the context membrane's budget behavior.
	MembraneProfile membrane.Profile

	// ParallelToolCalls dispatches a Modeling turn's tool calls concurrently
	// (bounded by MaxConcurrency) instead of serially in request order.
	ParallelToolCalls bool

	// MaxConcurrency bounds concurrent tool dispatch when ParallelToolCalls
	// is set. Default: 5.
	MaxConcurrency int

	// HistoryLimit bounds how many prior messages are fed to the membrane
	// planner. Zero means unbounded (the full session history).
	HistoryLimit int
}

// DefaultAgentConfiguration returns a configuration with the teacher's
// defaults: MaxIterations=10, MaxTokens=4096, MaxConcurrency=5.
func DefaultAgentConfiguration(name string) AgentConfiguration {
	return AgentConfiguration{
		Name:              name,
		MaxIterations:     10,
		MaxTokens:         4096,
		MaxConcurrency:    5,
		ParallelToolCalls: true,
		MembraneProfile:   membrane.Strict4KProfile(),
	}
}

// Validate rejects configurations that would hang, busy-loop, or contradict
// themselves, returning a *ConfigurationError naming the offending field.
func (c AgentConfiguration) Validate() error {
	if c.Name == "" {
		return &ConfigurationError{Field: "Name", Reason: "must not be empty"}
	}
	if c.MaxIterations < 0 {
		return &ConfigurationError{Field: "MaxIterations", Reason: "must not be negative"}
	}
	if c.MaxTokens <= 0 {
		return &ConfigurationError{Field: "MaxTokens", Reason: "must be positive"}
	}
	if c.Timeout < 0 {
		return &ConfigurationError{Field: "Timeout", Reason: "must not be negative"}
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return &ConfigurationError{Field: "Temperature", Reason: "must be within [0, 2]"}
	}
	if c.TopP != nil && (*c.TopP < 0 || *c.TopP > 1) {
		return &ConfigurationError{Field: "TopP", Reason: "must be within [0, 1]"}
	}
	if c.ParallelToolCalls && c.MaxConcurrency <= 0 {
		return &ConfigurationError{Field: "MaxConcurrency", Reason: "must be positive when ParallelToolCalls is set"}
	}
	if c.HistoryLimit < 0 {
		return &ConfigurationError{Field: "HistoryLimit", Reason: "must not be negative"}
	}
	return nil
}

func (c AgentConfiguration) toProviderOptions() provider.Options {
	return provider.Options{
		Model:         c.Model,
		Temperature:   c.Temperature,
		TopP:          c.TopP,
		MaxTokens:     c.MaxTokens,
		StopSequences: c.StopSequences,
		Seed:          c.Seed,
		ToolChoice:    c.ToolChoice,
	}
}
