package handoff

import (
	"context"

	"github.com/haasonsaas/swarm/internal/value"
)

// DelegationResult is Supervisor.Delegate's return value. It mirrors the
// fields of agentloop.AgentResult that a delegation can actually produce
// (Target.Run itself returns only an output string) without this package
// importing agentloop, which would cycle back through its own
// handoff.IsHandoffResult dependency.
type DelegationResult struct {
	Output   string
	Metadata *value.OrderedMap
}

// Supervisor implements the Interruption-Aware Supervisor: a central
// coordinator that delegates to a sub-agent and, if that sub-agent reports
// itself interrupted, governs fallback per an InterruptionPolicy. Grounded
// on internal/multiagent/supervisor.go's central-coordinator role and
// internal/agent/failover.go's ProviderState.IsAvailable/circuit polling,
// generalized from a binary open/closed provider circuit to the four named
// interruption policies.
type Supervisor struct {
	id     string
	policy InterruptionPolicy
}

// NewSupervisor returns a Supervisor identified by id, applying policy
// whenever a delegated sub-agent is interrupted.
func NewSupervisor(id string, policy InterruptionPolicy) *Supervisor {
	return &Supervisor{id: id, policy: policy}
}

// Delegate runs subAgent on input, applying the configured InterruptionPolicy
// against fallback if subAgent reports itself interrupted. The returned
// AgentResult's Metadata carries a "routing_decision" key set to "primary" or
// "fallback", matching spec.md's "metadata records routing_decision" note.
func (s *Supervisor) Delegate(ctx context.Context, subAgent, fallback Target, input string) (DelegationResult, error) {
	output, decision, err := s.policy.Resolve(ctx, subAgent, fallback, input)
	result := DelegationResult{Metadata: value.NewOrderedMap()}
	result.Metadata.Set("routing_decision", value.Str(decision))
	result.Metadata.Set("supervisor_id", value.Str(s.id))
	if err != nil {
		return result, err
	}
	result.Output = output
	return result, nil
}
