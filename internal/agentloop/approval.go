package agentloop

import (
	"context"

	"github.com/haasonsaas/swarm/internal/value"
)

// ApprovalOutcome is a human or automated decision on a pending tool call.
type ApprovalOutcome int

const (
	ApprovalApprove ApprovalOutcome = iota
	ApprovalReject
)

// ApprovalHandler is consulted by the Dispatching state whenever a tool call
// is not auto-approved. Implementations may block (e.g. waiting on a human),
// and must respect ctx cancellation.
type ApprovalHandler interface {
	RequestApproval(ctx context.Context, call value.ToolCall) (ApprovalOutcome, string)
}

// ApprovalHandlerFunc adapts a plain function into an ApprovalHandler.
type ApprovalHandlerFunc func(ctx context.Context, call value.ToolCall) (ApprovalOutcome, string)

func (f ApprovalHandlerFunc) RequestApproval(ctx context.Context, call value.ToolCall) (ApprovalOutcome, string) {
	return f(ctx, call)
}

// ApprovalPolicyKind selects how the Dispatching state gates a tool call,
// mirroring internal/agent/approval.go's three-way decision shape.
type ApprovalPolicyKind int

const (
	// ApprovalNever auto-approves every tool call.
	ApprovalNever ApprovalPolicyKind = iota
	// ApprovalAlways routes every tool call through the Handler.
	ApprovalAlways
	// ApprovalAllowList auto-approves calls whose name is in AllowSet and
	// routes everything else through the Handler, like ApprovalAlways.
	ApprovalAllowList
)

// ApprovalPolicy configures Dispatching's per-call gate.
type ApprovalPolicy struct {
	Kind     ApprovalPolicyKind
	AllowSet map[string]bool
	Handler  ApprovalHandler
}

// NeverApprovalPolicy auto-approves all tool calls.
func NeverApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{Kind: ApprovalNever}
}

// AllowListApprovalPolicy auto-approves the named tools and routes the rest
// through handler.
func AllowListApprovalPolicy(names []string, handler ApprovalHandler) ApprovalPolicy {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return ApprovalPolicy{Kind: ApprovalAllowList, AllowSet: set, Handler: handler}
}

// AlwaysApprovalPolicy routes every tool call through handler.
func AlwaysApprovalPolicy(handler ApprovalHandler) ApprovalPolicy {
	return ApprovalPolicy{Kind: ApprovalAlways, Handler: handler}
}

// evaluate returns whether call is approved and a human-readable reason. A
// rejection (approved=false) is never an error: the caller synthesizes a
// rejected tool result and continues the run.
func (p ApprovalPolicy) evaluate(ctx context.Context, call value.ToolCall) (approved bool, reason string) {
	switch p.Kind {
	case ApprovalAllowList:
		if p.AllowSet[call.Name] {
			return true, "tool in allow list"
		}
		fallthrough
	case ApprovalAlways:
		if p.Handler == nil {
			return false, "no approval handler configured"
		}
		outcome, why := p.Handler.RequestApproval(ctx, call)
		if outcome == ApprovalApprove {
			return true, why
		}
		return false, why
	default: // ApprovalNever
		return true, "auto-approved"
	}
}
