// Package handoff converts handoff declarations into synthetic tools that,
// when called by the model, transfer execution to a target agent, plus the
// resolver and router that pick a target from a name, keyword match, or
// classifier verdict.
//
// Grounded on internal/multiagent/handoff_tool.go's HandoffTool/ReturnTool
// (synthetic tool registration, findTargetAgent resolution cascade) and
// internal/multiagent/router.go's Router (trigger evaluation, priority
// ordering), generalized from swarm's session/orchestrator-bound agents to
// a narrow Target interface so this package has no dependency on how an
// agent is actually run.
package handoff

import (
	"context"
	"strings"

	"github.com/haasonsaas/swarm/internal/registry"
	"github.com/haasonsaas/swarm/internal/value"
)

// markerKey tags a ToolResult object produced by a handoff tool, so callers
// can distinguish "the model asked to hand off" from "a normal tool ran".
const markerKey = "handoff"

// Target is anything a handoff or route can transfer control to. It is
// intentionally narrower than agentloop.AgentLoop: ID is the identity
// resolution uses, Name is the display/name-match dimension, and Type is the
// capability/category tag used for the resolver's third-priority tier (the
// teacher has no such dimension — agents there resolve only by ID or name —
// so Type is this package's generalization for spec.md's "type identity"
// resolution tier).
type Target interface {
	ID() string
	Name() string
	Type() string
	Run(ctx context.Context, input string) (string, error)
}

// InterruptAware is an optional interface a Target can implement to report
// that it is currently unable to run (mid-interrupt on the orchestration
// graph, circuit open, etc). A Target that doesn't implement it is always
// treated as available.
type InterruptAware interface {
	IsInterrupted() bool
}

func isInterrupted(t Target) bool {
	if t == nil {
		return true
	}
	if ia, ok := t.(InterruptAware); ok {
		return ia.IsInterrupted()
	}
	return false
}

// Declaration configures one handoff: the target agent, the synthetic tool's
// identity, and the hooks that filter input and observe the transfer.
type Declaration struct {
	// Target is the agent this handoff transfers control to.
	Target Target

	// ToolName overrides the default "handoff_to_<snake_case(target.Name)>".
	ToolName string

	// ToolDescription overrides the default description.
	ToolDescription string

	// InputFilter rewrites the text passed to Target.Run, e.g. to redact or
	// summarize. A nil filter passes the caller-supplied reason/context
	// through unchanged.
	InputFilter func(input string) string

	// IsEnabled gates whether the synthetic tool is callable at all. A nil
	// func means always enabled.
	IsEnabled func() bool

	// OnHandoff is invoked immediately before Target.Run, for logging or
	// metrics; it never blocks the handoff on error (it has none to return).
	OnHandoff func(ctx context.Context, fromAgentID, toAgentID string)

	// Nested, when true, means the caller should continue its own loop with
	// the target's output fed back as a tool result. When false (the
	// default), the target's output becomes the calling agent's final
	// output and the loop terminates. This package only records the flag on
	// the result value — interpreting it is the orchestrating caller's job,
	// since this package never runs an agent loop itself.
	Nested bool
}

// Tool is the synthetic, model-facing handoff tool. The agent loop must
// recognize its result (via IsHandoffResult) and intercept it rather than
// treat it as an ordinary tool result: per spec.md's handoff mechanism, the
// loop never re-enters with the handoff tool's raw output as if it were a
// normal tool's.
type Tool struct {
	fromAgentID string
	decl        Declaration
	schema      value.ToolSchema
}

// NewTool builds the synthetic tool for decl, scoped to the agent initiating
// the handoff (fromAgentID), defaulting ToolName/ToolDescription when unset.
func NewTool(fromAgentID string, decl Declaration) (*Tool, error) {
	if decl.Target == nil {
		return nil, &InvalidDeclaration{Reason: "target must not be nil"}
	}
	name := decl.ToolName
	if name == "" {
		name = "handoff_to_" + snakeCase(decl.Target.Name())
	}
	desc := decl.ToolDescription
	if desc == "" {
		desc = "Transfer control to the " + decl.Target.Name() + " agent."
	}
	return &Tool{
		fromAgentID: fromAgentID,
		decl:        decl,
		schema: value.ToolSchema{
			Name:        name,
			Description: desc,
			Parameters: []value.ToolParameter{
				{
					Name:        "reason",
					Description: "Why control is being transferred to this agent.",
					Type:        value.ParamType{Kind: value.ParamString},
					Required:    true,
				},
				{
					Name:        "context",
					Description: "Additional context to pass to the target agent.",
					Type:        value.ParamType{Kind: value.ParamString},
					Required:    false,
				},
			},
		},
	}, nil
}

// Schema implements registry.Tool.
func (t *Tool) Schema() value.ToolSchema { return t.schema }

// Execute implements registry.Tool. It resolves the input text, applies the
// declaration's gates and hooks, and runs the target agent directly — the
// handoff is performed here, not merely requested.
func (t *Tool) Execute(ctx context.Context, args *value.OrderedMap) (value.Value, error) {
	if t.decl.IsEnabled != nil && !t.decl.IsEnabled() {
		return value.Null(), &HandoffDisabled{ToolName: t.schema.Name}
	}
	if t.decl.Target.ID() == t.fromAgentID {
		return value.Null(), &SelfHandoff{AgentID: t.fromAgentID}
	}

	input := ""
	if args != nil {
		if reason, ok := args.Get("reason"); ok {
			if s, ok2 := reason.AsString(); ok2 {
				input = s
			}
		}
		if ctxVal, ok := args.Get("context"); ok {
			if s, ok2 := ctxVal.AsString(); ok2 && s != "" {
				input = s
			}
		}
	}
	if t.decl.InputFilter != nil {
		input = t.decl.InputFilter(input)
	}

	if t.decl.OnHandoff != nil {
		t.decl.OnHandoff(ctx, t.fromAgentID, t.decl.Target.ID())
	}

	output, err := t.decl.Target.Run(ctx, input)
	if err != nil {
		return value.Null(), &HandoffExecutionFailed{TargetID: t.decl.Target.ID(), Cause: err}
	}

	result := value.NewOrderedMap()
	result.Set(markerKey, value.Bool(true))
	result.Set("target_agent_id", value.Str(t.decl.Target.ID()))
	result.Set("from_agent_id", value.Str(t.fromAgentID))
	result.Set("output", value.Str(output))
	result.Set("nested", value.Bool(t.decl.Nested))
	return value.Object(result), nil
}

var _ registry.Tool = (*Tool)(nil)

// IsHandoffResult reports whether v is the output of a handoff tool, and if
// so extracts the target agent ID, the target's output, and whether the
// calling loop should continue (nested) or terminate with this output as its
// final answer.
func IsHandoffResult(v value.Value) (targetAgentID, output string, nested bool, ok bool) {
	obj, isObj := v.AsObject()
	if !isObj {
		return "", "", false, false
	}
	marker, hasMarker := obj.Get(markerKey)
	if !hasMarker {
		return "", "", false, false
	}
	if b, _ := marker.AsBool(); !b {
		return "", "", false, false
	}
	target, _ := obj.Get("target_agent_id")
	targetStr, _ := target.AsString()
	out, _ := obj.Get("output")
	outStr, _ := out.AsString()
	nestedVal, _ := obj.Get("nested")
	nestedBool, _ := nestedVal.AsBool()
	return targetStr, outStr, nestedBool, true
}

// snakeCase lowercases s and replaces runs of non-alphanumeric characters
// with a single underscore, trimming leading/trailing underscores.
func snakeCase(s string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
			prevUnderscore = false
		default:
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
