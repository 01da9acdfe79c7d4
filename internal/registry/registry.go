package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/swarm/internal/guardrail"
	"github.com/haasonsaas/swarm/internal/value"
)

// entry pairs a registered Tool with its compiled argument schema.
type entry struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry is a thread-safe, name-keyed catalog of Tools.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]entry
	guards  *guardrail.Runner
	guardOn []guardrail.Guardrail
}

// New returns an empty Registry. Pass guardrails to run on every tool call's
// arguments (PhaseToolInput) and result (PhaseToolOutput); pass none to skip
// guardrail evaluation entirely.
func New(guards ...guardrail.Guardrail) *Registry {
	return &Registry{
		tools:   make(map[string]entry),
		guards:  guardrail.NewRunner(),
		guardOn: guards,
	}
}

// Register adds a tool under its schema name. It returns *DuplicateTool if
// the name is already taken, and compiles the tool's parameter schema eagerly
// so a malformed schema is surfaced at registration time, not first dispatch.
func (r *Registry) Register(tool Tool) error {
	schema := tool.Schema()
	compiled, err := compileToolSchema(schema.Name, schema)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[schema.Name]; exists {
		return &DuplicateTool{Name: schema.Name}
	}
	r.tools[schema.Name] = entry{tool: tool, schema: compiled}
	return nil
}

// Unregister removes a tool by name. It is a no-op if the name is unknown.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Lookup returns the tool registered under name, if any.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// List returns every registered tool's schema, sorted by UTF-8 byte order of
// name so repeated calls and repeated processes agree on ordering.
func (r *Registry) List() []value.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]value.ToolSchema, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool.Schema())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke validates args against the named tool's schema, runs tool-input
// guardrails, executes the tool, runs tool-output guardrails on the result,
// and returns a value.ToolResult. It never returns a (nil, nil) pair: lookup,
// validation, guardrail, and execution failures are all reported through the
// returned ToolResult's ErrorMessage rather than the error return, except for
// guardrail tripwires which propagate as errors per the guardrail contract.
func (r *Registry) Invoke(ctx context.Context, call value.ToolCall) (value.ToolResult, error) {
	r.mu.RLock()
	e, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		err := &ToolNotFound{Name: call.Name}
		return value.ToolResult{CallID: call.ID, Name: call.Name, ErrorMessage: err.Error()}, nil
	}

	if err := validateArguments(call.Name, e.schema, call.Arguments); err != nil {
		return value.ToolResult{CallID: call.ID, Name: call.Name, ErrorMessage: err.Error()}, nil
	}

	if len(r.guardOn) > 0 {
		if err := r.guards.Run(ctx, guardrail.PhaseToolInput, call, r.guardOn); err != nil {
			if _, isTripwire := err.(*guardrail.TripwireError); isTripwire {
				return value.ToolResult{}, err
			}
			return value.ToolResult{CallID: call.ID, Name: call.Name, ErrorMessage: err.Error()}, nil
		}
	}

	out, err := e.tool.Execute(ctx, call.Arguments)
	if err != nil {
		wrapped := &ToolExecutionFailed{ToolName: call.Name, Cause: err}
		return value.ToolResult{CallID: call.ID, Name: call.Name, ErrorMessage: wrapped.Error()}, nil
	}
	result := value.ToolResult{CallID: call.ID, Name: call.Name, Output: out}

	if len(r.guardOn) > 0 {
		if err := r.guards.Run(ctx, guardrail.PhaseToolOutput, result, r.guardOn); err != nil {
			if _, isTripwire := err.(*guardrail.TripwireError); isTripwire {
				return value.ToolResult{}, err
			}
			result.ErrorMessage = err.Error()
		}
	}
	return result, nil
}
