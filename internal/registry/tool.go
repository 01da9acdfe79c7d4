// Package registry holds the catalog of tools an agent can call: name-keyed
// registration with duplicate detection, JSON-Schema-backed argument
// validation, and dispatch through an optional guardrail runner.
//
// Grounded on internal/agent/tool_registry.go's map+RWMutex registry shape,
// generalized so Tool no longer carries a concrete provider wire format
// (models.ToolResult) and instead speaks value.Value throughout.
package registry

import (
	"context"

	"github.com/haasonsaas/swarm/internal/value"
)

// Tool is anything invokable by name with schema-described arguments.
type Tool interface {
	Schema() value.ToolSchema
	Execute(ctx context.Context, args *value.OrderedMap) (value.Value, error)
}

// FuncTool adapts a plain function plus schema into a Tool.
type FuncTool struct {
	ToolSchema value.ToolSchema
	Fn         func(ctx context.Context, args *value.OrderedMap) (value.Value, error)
}

func (t FuncTool) Schema() value.ToolSchema { return t.ToolSchema }

func (t FuncTool) Execute(ctx context.Context, args *value.OrderedMap) (value.Value, error) {
	return t.Fn(ctx, args)
}
