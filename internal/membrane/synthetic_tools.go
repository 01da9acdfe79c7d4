package membrane

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/swarm/internal/registry"
	"github.com/haasonsaas/swarm/internal/value"
)

// syntheticToolSchemas returns the schemas of the four mandatory membrane
// tools, independent of any Planner instance. Plan uses this to guarantee
// they are always present in ExposedTools, whether or not the model has
// used them yet.
func syntheticToolSchemas() []value.ToolSchema {
	return []value.ToolSchema{
		{
			Name:        ToolLoadToolSchema,
			Description: "Load the full schema for a tool excluded from this turn's catalog.",
			Parameters: []value.ToolParameter{
				{Name: "name", Type: value.ParamType{Kind: value.ParamString}, Required: true},
			},
		},
		{
			Name:        ToolAddTools,
			Description: "Add tools to the catalog exposed on subsequent turns.",
			Parameters: []value.ToolParameter{
				{Name: "names", Type: value.ParamType{Kind: value.ParamArray, Elem: &value.ParamType{Kind: value.ParamString}}, Required: true},
			},
		},
		{
			Name:        ToolRemoveTools,
			Description: "Remove tools from the catalog exposed on subsequent turns.",
			Parameters: []value.ToolParameter{
				{Name: "names", Type: value.ParamType{Kind: value.ParamArray, Elem: &value.ParamType{Kind: value.ParamString}}, Required: true},
			},
		},
		{
			Name:        ToolResolvePointer,
			Description: "Resolve a pointer record back to its original content.",
			Parameters: []value.ToolParameter{
				{Name: "pointer_id", Type: value.ParamType{Kind: value.ParamString}, Required: true},
			},
		},
	}
}

// SyntheticTools returns the four mandatory tools the membrane exposes
// while active, bound to this planner instance and the given catalog (used
// to resolve membrane_load_tool_schema lookups), ready to register on the
// registry the agent loop dispatches against.
func (p *Planner) SyntheticTools(catalog []value.ToolSchema) []registry.Tool {
	schemas := syntheticToolSchemas()
	return []registry.Tool{
		registry.FuncTool{
			ToolSchema: schemas[0],
			Fn: func(ctx context.Context, args *value.OrderedMap) (value.Value, error) {
				name, _ := stringArg(args, "name")
				schema, ok := p.LoadToolSchema(catalog, name)
				if !ok {
					return value.Null(), nil
				}
				return schemaDescriptionValue(schema), nil
			},
		},
		registry.FuncTool{
			ToolSchema: schemas[1],
			Fn: func(ctx context.Context, args *value.OrderedMap) (value.Value, error) {
				names, _ := stringArrayArg(args, "names")
				p.AddTools(names)
				return value.Bool(true), nil
			},
		},
		registry.FuncTool{
			ToolSchema: schemas[2],
			Fn: func(ctx context.Context, args *value.OrderedMap) (value.Value, error) {
				names, _ := stringArrayArg(args, "names")
				p.RemoveTools(names)
				return value.Bool(true), nil
			},
		},
		registry.FuncTool{
			ToolSchema: schemas[3],
			Fn: func(ctx context.Context, args *value.OrderedMap) (value.Value, error) {
				id, _ := stringArg(args, "pointer_id")
				content, ok := p.ResolvePointer(id)
				if !ok {
					return value.Null(), nil
				}
				return value.Str(content), nil
			},
		},
	}
}

func stringArg(args *value.OrderedMap, key string) (string, bool) {
	if args == nil {
		return "", false
	}
	v, ok := args.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func stringArrayArg(args *value.OrderedMap, key string) ([]string, bool) {
	if args == nil {
		return nil, false
	}
	v, ok := args.Get(key)
	if !ok {
		return nil, false
	}
	items, ok := v.AsArray()
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.AsString(); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func schemaDescriptionValue(schema value.ToolSchema) value.Value {
	m := value.NewOrderedMap()
	m.Set("name", value.Str(schema.Name))
	m.Set("description", value.Str(schema.Description))
	params := make([]value.Value, len(schema.Parameters))
	for i, p := range schema.Parameters {
		pm := value.NewOrderedMap()
		pm.Set("name", value.Str(p.Name))
		pm.Set("required", value.Bool(p.Required))
		params[i] = value.Object(pm)
	}
	m.Set("parameters", value.Array(params))
	return value.Object(m)
}

// IsSyntheticTool reports whether name is one of the membrane's four
// mandatory tools.
func IsSyntheticTool(name string) bool {
	switch name {
	case ToolLoadToolSchema, ToolAddTools, ToolRemoveTools, ToolResolvePointer:
		return true
	default:
		return false
	}
}

// naivePrompt renders the full, untruncated history as a fallback prompt
// when the planner panics. It is deliberately simple: correctness (never
// crash) over budget discipline.
func naivePrompt(history []value.MemoryMessage) string {
	var b strings.Builder
	for i, msg := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}

// SafePlan runs Plan, recovering from any panic and falling back to a naive,
// un-membraned prompt. FallbackUsed/FallbackError are set on the returned
// Plan when that happens, mirroring AgentResult.metadata's
// membrane.fallback.used diagnostic key.
func (p *Planner) SafePlan(catalog []value.ToolSchema, history []value.MemoryMessage, userInput string) (plan Plan) {
	defer func() {
		if r := recover(); r != nil {
			plan = Plan{
				Prompt:        naivePrompt(history),
				FallbackUsed:  true,
				FallbackError: panicMessage(r),
			}
		}
	}()
	return p.Plan(catalog, history, userInput)
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}
