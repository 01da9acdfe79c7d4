package registry

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/swarm/internal/value"
)

func compileToolSchema(name string, toolSchema value.ToolSchema) (*jsonschema.Schema, error) {
	doc, err := json.Marshal(jsonSchemaDocument(toolSchema))
	if err != nil {
		return nil, fmt.Errorf("encode schema for %s: %w", name, err)
	}
	compiled, err := jsonschema.CompileString("tool://"+name, string(doc))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", name, err)
	}
	return compiled, nil
}

// validateArguments checks a ToolCall's arguments against the tool's
// parameter schema, returning an *InvalidToolArguments on any violation:
// a missing required key, a type mismatch, or an enum value outside the
// declared set.
func validateArguments(name string, schema *jsonschema.Schema, args *value.OrderedMap) error {
	if schema == nil {
		return nil
	}
	doc := value.ArgumentsToGo(args)
	if err := schema.Validate(doc); err != nil {
		return &InvalidToolArguments{ToolName: name, Reason: err.Error()}
	}
	return nil
}
