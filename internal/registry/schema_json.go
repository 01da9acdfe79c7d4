package registry

import "github.com/haasonsaas/swarm/internal/value"

// jsonSchemaDocument renders a value.ToolSchema as a JSON Schema document
// (the map[string]any shape the jsonschema/v5 compiler accepts via
// AddResource, mirroring how the teacher's tool registry hands the compiler
// an already-decoded `any` document rather than raw bytes).
func jsonSchemaDocument(schema value.ToolSchema) map[string]any {
	required := make([]string, 0, len(schema.Parameters))
	properties := make(map[string]any, len(schema.Parameters))
	for _, p := range schema.Parameters {
		properties[p.Name] = paramTypeSchema(p.Type)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	if schema.Strict {
		doc["additionalProperties"] = false
	}
	return doc
}

func paramTypeSchema(t value.ParamType) map[string]any {
	switch t.Kind {
	case value.ParamString:
		return map[string]any{"type": "string"}
	case value.ParamInt:
		return map[string]any{"type": "integer"}
	case value.ParamFloat:
		return map[string]any{"type": "number"}
	case value.ParamBool:
		return map[string]any{"type": "boolean"}
	case value.ParamArray:
		items := map[string]any{}
		if t.Elem != nil {
			items = paramTypeSchema(*t.Elem)
		}
		return map[string]any{"type": "array", "items": items}
	case value.ParamObject:
		required := make([]string, 0, len(t.Fields))
		properties := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			properties[f.Name] = paramTypeSchema(f.Type)
			if f.Required {
				required = append(required, f.Name)
			}
		}
		doc := map[string]any{"type": "object", "properties": properties}
		if len(required) > 0 {
			doc["required"] = required
		}
		return doc
	case value.ParamOneOf:
		enum := make([]any, len(t.Enum))
		for i, e := range t.Enum {
			enum[i] = e
		}
		return map[string]any{"enum": enum}
	default:
		return map[string]any{}
	}
}
