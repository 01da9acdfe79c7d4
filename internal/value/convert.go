package value

// ToGo converts a Value into plain Go data (map[string]any, []any, string,
// int64, float64, bool, nil) for interop with libraries that expect
// interface{} documents, such as JSON Schema validators.
func ToGo(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = ToGo(e)
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for _, k := range v.obj.Keys() {
			e, _ := v.obj.Get(k)
			out[k] = ToGo(e)
		}
		return out
	default:
		return nil
	}
}

// FromGo converts plain Go data (as produced by encoding/json decoding into
// any) back into a Value.
func FromGo(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float64:
		return Float(x)
	case string:
		return Str(x)
	case []any:
		items := make([]Value, len(x))
		for i, e := range x {
			items[i] = FromGo(e)
		}
		return Array(items)
	case map[string]any:
		m := NewOrderedMap()
		for k, e := range x {
			m.Set(k, FromGo(e))
		}
		return Object(m)
	default:
		return Null()
	}
}

// ArgumentsToGo converts a ToolCall's OrderedMap arguments into a
// map[string]any document suitable for JSON Schema validation.
func ArgumentsToGo(args *OrderedMap) map[string]any {
	out := make(map[string]any)
	if args == nil {
		return out
	}
	for _, k := range args.Keys() {
		v, _ := args.Get(k)
		out[k] = ToGo(v)
	}
	return out
}
