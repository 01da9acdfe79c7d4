package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MarshalJSON implements the standard, non-canonical encoding (object keys in
// insertion order). Use Canonical for the sorted-key, slash-unescaped form
// required for checkpoints and hashing.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes arbitrary JSON into a Value, preserving object key
// order and distinguishing integers from floats.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// decodeValue reads one JSON value from dec using the token stream so that
// object key order survives, which json.Decode into map[string]any cannot do.
func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("value: invalid number %q: %w", t.String(), err)
		}
		return Float(f), nil
	case string:
		return Str(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(items), nil
		case '{':
			m := NewOrderedMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("value: expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Object(m), nil
		default:
			return Value{}, fmt.Errorf("value: unexpected delimiter %v", t)
		}
	default:
		return Value{}, fmt.Errorf("value: unsupported token %T", tok)
	}
}

// FromJSON parses a JSON document into a Value.
func FromJSON(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

// encode writes v to buf. When canonical is true, object keys are sorted by
// raw byte sequence and forward slashes are never escaped.
func (v Value) encode(buf *bytes.Buffer, canonical bool) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("value: cannot encode non-finite float %v", v.f)
		}
		buf.WriteString(formatFloat(v.f))
	case KindString:
		return encodeString(buf, v.s, canonical)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf, canonical); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		keys := v.obj.Keys()
		if canonical {
			keys = v.obj.SortedKeys()
		}
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k, canonical); err != nil {
				return err
			}
			buf.WriteByte(':')
			val, _ := v.obj.Get(k)
			if err := val.encode(buf, canonical); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("value: invalid kind %d", v.kind)
	}
	return nil
}

// formatFloat renders a float without trailing zeros beyond what's needed to
// round-trip. A Float that happens to be integral (3.0) still carries a
// decimal point so its encoding is never confused with Int's encoding of the
// same magnitude — the two Kinds must stay distinguishable on the wire.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !bytes.ContainsAny([]byte(s), ".eE") {
		s += ".0"
	}
	return s
}

func encodeString(buf *bytes.Buffer, s string, canonical bool) error {
	// encoding/json's Marshal of a bare string escapes '<', '>', '&' and
	// forward slashes by default via HTMLEscape semantics when used through
	// an Encoder; json.Marshal on a string does not escape '/' though, so a
	// direct call is safe and identical for both canonical and non-canonical
	// modes for the slash-escaping requirement. We still route both paths
	// through the same helper to keep one code path.
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

// Canonical renders v as canonical JSON: object keys sorted by raw UTF-8
// byte sequence, no escaped forward slashes, no trailing whitespace. Two
// structurally equal Values always produce byte-identical output.
func Canonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
