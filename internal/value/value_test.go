package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueJSONRoundTrip(t *testing.T) {
	obj := NewOrderedMap()
	obj.Set("b", Int(2))
	obj.Set("a", Str("first"))
	obj.Set("nested", Array([]Value{Bool(true), Null(), Float(1.5)}))
	v := Object(obj)

	data, err := v.MarshalJSON()
	require.NoError(t, err)

	var roundTripped Value
	require.NoError(t, roundTripped.UnmarshalJSON(data))
	assert.True(t, Equal(v, roundTripped))

	m, ok := roundTripped.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a", "nested"}, m.Keys(), "insertion order must survive a JSON round trip")
}

func TestValueIntFloatDistinction(t *testing.T) {
	i := Int(3)
	f := Float(3.0)
	assert.False(t, Equal(i, f), "Int and Float of the same magnitude are distinct kinds")

	data, err := f.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), ".", "an integral float must still render with a decimal point")
}

func TestCanonicalSortsKeysByBytes(t *testing.T) {
	m := NewOrderedMap()
	m.Set("b", Int(1))
	m.Set("B", Int(2))
	m.Set("a", Int(3))
	v := Object(m)

	out, err := Canonical(v)
	require.NoError(t, err)
	// Byte order: 'B' (0x42) < 'a' (0x61) < 'b' (0x62)
	assert.Equal(t, `{"B":2,"a":3,"b":1}`, string(out))
}

func TestCanonicalIsByteIdenticalForEqualValues(t *testing.T) {
	build := func() Value {
		m := NewOrderedMap()
		m.Set("z", Str("last"))
		m.Set("a", Array([]Value{Int(1), Int(2)}))
		return Object(m)
	}
	a, err := Canonical(build())
	require.NoError(t, err)
	b, err := Canonical(build())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCanonicalDoesNotEscapeSlashes(t *testing.T) {
	v := Str("a/b/c")
	out, err := Canonical(v)
	require.NoError(t, err)
	assert.Equal(t, `"a/b/c"`, string(out))
}

func TestOrderedMapDeleteAndOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Set("x", Int(1))
	m.Set("y", Int(2))
	m.Set("z", Int(3))
	m.Delete("y")
	assert.Equal(t, []string{"x", "z"}, m.Keys())
	_, ok := m.Get("y")
	assert.False(t, ok)
}

func TestTokenUsageTotalIsComputed(t *testing.T) {
	u := TokenUsage{InputTokens: 10, OutputTokens: 5}
	assert.Equal(t, 15, u.TotalTokens())
}

func TestNewToolMessageCarriesCallID(t *testing.T) {
	m := NewToolMessage("call-1", "result text")
	assert.Equal(t, "call-1", m.ToolCallID)
	assert.Equal(t, RoleTool, m.Role)
}
