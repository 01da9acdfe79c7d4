package value

// OrderedMap is a string-keyed map that preserves insertion order, used for
// Value's Object variant and anywhere deterministic key order matters
// (tool call arguments, checkpoint channel values). It is hand-written
// rather than pulled from a third-party ordered-map package — see
// DESIGN.md for why no pack example grounds one closely enough to trust.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Value)}
}

// Set inserts or updates a key. Existing keys keep their original position.
func (m *OrderedMap) Set(key string, v Value) *OrderedMap {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

// Get retrieves a value by key.
func (m *OrderedMap) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Delete removes a key, preserving the order of the remaining keys.
func (m *OrderedMap) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns a deep-enough copy (keys and top-level value slots; Values
// themselves are immutable so no further copying is required).
func (m *OrderedMap) Clone() *OrderedMap {
	if m == nil {
		return NewOrderedMap()
	}
	out := NewOrderedMap()
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// SortedKeys returns the keys ordered by raw UTF-8 byte sequence, the order
// required for canonical JSON and for ToolRegistry.List.
func (m *OrderedMap) SortedKeys() []string {
	keys := m.Keys()
	sortByBytes(keys)
	return keys
}

func sortByBytes(s []string) {
	// Insertion sort is fine here: OrderedMap instances are small (tool
	// parameter lists, channel value maps) and this keeps the comparator
	// trivially byte-wise without reaching for sort.Slice's overhead.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && lessBytes(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func lessBytes(a, b string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
