package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/haasonsaas/swarm/internal/value"
)

// Event is one entry in a run's observation transcript: a kind tag plus
// whatever fields that kind carries. The agent loop and graph engine both
// produce these for replay comparison.
type Event struct {
	Kind   string
	Fields *value.OrderedMap
}

func (e Event) canonicalValue(schemaVersion string) value.Value {
	obj := value.NewOrderedMap()
	obj.Set("kind", value.Str(e.Kind))
	obj.Set("schemaVersion", value.Str(schemaVersion))
	fields := e.Fields
	if fields == nil {
		fields = value.NewOrderedMap()
	}
	obj.Set("fields", value.Object(fields))
	return value.Object(obj)
}

// ProjectTranscript renders events as a canonical, stably field-ordered
// sequence of Values tagged with expectedSchemaVersion, suitable for
// hashing or diffing across replays.
func ProjectTranscript(events []Event, expectedSchemaVersion string) []value.Value {
	projected := make([]value.Value, len(events))
	for i, e := range events {
		projected[i] = e.canonicalValue(expectedSchemaVersion)
	}
	return projected
}

// TranscriptHash returns a stable hex-encoded hash of events' canonical
// projection. Two replays of the same deterministic graph produce the same
// hash.
func TranscriptHash(events []Event) (string, error) {
	projected := ProjectTranscript(events, EventSchemaVersion)
	data, err := value.Canonical(value.Array(projected))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FinalStateHash returns a stable hex-encoded hash of a channel-value
// snapshot's canonical JSON.
func FinalStateHash(snapshot *value.OrderedMap) (string, error) {
	if snapshot == nil {
		snapshot = value.NewOrderedMap()
	}
	data, err := value.Canonical(value.Object(snapshot))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FirstDiff returns a pointer to the first index where expected and actual
// diverge, formatted as "events[N]". It returns ("", false) when the two
// transcripts are equal.
func FirstDiff(expected, actual []Event) (string, bool) {
	n := len(expected)
	if len(actual) < n {
		n = len(actual)
	}
	for i := 0; i < n; i++ {
		ea, _ := value.Canonical(expected[i].canonicalValue(EventSchemaVersion))
		aa, _ := value.Canonical(actual[i].canonicalValue(EventSchemaVersion))
		if string(ea) != string(aa) {
			return fmt.Sprintf("events[%d]", i), true
		}
	}
	if len(expected) != len(actual) {
		return fmt.Sprintf("events[%d]", n), true
	}
	return "", false
}

// FirstDiffState returns a pointer to the first channel key where expected
// and actual disagree (present in one but not the other, or differing in
// value), or ("", false) if the two snapshots are equal.
func FirstDiffState(expected, actual *value.OrderedMap) (string, bool) {
	if expected == nil {
		expected = value.NewOrderedMap()
	}
	if actual == nil {
		actual = value.NewOrderedMap()
	}
	seen := make(map[string]bool, expected.Len())
	for _, k := range expected.SortedKeys() {
		seen[k] = true
		ev, _ := expected.Get(k)
		av, ok := actual.Get(k)
		if !ok {
			return k, true
		}
		eb, _ := value.Canonical(ev)
		ab, _ := value.Canonical(av)
		if string(eb) != string(ab) {
			return k, true
		}
	}
	for _, k := range actual.SortedKeys() {
		if !seen[k] {
			return k, true
		}
	}
	return "", false
}
