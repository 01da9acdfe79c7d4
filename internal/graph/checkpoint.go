package graph

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/haasonsaas/swarm/internal/value"
)

// traceChannel is a reserved channel name holding the replay trace (a map
// from frontier path to recorded output) inside a checkpoint's
// ChannelValues. It is never exposed through Graph.Channels, so
// ApplyExternalWrites can never reach it.
const traceChannel = "__trace__"

// CheckpointState is a persisted, canonically serializable snapshot of one
// workflow run, sufficient to resume it.
type CheckpointState struct {
	WorkflowID         string
	RunID              string
	StepIndex          int
	Frontier           []string
	ChannelValues      *value.OrderedMap
	IntermediateOutput string
	InterruptionReason string
	EventSchemaVersion string
}

// Canonical renders the checkpoint as canonical JSON (sorted keys, no
// escaped forward slashes) so repeated serializations of an equal state are
// byte-identical.
func (c CheckpointState) Canonical() ([]byte, error) {
	obj := value.NewOrderedMap()
	obj.Set("workflowId", value.Str(c.WorkflowID))
	obj.Set("runId", value.Str(c.RunID))
	obj.Set("stepIndex", value.Int(int64(c.StepIndex)))
	frontier := make([]value.Value, len(c.Frontier))
	for i, f := range c.Frontier {
		frontier[i] = value.Str(f)
	}
	obj.Set("frontier", value.Array(frontier))
	if c.ChannelValues != nil {
		obj.Set("channelValues", value.Object(c.ChannelValues))
	} else {
		obj.Set("channelValues", value.Object(value.NewOrderedMap()))
	}
	obj.Set("intermediateOutput", value.Str(c.IntermediateOutput))
	if c.InterruptionReason != "" {
		obj.Set("interruptionReason", value.Str(c.InterruptionReason))
	}
	obj.Set("eventSchemaVersion", value.Str(c.EventSchemaVersion))
	return value.Canonical(value.Object(obj))
}

func (c CheckpointState) trace() map[string]string {
	out := map[string]string{}
	if c.ChannelValues == nil {
		return out
	}
	v, ok := c.ChannelValues.Get(traceChannel)
	if !ok {
		return out
	}
	obj, ok := v.AsObject()
	if !ok {
		return out
	}
	for _, k := range obj.Keys() {
		val, _ := obj.Get(k)
		if s, ok := val.AsString(); ok {
			out[k] = s
		}
	}
	return out
}

func (c *CheckpointState) setTrace(trace map[string]string) {
	if c.ChannelValues == nil {
		c.ChannelValues = value.NewOrderedMap()
	}
	obj := value.NewOrderedMap()
	keys := make([]string, 0, len(trace))
	for k := range trace {
		keys = append(keys, k)
	}
	for _, k := range keys {
		obj.Set(k, value.Str(trace[k]))
	}
	c.ChannelValues.Set(traceChannel, value.Object(obj))
}

// CheckpointPolicyKind selects when a run writes a checkpoint as it
// progresses. An interrupt always writes one regardless of the policy.
type CheckpointPolicyKind int

const (
	CheckpointDisabled CheckpointPolicyKind = iota
	CheckpointEveryStep
	CheckpointEveryNSteps
	CheckpointOnInterrupt
)

// CheckpointPolicy governs routine (non-interrupt) checkpoint cadence.
type CheckpointPolicy struct {
	Kind CheckpointPolicyKind
	N    int
}

func DisabledCheckpointPolicy() CheckpointPolicy { return CheckpointPolicy{Kind: CheckpointDisabled} }
func EveryStepCheckpointPolicy() CheckpointPolicy {
	return CheckpointPolicy{Kind: CheckpointEveryStep}
}
func EveryNStepsCheckpointPolicy(n int) CheckpointPolicy {
	if n <= 0 {
		n = 1
	}
	return CheckpointPolicy{Kind: CheckpointEveryNSteps, N: n}
}
func OnInterruptCheckpointPolicy() CheckpointPolicy {
	return CheckpointPolicy{Kind: CheckpointOnInterrupt}
}

func (p CheckpointPolicy) shouldCheckpoint(stepIndex int) bool {
	switch p.Kind {
	case CheckpointEveryStep:
		return true
	case CheckpointEveryNSteps:
		n := p.N
		if n <= 0 {
			n = 1
		}
		return stepIndex%n == 0
	default:
		return false
	}
}

// CheckpointStore persists and retrieves CheckpointState by workflow ID.
type CheckpointStore interface {
	Save(ctx context.Context, state CheckpointState) error
	Load(ctx context.Context, workflowID string) (*CheckpointState, bool, error)
	Delete(ctx context.Context, workflowID string) error
}

// InMemoryCheckpointStore is a CheckpointStore backed by a guarded map,
// keyed by the sanitized workflow ID. Suitable for tests and single-process
// runs; a durable deployment swaps this for a file- or database-backed
// implementation behind the same interface.
type InMemoryCheckpointStore struct {
	mu     sync.Mutex
	states map[string]CheckpointState
}

func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{states: make(map[string]CheckpointState)}
}

func (s *InMemoryCheckpointStore) Save(_ context.Context, state CheckpointState) error {
	key := SanitizeWorkflowID(state.WorkflowID)
	cp := state
	if cp.ChannelValues != nil {
		cp.ChannelValues = cp.ChannelValues.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = cp
	return nil
}

func (s *InMemoryCheckpointStore) Load(_ context.Context, workflowID string) (*CheckpointState, bool, error) {
	key := SanitizeWorkflowID(workflowID)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.states[key]
	if !ok {
		return nil, false, nil
	}
	if cp.ChannelValues != nil {
		cp.ChannelValues = cp.ChannelValues.Clone()
	}
	return &cp, true, nil
}

func (s *InMemoryCheckpointStore) Delete(_ context.Context, workflowID string) error {
	key := SanitizeWorkflowID(workflowID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}

// SanitizeWorkflowID produces a checkpoint-store key with no path
// separators and no ".." sequences, replacing '/', '\\', ':', and any byte
// outside [A-Za-z0-9._-] with '_'.
func SanitizeWorkflowID(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c == '/' || c == '\\' || c == ':':
			b.WriteByte('_')
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", "_")
	}
	if out == "" {
		out = "_"
	}
	return out
}

// newRunID mints an identifier for a workflow run, checkpoint, or interrupt.
func newRunID() string { return uuid.NewString() }
