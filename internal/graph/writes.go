package graph

import (
	"context"
	"sync"

	"github.com/haasonsaas/swarm/internal/value"
)

// ExternalWrite is one out-of-band mutation requested against a workflow's
// channel map between steps.
type ExternalWrite struct {
	Channel string
	Scope   ChannelScope
	Value   value.Value
}

// ChannelState is the live channel-value map for a thread, independent of
// any in-flight Run so external writes can be validated and applied between
// steps or between runs.
type ChannelState struct {
	mu              sync.Mutex
	values          *value.OrderedMap
	writtenThisTurn map[string]bool
}

func NewChannelState() *ChannelState {
	return &ChannelState{values: value.NewOrderedMap(), writtenThisTurn: make(map[string]bool)}
}

func (c *ChannelState) Get(channel string) (value.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Get(channel)
}

// ResetTurn clears the single-update-policy bookkeeping. Call it at the
// start of each new turn.
func (c *ChannelState) ResetTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writtenThisTurn = make(map[string]bool)
}

// ApplyExternalWrites validates writes against the graph's declared channel
// schemas and c's current turn state, then applies them all-or-nothing: if
// any write fails validation, none are applied. interrupted short-circuits
// the whole call, since external writes are refused while a thread has an
// unresolved interrupt.
func (g *Graph) ApplyExternalWrites(threadID string, c *ChannelState, interrupted bool, writes []ExternalWrite) error {
	if interrupted {
		return &InterruptPending{ThreadID: threadID}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, w := range writes {
		schema, ok := g.Channels[w.Channel]
		if !ok {
			return &UnknownChannelID{Channel: w.Channel}
		}
		if w.Scope == ScopeTaskLocal && schema.Scope == ScopeShared {
			return &TaskLocalWriteNotAllowed{Channel: w.Channel}
		}
		if schema.Kind != value.KindNull && w.Value.Kind() != schema.Kind {
			return &ChannelTypeMismatch{Channel: w.Channel, Want: schema.Kind, Got: w.Value.Kind()}
		}
		if schema.Policy == UpdateSingle && c.writtenThisTurn[w.Channel] {
			return &UpdatePolicyViolation{Channel: w.Channel}
		}
	}

	for _, w := range writes {
		c.values.Set(w.Channel, w.Value)
		c.writtenThisTurn[w.Channel] = true
	}
	return nil
}

// ApplyExternalWrites is the Engine-level convenience wrapper: it reads
// threadID's current interrupt state from the engine so callers don't have
// to track that separately from the channel state.
func (e *Engine) ApplyExternalWrites(_ context.Context, threadID string, c *ChannelState, writes []ExternalWrite) error {
	e.mu.Lock()
	_, interrupted := e.pending[threadID]
	e.mu.Unlock()
	return e.graph.ApplyExternalWrites(threadID, c, interrupted, writes)
}
