// Package membrane implements the context membrane: a prompt planner that,
// under a strict token/char budget, decides which tool schemas and which
// history fragments enter the next model call, substituting oversized
// content with resolvable pointers instead of truncating it.
//
// Grounded on internal/agent/context/packer.go's budget-accounting shape
// (reserve space for fixed messages, then select history from most-recent
// backwards until MaxMessages/MaxChars would be exceeded, reverse once for
// chronological order) generalized from a fixed message list to the
// membrane's two independent budgets: tool-schema exposure and per-message
// pointerization.
package membrane

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/haasonsaas/swarm/internal/value"
)

// Synthetic tool names the membrane always exposes while active.
const (
	ToolLoadToolSchema = "membrane_load_tool_schema"
	ToolAddTools       = "Add_Tools"
	ToolRemoveTools    = "Remove_Tools"
	ToolResolvePointer = "resolve_pointer"
)

// Profile bundles the membrane's heuristic thresholds. "strict4k" is the
// name used for a small, char-budget profile; callers may define others.
type Profile struct {
	Name                   string
	CharBudget             int
	JITMinToolCount        int // minimum catalog size that triggers JIT planning
	DefaultJITLoadCount    int // how many tool schemas to expose initially
	PointerThresholdBytes  int // size above which content is pointerized
	PointerSummaryMaxChars int // length of pointer preview text
}

// Strict4KProfile is a small, strict budget profile: every schema exposed
// costs real space, so JIT planning and pointerization both trigger
// aggressively.
func Strict4KProfile() Profile {
	return Profile{
		Name:                   "strict4k",
		CharBudget:             4096,
		JITMinToolCount:        8,
		DefaultJITLoadCount:    4,
		PointerThresholdBytes:  512,
		PointerSummaryMaxChars: 120,
	}
}

func (p Profile) sanitize() Profile {
	if p.CharBudget <= 0 {
		p.CharBudget = 4096
	}
	if p.JITMinToolCount <= 0 {
		p.JITMinToolCount = 8
	}
	if p.DefaultJITLoadCount <= 0 {
		p.DefaultJITLoadCount = 4
	}
	if p.PointerThresholdBytes <= 0 {
		p.PointerThresholdBytes = 512
	}
	if p.PointerSummaryMaxChars <= 0 {
		p.PointerSummaryMaxChars = 120
	}
	return p
}

// Pointer is a stand-in for content too large to inline in the prompt.
type Pointer struct {
	ID      string
	Preview string
	Size    int
}

// Plan is one turn's planner output.
type Plan struct {
	Prompt        string
	ExposedTools  []value.ToolSchema
	Pointers      []Pointer
	FallbackUsed  bool
	FallbackError string
}

// Planner is the membrane's stateful core: it tracks which tools the model
// has used this session, model-directed catalog amendments, and the pointer
// table content is resolved against across turns.
type Planner struct {
	profile Profile

	mu           sync.Mutex
	usedTools    map[string]bool
	added        map[string]bool
	removed      map[string]bool
	pointerTable map[string]string
	pointerSeq   uint64
}

func NewPlanner(profile Profile) *Planner {
	return &Planner{
		profile:      profile.sanitize(),
		usedTools:    make(map[string]bool),
		added:        make(map[string]bool),
		removed:      make(map[string]bool),
		pointerTable: make(map[string]string),
	}
}

// RecordToolUse marks name as having been called this session, influencing
// future selection priority.
func (p *Planner) RecordToolUse(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usedTools[name] = true
}

// AddTools applies a model-directed catalog amendment for subsequent turns.
func (p *Planner) AddTools(names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range names {
		p.added[n] = true
		delete(p.removed, n)
	}
}

// RemoveTools applies a model-directed catalog amendment for subsequent
// turns.
func (p *Planner) RemoveTools(names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range names {
		p.removed[n] = true
		delete(p.added, n)
	}
}

// ResolvePointer retrieves the original content for a pointerized message.
func (p *Planner) ResolvePointer(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	content, ok := p.pointerTable[id]
	return content, ok
}

// LoadToolSchema looks up a tool the planner excluded from this turn.
func (p *Planner) LoadToolSchema(catalog []value.ToolSchema, name string) (value.ToolSchema, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return value.ToolSchema{}, false
}

func (p *Planner) nextPointerID() string {
	n := atomic.AddUint64(&p.pointerSeq, 1)
	return fmt.Sprintf("ptr-%d", n)
}

// Plan selects tool schemas and assembles a prompt from history under the
// configured profile. userInput is used only to bias tool selection toward
// textually matching names.
func (p *Planner) Plan(catalog []value.ToolSchema, history []value.MemoryMessage, userInput string) Plan {
	sorted := make([]value.ToolSchema, len(catalog))
	copy(sorted, catalog)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	exposed := p.selectTools(sorted, userInput)
	// The four synthetic tools are always exposed while the membrane is
	// active, regardless of JIT selection: a model that can't see
	// membrane_load_tool_schema/Add_Tools/Remove_Tools/resolve_pointer has
	// no way to widen its own catalog or resolve a pointerized message.
	exposed = append(exposed, syntheticToolSchemas()...)
	lines, pointers := p.renderHistory(history)

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(l)
	}

	return Plan{Prompt: b.String(), ExposedTools: exposed, Pointers: pointers}
}

// selectTools applies JIT selection: below the minimum catalog size, every
// tool not explicitly removed is exposed; at or above it, only
// DefaultJITLoadCount are, favoring previously used tools, then
// name-matches against userInput, then alphabetic fill, plus the four
// mandatory synthetic tools and any model-added tools.
func (p *Planner) selectTools(sorted []value.ToolSchema, userInput string) []value.ToolSchema {
	p.mu.Lock()
	removed := make(map[string]bool, len(p.removed))
	for k := range p.removed {
		removed[k] = true
	}
	added := make(map[string]bool, len(p.added))
	for k := range p.added {
		added[k] = true
	}
	used := make(map[string]bool, len(p.usedTools))
	for k := range p.usedTools {
		used[k] = true
	}
	p.mu.Unlock()

	available := make([]value.ToolSchema, 0, len(sorted))
	for _, s := range sorted {
		if removed[s.Name] && !added[s.Name] {
			continue
		}
		available = append(available, s)
	}

	var selected []value.ToolSchema
	if len(available) < p.profile.JITMinToolCount {
		selected = available
	} else {
		byName := make(map[string]value.ToolSchema, len(available))
		for _, s := range available {
			byName[s.Name] = s
		}
		chosen := make(map[string]bool)
		var ordered []value.ToolSchema

		take := func(name string) {
			if chosen[name] {
				return
			}
			if s, ok := byName[name]; ok {
				chosen[name] = true
				ordered = append(ordered, s)
			}
		}

		for _, s := range available {
			if used[s.Name] {
				take(s.Name)
			}
		}
		lowerInput := strings.ToLower(userInput)
		if lowerInput != "" {
			for _, s := range available {
				if strings.Contains(lowerInput, strings.ToLower(s.Name)) {
					take(s.Name)
				}
			}
		}
		for _, s := range available {
			if len(ordered) >= p.profile.DefaultJITLoadCount {
				break
			}
			take(s.Name)
		}
		if len(ordered) > p.profile.DefaultJITLoadCount {
			ordered = ordered[:p.profile.DefaultJITLoadCount]
		}
		selected = ordered
	}

	for name := range added {
		if s, ok := find(available, name); ok {
			selected = appendIfAbsent(selected, s)
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].Name < selected[j].Name })
	return selected
}

func find(schemas []value.ToolSchema, name string) (value.ToolSchema, bool) {
	for _, s := range schemas {
		if s.Name == name {
			return s, true
		}
	}
	return value.ToolSchema{}, false
}

func appendIfAbsent(schemas []value.ToolSchema, s value.ToolSchema) []value.ToolSchema {
	for _, existing := range schemas {
		if existing.Name == s.Name {
			return schemas
		}
	}
	return append(schemas, s)
}

// renderHistory assembles the chronological transcript, replacing any
// message whose content exceeds PointerThresholdBytes with a pointer
// record, and trimming from the oldest end until the result fits
// CharBudget. Falling back to brute truncation of a single message's text
// is never done; pointerization is always the mechanism that saves space.
func (p *Planner) renderHistory(history []value.MemoryMessage) ([]string, []Pointer) {
	type rendered struct {
		line    string
		pointer *Pointer
	}
	entries := make([]rendered, 0, len(history))

	for _, msg := range history {
		if len(msg.Content) > p.profile.PointerThresholdBytes {
			ptr := p.pointerize(msg.Content)
			entries = append(entries, rendered{
				line:    fmt.Sprintf("%s: [pointer:%s] %s", msg.Role, ptr.ID, ptr.Preview),
				pointer: &ptr,
			})
			continue
		}
		entries = append(entries, rendered{line: string(msg.Role) + ": " + msg.Content})
	}

	// Select from the end backwards to fit CharBudget, then restore
	// chronological order, mirroring the packer's reserve-then-backfill
	// shape.
	var selectedReverse []rendered
	used := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		cost := len(e.line) + 1
		if used+cost > p.profile.CharBudget {
			// Pointerize more aggressively: if this entry isn't already a
			// pointer, replace it with one rather than dropping it silently.
			if e.pointer == nil {
				ptr := p.pointerize(history[i].Content)
				e = rendered{line: fmt.Sprintf("%s: [pointer:%s] %s", history[i].Role, ptr.ID, ptr.Preview), pointer: &ptr}
				cost = len(e.line) + 1
				if used+cost > p.profile.CharBudget {
					break
				}
			} else {
				break
			}
		}
		selectedReverse = append(selectedReverse, e)
		used += cost
	}

	lines := make([]string, len(selectedReverse))
	var pointers []Pointer
	for i, e := range selectedReverse {
		lines[len(selectedReverse)-1-i] = e.line
		if e.pointer != nil {
			pointers = append(pointers, *e.pointer)
		}
	}
	return lines, pointers
}

func (p *Planner) pointerize(content string) Pointer {
	p.mu.Lock()
	id := p.nextPointerID()
	p.pointerTable[id] = content
	p.mu.Unlock()

	preview := content
	if len(preview) > p.profile.PointerSummaryMaxChars {
		preview = preview[:p.profile.PointerSummaryMaxChars]
	}
	return Pointer{ID: id, Preview: preview, Size: len(content)}
}
