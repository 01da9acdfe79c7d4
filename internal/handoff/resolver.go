package handoff

import "strings"

// Resolver picks a Target from a free-text query, following the priority
// cascade from spec.md's handoff resolution rule: (1) exact ID match
// (identity), (2) case-insensitive name or ID match, (3) type match, and —
// generalizing the teacher's forgiving partial-Contains tier for free-text
// queries — (4) a substring match against name or ID. Ambiguity within a
// tier resolves to the first candidate in declaration order.
type Resolver struct{}

// NewResolver returns a Resolver. It holds no state; all behavior is a pure
// function of its arguments.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve returns the first candidate matching query under the priority
// cascade, or (nil, false) if none match.
func (r *Resolver) Resolve(candidates []Target, query string) (Target, bool) {
	query = strings.TrimSpace(query)
	if query == "" || len(candidates) == 0 {
		return nil, false
	}

	for _, c := range candidates {
		if c.ID() == query {
			return c, true
		}
	}

	lower := strings.ToLower(query)
	for _, c := range candidates {
		if strings.ToLower(c.Name()) == lower || strings.ToLower(c.ID()) == lower {
			return c, true
		}
	}

	for _, c := range candidates {
		if strings.ToLower(c.Type()) == lower {
			return c, true
		}
	}

	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name()), lower) || strings.Contains(strings.ToLower(c.ID()), lower) {
			return c, true
		}
	}

	return nil, false
}
