package handoff

import (
	"context"
	"fmt"
	"strings"
)

// RouteDecision is the outcome of a routing strategy: which agent should
// handle the message, how confident the strategy was, and (for LLM-based
// strategies) why.
type RouteDecision struct {
	SelectedAgentName string
	Confidence        float64
	Reasoning         string
}

// Strategy selects a route from a message and the set of candidate agent
// names. Built-ins below cover keyword match, LLM classification, and a
// fixed route for tests.
type Strategy interface {
	SelectRoute(ctx context.Context, message string, candidates []string) (RouteDecision, error)
}

// KeywordRoute pairs an agent name with the keywords that route to it.
type KeywordRoute struct {
	AgentName string
	Keywords  []string
}

// KeywordStrategy scores each configured route by the fraction of its
// keywords present in the message (case-insensitive substring match) and
// selects the highest-scoring route. Grounded on
// internal/multiagent/router.go's evaluateKeywordTrigger.
type KeywordStrategy struct {
	Routes []KeywordRoute
}

func (s *KeywordStrategy) SelectRoute(_ context.Context, message string, candidates []string) (RouteDecision, error) {
	lower := strings.ToLower(message)
	allowed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		allowed[c] = true
	}

	var best RouteDecision
	bestScore := 0.0
	for _, route := range s.Routes {
		if len(allowed) > 0 && !allowed[route.AgentName] {
			continue
		}
		if len(route.Keywords) == 0 {
			continue
		}
		matched := 0
		for _, kw := range route.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(route.Keywords))
		if score > bestScore {
			bestScore = score
			best = RouteDecision{
				SelectedAgentName: route.AgentName,
				Confidence:        score,
				Reasoning:         fmt.Sprintf("%d/%d keywords matched", matched, len(route.Keywords)),
			}
		}
	}
	if bestScore == 0 {
		return RouteDecision{}, &NoRouteMatched{}
	}
	return best, nil
}

// Classifier is an LLM-backed intent classifier: given a message and the
// candidate agent names, it names the best match plus a confidence and free
// text reasoning.
type Classifier interface {
	Classify(ctx context.Context, message string, candidates []string) (agent string, confidence float64, reasoning string, err error)
}

// LLMStrategy delegates route selection to a Classifier.
type LLMStrategy struct {
	Classifier Classifier
}

func (s *LLMStrategy) SelectRoute(ctx context.Context, message string, candidates []string) (RouteDecision, error) {
	if s.Classifier == nil {
		return RouteDecision{}, &InvalidDeclaration{Reason: "LLMStrategy requires a Classifier"}
	}
	agent, confidence, reasoning, err := s.Classifier.Classify(ctx, message, candidates)
	if err != nil {
		return RouteDecision{}, err
	}
	return RouteDecision{SelectedAgentName: agent, Confidence: confidence, Reasoning: reasoning}, nil
}

// FixedStrategy always selects the same agent, for deterministic tests.
type FixedStrategy struct {
	AgentName string
}

func (s FixedStrategy) SelectRoute(_ context.Context, _ string, _ []string) (RouteDecision, error) {
	return RouteDecision{SelectedAgentName: s.AgentName, Confidence: 1.0, Reasoning: "fixed route"}, nil
}

// Router selects an agent for a message via a Strategy, then resolves
// availability through an InterruptionPolicy: if the selected route's target
// is unavailable, the policy governs whether and how a fallback runs.
// Grounded on internal/multiagent/router.go's Router type.
type Router struct {
	strategy Strategy
	routes   map[string]Target
	order    []string
	fallback Target
	policy   InterruptionPolicy
}

// NewRouter builds a Router around strategy, applying policy whenever the
// strategy's chosen target is unavailable.
func NewRouter(strategy Strategy, policy InterruptionPolicy) *Router {
	return &Router{
		strategy: strategy,
		routes:   make(map[string]Target),
		policy:   policy,
	}
}

// AddRoute registers target under name, making it a candidate for Route.
// Registration order determines candidate order passed to the strategy.
func (r *Router) AddRoute(name string, target Target) {
	if _, exists := r.routes[name]; !exists {
		r.order = append(r.order, name)
	}
	r.routes[name] = target
}

// SetFallback sets the target used when the selected route is unavailable
// under a fallback-capable policy.
func (r *Router) SetFallback(target Target) { r.fallback = target }

// Route selects a target for message and runs it (applying the
// InterruptionPolicy if the selected target is unavailable), returning the
// target's output, the strategy's decision, and which target actually ran
// ("primary" or "fallback").
func (r *Router) Route(ctx context.Context, message string) (output string, decision RouteDecision, ran string, err error) {
	dec, err := r.strategy.SelectRoute(ctx, message, r.order)
	if err != nil {
		return "", RouteDecision{}, "", err
	}
	target, ok := r.routes[dec.SelectedAgentName]
	if !ok {
		return "", dec, "", &UnknownRoute{AgentName: dec.SelectedAgentName}
	}
	out, ran, err := r.policy.Resolve(ctx, target, r.fallback, message)
	return out, dec, ran, err
}
