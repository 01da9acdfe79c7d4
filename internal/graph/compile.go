package graph

import (
	"sort"
	"strings"

	"github.com/haasonsaas/swarm/internal/value"
)

// UpdatePolicy governs how many times a channel may be written within a
// single turn.
type UpdatePolicy int

const (
	UpdateOverwrite UpdatePolicy = iota
	UpdateSingle
)

// ChannelScope governs whether a channel is visible across the whole
// workflow or only within the task that wrote it.
type ChannelScope int

const (
	ScopeShared ChannelScope = iota
	ScopeTaskLocal
)

// ChannelSchema declares one named slot a workflow's external writes may
// target. Channels not declared here can still be used internally for the
// replay trace but are unreachable from ApplyExternalWrites.
type ChannelSchema struct {
	Name   string
	Kind   value.Kind
	Policy UpdatePolicy
	Scope  ChannelScope
}

// Graph is a compiled, validated step tree ready to execute.
type Graph struct {
	Root     Step
	Channels map[string]ChannelSchema
}

// Compile validates root and wraps it, with the declared channel schemas,
// into a Graph. It rejects an empty orchestration, duplicate node names
// within a DAG, DAG dependencies on unknown nodes, and DAG cycles.
func Compile(root Step, channels ...ChannelSchema) (*Graph, error) {
	if countLeaves(root) == 0 {
		return nil, &InvalidGraph{Reason: EmptyOrchestration}
	}
	if err := validateStep(root); err != nil {
		return nil, err
	}
	chMap := make(map[string]ChannelSchema, len(channels))
	for _, c := range channels {
		chMap[c.Name] = c
	}
	return &Graph{Root: root, Channels: chMap}, nil
}

func countLeaves(s Step) int {
	switch s.Kind {
	case KindSequential:
		n := 0
		for _, c := range s.Sequence {
			n += countLeaves(c)
		}
		return n
	case KindParallel:
		n := 0
		for _, c := range s.ParallelItems {
			n += countLeaves(c)
		}
		return n
	case KindDAG:
		n := 0
		for _, node := range s.Nodes {
			n += countLeaves(node.Step)
		}
		return n
	case KindRouter:
		n := 0
		for _, r := range s.Routes {
			n += countLeaves(r)
		}
		if s.Fallback != nil {
			n += countLeaves(*s.Fallback)
		}
		return n
	case KindBranch:
		n := 0
		if s.Then != nil {
			n += countLeaves(*s.Then)
		}
		if s.Else != nil {
			n += countLeaves(*s.Else)
		}
		return n
	case KindRepeatWhile:
		if s.Body != nil {
			return countLeaves(*s.Body)
		}
		return 0
	default:
		return 1
	}
}

func validateStep(s Step) error {
	switch s.Kind {
	case KindSequential:
		for _, c := range s.Sequence {
			if err := validateStep(c); err != nil {
				return err
			}
		}
	case KindParallel:
		for _, c := range s.ParallelItems {
			if err := validateStep(c); err != nil {
				return err
			}
		}
	case KindDAG:
		if err := validateDAG(s.Nodes); err != nil {
			return err
		}
		for _, node := range s.Nodes {
			if err := validateStep(node.Step); err != nil {
				return err
			}
		}
	case KindRouter:
		for _, r := range s.Routes {
			if err := validateStep(r); err != nil {
				return err
			}
		}
		if s.Fallback != nil {
			if err := validateStep(*s.Fallback); err != nil {
				return err
			}
		}
	case KindBranch:
		if s.Then != nil {
			if err := validateStep(*s.Then); err != nil {
				return err
			}
		}
		if s.Else != nil {
			if err := validateStep(*s.Else); err != nil {
				return err
			}
		}
	case KindRepeatWhile:
		if s.Body != nil {
			if err := validateStep(*s.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDAG(nodes []DAGNode) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		name := strings.TrimSpace(n.Name)
		if seen[name] {
			return &InvalidGraph{Reason: DuplicateNodeName, NodeNames: []string{name}}
		}
		seen[name] = true
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if !seen[strings.TrimSpace(dep)] {
				return &InvalidGraph{Reason: UnknownDependency, NodeNames: []string{n.Name, dep}}
			}
		}
	}
	if cycle := detectCycle(nodes); len(cycle) > 0 {
		sort.Strings(cycle)
		return &InvalidGraph{Reason: CycleDetected, NodeNames: cycle}
	}
	return nil
}

// detectCycle runs Kahn's algorithm over the DAG's node names and returns
// the set of node names that never reached zero indegree — the cycle —
// or nil if the graph is acyclic.
func detectCycle(nodes []DAGNode) []string {
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		if _, ok := indegree[n.Name]; !ok {
			indegree[n.Name] = 0
		}
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			indegree[n.Name]++
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}

	ready := make([]string, 0)
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	processed := 0
	for len(ready) > 0 {
		next := make([]string, 0)
		for _, name := range ready {
			processed++
			for _, dep := range dependents[name] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		ready = next
	}

	if processed == len(indegree) {
		return nil
	}
	cycle := make([]string, 0, len(indegree)-processed)
	for name, deg := range indegree {
		if deg > 0 {
			cycle = append(cycle, name)
		}
	}
	return cycle
}

// stageDAG groups nodes into topologically ordered, deterministically
// sorted stages. Each stage's nodes may execute concurrently; stage N+1
// only starts once stage N has fully completed. Call only after
// validateDAG has confirmed the node set is acyclic.
func stageDAG(nodes []DAGNode) [][]string {
	byName := make(map[string]DAGNode, len(nodes))
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
		if _, ok := indegree[n.Name]; !ok {
			indegree[n.Name] = 0
		}
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			indegree[n.Name]++
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}

	ready := make([]string, 0)
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var stages [][]string
	for len(ready) > 0 {
		stage := append([]string(nil), ready...)
		stages = append(stages, stage)

		next := make([]string, 0)
		for _, name := range stage {
			for _, dep := range dependents[name] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		ready = next
	}
	return stages
}

// sinkNodes returns the names of nodes with no downstream dependents.
func sinkNodes(nodes []DAGNode) []string {
	hasDependent := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			hasDependent[dep] = true
		}
	}
	sinks := make([]string, 0)
	for _, n := range nodes {
		if !hasDependent[n.Name] {
			sinks = append(sinks, n.Name)
		}
	}
	sort.Strings(sinks)
	return sinks
}
