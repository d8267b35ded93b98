//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"fmt"
)

// Step is one node invocation of a compiled plan.
type Step struct {
	// Node is the node to invoke.
	Node *Node
	// Incoming lists the real-node sources of edges targeting this node,
	// in edge insertion order. Agent nodes collect their input from these.
	Incoming []string
}

// Plan is an executable, dependency-respecting ordering of a graph's nodes.
// It is immutable and may be executed any number of times; it does not
// observe later mutations of the graph it was compiled from.
type Plan struct {
	// GraphID is the id of the source graph.
	GraphID int
	// Steps are the node invocations in execution order.
	Steps []Step
	// Edges is the full edge set at compile time, sentinels included.
	Edges []Edge
}

// Compile validates the node and edge set and produces an executable plan.
//
// Every edge endpoint must resolve to a real node or a sentinel
// (ErrDanglingEdge). Cycles among real nodes fail with ErrCycleDetected
// naming one member; the Start/End boundary is excluded from the cycle
// check. The resulting order is a topological sort of the node-to-node
// edges; nodes with no ordering constraint between them are sequenced by
// insertion order so that runs are reproducible.
func (g *Graph) Compile() (*Plan, error) {
	for _, e := range g.edges {
		for _, endpoint := range []string{e.Source, e.Target} {
			if endpoint == Start || endpoint == End {
				continue
			}
			if _, exists := g.nodes[endpoint]; !exists {
				return nil, fmt.Errorf("%w: %s", ErrDanglingEdge, endpoint)
			}
		}
	}

	// Kahn's algorithm over real-node edges, with insertion order as the
	// deterministic tie-break.
	indegree := make(map[string]int, len(g.nodes))
	successors := make(map[string][]string, len(g.nodes))
	incoming := make(map[string][]string, len(g.nodes))
	for _, id := range g.order {
		indegree[id] = 0
	}
	for _, e := range g.edges {
		// AddEdge forbids edges out of End or into Start, so sentinels can
		// only appear in these two positions.
		if e.Source == Start || e.Target == End {
			continue
		}
		successors[e.Source] = append(successors[e.Source], e.Target)
		incoming[e.Target] = append(incoming[e.Target], e.Source)
		indegree[e.Target]++
	}

	ordered := make([]string, 0, len(g.nodes))
	placed := make(map[string]bool, len(g.nodes))
	for len(ordered) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if placed[id] || indegree[id] != 0 {
				continue
			}
			placed[id] = true
			ordered = append(ordered, id)
			for _, succ := range successors[id] {
				indegree[succ]--
			}
			progressed = true
		}
		if !progressed {
			member := findCycleMember(g.order, placed, incoming)
			return nil, fmt.Errorf("%w: involving node %s", ErrCycleDetected, member)
		}
	}

	steps := make([]Step, 0, len(ordered))
	for _, id := range ordered {
		steps = append(steps, Step{
			Node:     g.nodes[id],
			Incoming: incoming[id],
		})
	}
	return &Plan{
		GraphID: g.id,
		Steps:   steps,
		Edges:   g.Edges(),
	}, nil
}

// findCycleMember walks predecessor links among the unplaced nodes. Every
// unplaced node has an unplaced predecessor, so after at most n hops the
// walk revisits a node, which is necessarily on a cycle.
func findCycleMember(order []string, placed map[string]bool, incoming map[string][]string) string {
	var current string
	for _, id := range order {
		if !placed[id] {
			current = id
			break
		}
	}
	seen := make(map[string]bool)
	for !seen[current] {
		seen[current] = true
		for _, pred := range incoming[current] {
			if !placed[pred] {
				current = pred
				break
			}
		}
	}
	return current
}
