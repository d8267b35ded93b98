//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

// Package graph provides a mutable directed computation graph over function
// and agent nodes, plus the compiler and executor that run it, similar to
// LangGraph.
package graph

import (
	"fmt"

	"trpc.group/trpc-go/trpc-graph-go/log"
)

// Reserved identifiers marking graph entry and exit. They never carry a Node
// record; edges may reference them freely.
const (
	// Start is the entry sentinel of every graph.
	Start = "__start__"
	// End is the exit sentinel of every graph.
	End = "__end__"
)

// Portable markers used when edges are snapshotted across a node update.
const (
	startMarker = "start"
	endMarker   = "end"
)

// Edge represents a directed dependency between two node identifiers.
// Endpoints are node ids or the Start/End sentinels. Edges carry no weight
// or label, and the edge set holds no duplicate pairs.
type Edge struct {
	// Source is the source endpoint.
	Source string `json:"source"`
	// Target is the target endpoint.
	Target string `json:"target"`
}

// Graph owns a mapping from node identifier to Node and a set of directed
// edges. It is mutated only through its methods and is not safe for
// concurrent use; callers synchronize per graph id via Store.Acquire.
type Graph struct {
	id    int
	nodes map[string]*Node
	// order records node insertion order for deterministic compilation.
	order []string
	edges []Edge
}

// newGraph creates a new empty graph with the given id.
func newGraph(id int) *Graph {
	return &Graph{
		id:    id,
		nodes: make(map[string]*Node),
	}
}

// ID returns the graph id assigned by the store.
func (g *Graph) ID() int { return g.id }

// NormalizeEndpoint maps the portable markers "start"/"START" and
// "end"/"END" to the reserved sentinels. Other identifiers are returned
// unchanged.
func NormalizeEndpoint(endpoint string) string {
	switch endpoint {
	case startMarker, "START", Start:
		return Start
	case endMarker, "END", End:
		return End
	default:
		return endpoint
	}
}

// markerFor translates a sentinel back to its portable marker for edge
// snapshots.
func markerFor(endpoint string) string {
	switch endpoint {
	case Start:
		return startMarker
	case End:
		return endMarker
	default:
		return endpoint
	}
}

// AddNode adds a node built from the given configuration. The node kind is
// determined by the concrete config type. Adding a name that already exists
// fails with ErrDuplicateNode; the graph is left unchanged. Edges are not
// touched.
func (g *Graph) AddNode(config NodeConfig) error {
	name := config.NodeName()
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	if name == Start || name == End || name == startMarker || name == endMarker {
		return fmt.Errorf("node name %q is reserved", name)
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	g.nodes[name] = &Node{ID: name, Config: config}
	g.order = append(g.order, name)
	return nil
}

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// Nodes returns the graph's nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns a copy of the edge set in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// HasEdge reports whether the (source, target) pair is in the edge set.
// Endpoints are normalized before the lookup.
func (g *Graph) HasEdge(source, target string) bool {
	edge := Edge{Source: NormalizeEndpoint(source), Target: NormalizeEndpoint(target)}
	for _, e := range g.edges {
		if e == edge {
			return true
		}
	}
	return false
}

// AddEdge inserts the directed edge (source, target). Sentinel markers are
// normalized first. Edges out of End or into Start are rejected with
// ErrInvalidEdge, non-sentinel endpoints must name existing nodes
// (ErrNodeNotFound), and the pair must not already exist (ErrDuplicateEdge).
func (g *Graph) AddEdge(source, target string) error {
	edge := Edge{Source: NormalizeEndpoint(source), Target: NormalizeEndpoint(target)}
	if edge.Source == End {
		return fmt.Errorf("%w: %s cannot be an edge source", ErrInvalidEdge, End)
	}
	if edge.Target == Start {
		return fmt.Errorf("%w: %s cannot be an edge target", ErrInvalidEdge, Start)
	}
	for _, endpoint := range []string{edge.Source, edge.Target} {
		if endpoint == Start || endpoint == End {
			continue
		}
		if _, exists := g.nodes[endpoint]; !exists {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, endpoint)
		}
	}
	for _, e := range g.edges {
		if e == edge {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, edge.Source, edge.Target)
		}
	}
	g.edges = append(g.edges, edge)
	return nil
}

// RemoveEdge removes the directed edge (source, target), failing with
// ErrEdgeNotFound when the pair is absent.
func (g *Graph) RemoveEdge(source, target string) error {
	edge := Edge{Source: NormalizeEndpoint(source), Target: NormalizeEndpoint(target)}
	for i, e := range g.edges {
		if e == edge {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, edge.Source, edge.Target)
}

// RemoveEdgesFor removes every edge where the node appears as source or
// target and returns the removed edges in their original order.
func (g *Graph) RemoveEdgesFor(nodeID string) []Edge {
	var removed []Edge
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == nodeID || e.Target == nodeID {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	return removed
}

// RemoveNode deletes a node and cascades removal of every edge referencing
// it. Unknown ids fail with ErrNodeNotFound.
func (g *Graph) RemoveNode(id string) error {
	if _, exists := g.nodes[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	delete(g.nodes, id)
	for i, name := range g.order {
		if name == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.RemoveEdgesFor(id)
	return nil
}

// snapshotEdgesFor captures every edge touching the node, with sentinels
// translated to their portable markers so the snapshot survives the
// delete-and-recreate cycle.
func (g *Graph) snapshotEdgesFor(nodeID string) []Edge {
	var snapshot []Edge
	for _, e := range g.edges {
		if e.Source != nodeID && e.Target != nodeID {
			continue
		}
		snapshot = append(snapshot, Edge{
			Source: markerFor(e.Source),
			Target: markerFor(e.Target),
		})
	}
	return snapshot
}

// replayEdges re-adds snapshotted edges, translating markers back to
// sentinels. Individual failures are logged and collected, never fatal: one
// bad edge must not void an otherwise-valid update.
func (g *Graph) replayEdges(snapshot []Edge) []Edge {
	var failed []Edge
	for _, e := range snapshot {
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			log.Warnf("graph %d: could not restore edge %s -> %s: %v", g.id, e.Source, e.Target, err)
			failed = append(failed, e)
		}
	}
	return failed
}

// UpdateNode replaces a node's configuration wholesale. Because configs are
// immutable, the node is deleted and recreated under the same id; every edge
// touching it is snapshotted first and replayed afterwards. The returned
// slice lists edges that could not be restored (best-effort, already
// logged). The config's name is forced to the node id.
func (g *Graph) UpdateNode(id string, config NodeConfig) ([]Edge, error) {
	if _, exists := g.nodes[id]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	snapshot := g.snapshotEdgesFor(id)
	if err := g.RemoveNode(id); err != nil {
		return nil, err
	}
	if err := g.AddNode(withName(config, id)); err != nil {
		return nil, err
	}
	return g.replayEdges(snapshot), nil
}

// UpdateNodeEdges rewrites the edges touching a node: the current set is
// removed and the given predecessor and successor endpoints are installed.
// Individual add failures are logged and returned, so a best-effort set of
// valid edges is still in place afterwards. Unknown ids fail with
// ErrNodeNotFound before anything is removed.
func (g *Graph) UpdateNodeEdges(id string, sources, targets []string) ([]Edge, error) {
	if _, exists := g.nodes[id]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	g.RemoveEdgesFor(id)
	replay := make([]Edge, 0, len(sources)+len(targets))
	for _, source := range sources {
		replay = append(replay, Edge{Source: source, Target: id})
	}
	for _, target := range targets {
		replay = append(replay, Edge{Source: id, Target: target})
	}
	return g.replayEdges(replay), nil
}
