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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return newGraph(1)
}

func output(s string) *string { return &s }

func TestAddNode(t *testing.T) {
	g := newTestGraph(t)

	err := g.AddNode(FunctionNodeConfig{Name: "ingest", Output: output("ok")})
	require.NoError(t, err)

	node, exists := g.Node("ingest")
	require.True(t, exists)
	assert.Equal(t, NodeKindFunction, node.Kind())
}

func TestAddNodeDuplicate(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "ingest"}))

	err := g.AddNode(AgentNodeConfig{Name: "ingest"})
	assert.ErrorIs(t, err, ErrDuplicateNode, "existing node must never be silently overwritten")

	// The original node survives.
	node, _ := g.Node("ingest")
	assert.Equal(t, NodeKindFunction, node.Kind())
}

func TestAddNodeReservedName(t *testing.T) {
	g := newTestGraph(t)
	assert.Error(t, g.AddNode(FunctionNodeConfig{Name: "start"}))
	assert.Error(t, g.AddNode(FunctionNodeConfig{Name: Start}))
	assert.Error(t, g.AddNode(FunctionNodeConfig{Name: ""}))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, NodeKindAgent, KindOf(AgentNodeConfig{Name: "a"}))
	assert.Equal(t, NodeKindFunction, KindOf(FunctionNodeConfig{Name: "f"}))
}

func TestAddEdge(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a"}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "b"}))

	require.NoError(t, g.AddEdge("a", "b"))
	assert.True(t, g.HasEdge("a", "b"))
}

func TestAddEdgeNormalizesSentinels(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a"}))

	require.NoError(t, g.AddEdge("start", "a"))
	require.NoError(t, g.AddEdge("a", "END"))

	assert.True(t, g.HasEdge(Start, "a"))
	assert.True(t, g.HasEdge("a", End))
}

func TestAddEdgeUnknownEndpoint(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a"}))

	assert.ErrorIs(t, g.AddEdge("a", "missing"), ErrNodeNotFound)
	assert.ErrorIs(t, g.AddEdge("missing", "a"), ErrNodeNotFound)
	assert.Empty(t, g.Edges(), "failed add must leave the edge set unchanged")
}

func TestAddEdgeRejectsReversedSentinels(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a"}))

	assert.ErrorIs(t, g.AddEdge("end", "a"), ErrInvalidEdge)
	assert.ErrorIs(t, g.AddEdge(End, "a"), ErrInvalidEdge)
	assert.ErrorIs(t, g.AddEdge("a", "start"), ErrInvalidEdge)
	assert.ErrorIs(t, g.AddEdge(End, Start), ErrInvalidEdge)
	assert.Empty(t, g.Edges(), "rejected edges never enter the edge set")
}

func TestAddEdgeDuplicate(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a"}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "b"}))
	require.NoError(t, g.AddEdge("a", "b"))

	assert.ErrorIs(t, g.AddEdge("a", "b"), ErrDuplicateEdge)
	assert.Len(t, g.Edges(), 1)
}

func TestRemoveEdge(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a"}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "b"}))
	require.NoError(t, g.AddEdge("a", "b"))

	require.NoError(t, g.RemoveEdge("a", "b"))
	assert.False(t, g.HasEdge("a", "b"))

	assert.ErrorIs(t, g.RemoveEdge("a", "b"), ErrEdgeNotFound)
}

func TestRemoveNodeCascadesExactly(t *testing.T) {
	g := newTestGraph(t)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddNode(FunctionNodeConfig{Name: name}))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("a", "c"))

	require.NoError(t, g.RemoveNode("b"))

	_, exists := g.Node("b")
	assert.False(t, exists)
	assert.Equal(t, []Edge{{Source: "a", Target: "c"}}, g.Edges(),
		"only edges referencing the deleted node are removed")
}

func TestRemoveNodeUnknown(t *testing.T) {
	g := newTestGraph(t)
	assert.ErrorIs(t, g.RemoveNode("missing"), ErrNodeNotFound)
}

func TestUpdateNodePreservesEdges(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "p"}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "m"}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "q"}))
	require.NoError(t, g.AddEdge("p", "m"))
	require.NoError(t, g.AddEdge("m", "q"))

	failed, err := g.UpdateNode("m", FunctionNodeConfig{Name: "m", Output: output("new")})
	require.NoError(t, err)
	assert.Empty(t, failed)

	assert.True(t, g.HasEdge("p", "m"))
	assert.True(t, g.HasEdge("m", "q"))

	node, _ := g.Node("m")
	cfg, ok := node.Config.(FunctionNodeConfig)
	require.True(t, ok)
	require.NotNil(t, cfg.Output)
	assert.Equal(t, "new", *cfg.Output)
}

func TestUpdateNodePreservesSentinelEdges(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "m"}))
	require.NoError(t, g.AddEdge(Start, "m"))
	require.NoError(t, g.AddEdge("m", End))

	failed, err := g.UpdateNode("m", AgentNodeConfig{Name: "m", Prompt: output("echo")})
	require.NoError(t, err)
	assert.Empty(t, failed)

	assert.True(t, g.HasEdge(Start, "m"))
	assert.True(t, g.HasEdge("m", End))

	node, _ := g.Node("m")
	assert.Equal(t, NodeKindAgent, node.Kind(), "config is replaced wholesale")
}

func TestUpdateNodeForcesNameToID(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "m"}))

	_, err := g.UpdateNode("m", FunctionNodeConfig{Name: "other", Output: output("v")})
	require.NoError(t, err)

	node, exists := g.Node("m")
	require.True(t, exists)
	assert.Equal(t, "m", node.Config.NodeName())
	_, exists = g.Node("other")
	assert.False(t, exists)
}

func TestUpdateNodeUnknown(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.UpdateNode("missing", FunctionNodeConfig{Name: "missing"})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestUpdateNodeEdges(t *testing.T) {
	g := newTestGraph(t)
	for _, name := range []string{"a", "b", "m"} {
		require.NoError(t, g.AddNode(FunctionNodeConfig{Name: name}))
	}
	require.NoError(t, g.AddEdge("a", "m"))

	failed, err := g.UpdateNodeEdges("m", []string{"b", "start"}, []string{"end"})
	require.NoError(t, err)
	assert.Empty(t, failed)

	assert.False(t, g.HasEdge("a", "m"), "previous edges are removed")
	assert.True(t, g.HasEdge("b", "m"))
	assert.True(t, g.HasEdge(Start, "m"))
	assert.True(t, g.HasEdge("m", End))
}

func TestUpdateNodeEdgesBestEffort(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "m"}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "b"}))

	failed, err := g.UpdateNodeEdges("m", []string{"b", "missing"}, nil)
	require.NoError(t, err, "one bad edge must not void the update")

	assert.Equal(t, []Edge{{Source: "missing", Target: "m"}}, failed)
	assert.True(t, g.HasEdge("b", "m"), "valid edges are still installed")
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"start", Start},
		{"START", Start},
		{Start, Start},
		{"end", End},
		{"END", End},
		{End, End},
		{"node", "node"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEndpoint(tt.in))
	}
}
