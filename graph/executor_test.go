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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-graph-go/model"
	"trpc.group/trpc-go/trpc-graph-go/runner"
)

// fakeRunner echoes the last input message prefixed with "echo:", and
// records the requests it receives.
type fakeRunner struct {
	requests []*runner.Request
	err      error
	empty    bool
}

func (f *fakeRunner) Run(_ context.Context, req *runner.Request) (*runner.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &runner.Response{}, nil
	}
	last := req.Messages[len(req.Messages)-1]
	reply := model.NewAssistantMessage("echo:" + last.Content)
	return &runner.Response{Messages: append(append([]model.Message(nil), req.Messages...), reply)}, nil
}

var testRC = RuntimeContext{Provider: "openai", Model: "gpt-4o"}

func compilePlan(t *testing.T, g *Graph) *Plan {
	t.Helper()
	plan, err := g.Compile()
	require.NoError(t, err)
	return plan
}

func TestRunFunctionNodes(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a", Output: output("x")}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "b", Output: output("y")}))
	require.NoError(t, g.AddEdge("a", "b"))

	exec := NewExecutor(&fakeRunner{})
	result, err := exec.Run(context.Background(), compilePlan(t, g), State{}, testRC)
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, map[string]any{"a": "x", "b": "y"}, result.State.Output())
	assert.NotEmpty(t, result.InvocationID)
}

func TestRunFunctionNodeWithoutOutput(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a"}))

	exec := NewExecutor(&fakeRunner{})
	result, err := exec.Run(context.Background(), compilePlan(t, g), State{}, testRC)
	require.NoError(t, err)

	value, exists := result.State.Output()["a"]
	assert.True(t, exists)
	assert.Nil(t, value, "unset output writes a null value")
}

func TestRunMergeCommutativeForIndependentNodes(t *testing.T) {
	build := func(first, second string) *Graph {
		g := newTestGraph(t)
		require.NoError(t, g.AddNode(FunctionNodeConfig{Name: first, Output: output("x" + first)}))
		require.NoError(t, g.AddNode(FunctionNodeConfig{Name: second, Output: output("x" + second)}))
		return g
	}
	exec := NewExecutor(&fakeRunner{})

	ab, err := exec.Run(context.Background(), compilePlan(t, build("a", "b")), State{}, testRC)
	require.NoError(t, err)
	ba, err := exec.Run(context.Background(), compilePlan(t, build("b", "a")), State{}, testRC)
	require.NoError(t, err)

	assert.Equal(t, ab.State.Output(), ba.State.Output())
}

func TestRunLastWriterWins(t *testing.T) {
	// The initial state already carries a value under the node's key; the
	// node's own write lands later and must overwrite it.
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "n", Output: output("one")}))

	exec := NewExecutor(&fakeRunner{})
	initial := State{StateKeyOutput: map[string]any{"n": "zero"}}
	result, err := exec.Run(context.Background(), compilePlan(t, g), initial, testRC)
	require.NoError(t, err)

	assert.Equal(t, "one", result.State.Output()["n"], "the later writer wins")
}

func TestRunAgentNodeCollectsFromEdges(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "ingest", Output: output("ok")}))
	require.NoError(t, g.AddNode(AgentNodeConfig{Name: "reply", Prompt: output("echo")}))
	require.NoError(t, g.AddEdge(Start, "ingest"))
	require.NoError(t, g.AddEdge("ingest", "reply"))
	require.NoError(t, g.AddEdge("reply", End))

	fr := &fakeRunner{}
	exec := NewExecutor(fr)
	initial := State{StateKeyInput: []string{"hello"}}
	result, err := exec.Run(context.Background(), compilePlan(t, g), initial, testRC)
	require.NoError(t, err)

	assert.Equal(t, "ok", result.State.Output()["ingest"])
	assert.Equal(t, "echo:ok", result.State.Output()["reply"])

	require.Len(t, fr.requests, 1)
	req := fr.requests[0]
	assert.Equal(t, "openai:gpt-4o", req.Model)
	assert.Equal(t, "echo", req.Prompt)
	assert.Empty(t, req.Tools)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, model.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "ok", req.Messages[0].Content)
}

func TestRunAgentNodeConfiguredInputNodes(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a", Output: output("from-a")}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "b", Output: output("from-b")}))
	require.NoError(t, g.AddNode(AgentNodeConfig{Name: "agent", InputNodes: []string{"b"}}))
	require.NoError(t, g.AddEdge("a", "agent"))

	fr := &fakeRunner{}
	exec := NewExecutor(fr)
	_, err := exec.Run(context.Background(), compilePlan(t, g), State{}, testRC)
	require.NoError(t, err)

	require.Len(t, fr.requests, 1)
	require.Len(t, fr.requests[0].Messages, 1)
	assert.Equal(t, "from-b", fr.requests[0].Messages[0].Content,
		"configured input nodes take precedence over edge wiring")
}

func TestRunAgentNodeSkipsEmptyUpstream(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "silent"}))
	require.NoError(t, g.AddNode(AgentNodeConfig{Name: "agent"}))
	require.NoError(t, g.AddEdge("silent", "agent"))

	fr := &fakeRunner{}
	exec := NewExecutor(fr)
	initial := State{StateKeyInput: []string{"fallback"}}
	_, err := exec.Run(context.Background(), compilePlan(t, g), initial, testRC)
	require.NoError(t, err)

	require.Len(t, fr.requests, 1)
	require.Len(t, fr.requests[0].Messages, 1)
	assert.Equal(t, "fallback", fr.requests[0].Messages[0].Content,
		"empty upstream output falls back to the run input")
}

func TestRunAgentNodeNoInputFailsFast(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(AgentNodeConfig{Name: "agent"}))

	fr := &fakeRunner{}
	exec := NewExecutor(fr)
	result, err := exec.Run(context.Background(), compilePlan(t, g), State{}, testRC)

	require.ErrorIs(t, err, ErrNoAgentInput)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Empty(t, fr.requests, "the runner is never invoked without input")
}

func TestRunAgentNodeEmptyResponse(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(AgentNodeConfig{Name: "agent"}))

	exec := NewExecutor(&fakeRunner{empty: true})
	initial := State{StateKeyInput: []string{"hello"}}
	_, err := exec.Run(context.Background(), compilePlan(t, g), initial, testRC)

	assert.ErrorIs(t, err, ErrEmptyAgentResponse)
}

func TestRunFailurePreservesPartialState(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "done", Output: output("kept")}))
	require.NoError(t, g.AddNode(AgentNodeConfig{Name: "boom"}))
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "never", Output: output("skipped")}))
	require.NoError(t, g.AddEdge("done", "boom"))
	require.NoError(t, g.AddEdge("boom", "never"))

	exec := NewExecutor(&fakeRunner{err: errors.New("runner down")})
	initial := State{StateKeyInput: []string{"hello"}}
	result, err := exec.Run(context.Background(), compilePlan(t, g), initial, testRC)

	require.Error(t, err)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "boom", execErr.Node)
	assert.Equal(t, "kept", execErr.State.Output()["done"],
		"completed nodes' effects are retained in the failure report")
	_, ran := execErr.State.Output()["never"]
	assert.False(t, ran, "nodes after the failure are aborted")

	assert.Equal(t, StatusFailed, result.Status)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a", Output: output("x")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := NewExecutor(&fakeRunner{})
	result, err := exec.Run(ctx, compilePlan(t, g), State{}, testRC)

	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestRunInitialInputRetained(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.AddNode(FunctionNodeConfig{Name: "a", Output: output("x")}))

	exec := NewExecutor(&fakeRunner{})
	initial := State{StateKeyInput: []string{"seed"}}
	result, err := exec.Run(context.Background(), compilePlan(t, g), initial, testRC)
	require.NoError(t, err)

	assert.Equal(t, []string{"seed"}, result.State.Input(), "input is append-only across the run")
}
