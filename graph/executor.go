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
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-graph-go/log"
	"trpc.group/trpc-go/trpc-graph-go/model"
	"trpc.group/trpc-go/trpc-graph-go/runner"
)

// instrumentName identifies this package's otel tracer.
const instrumentName = "trpc.group/trpc-go/trpc-graph-go/graph"

// Status represents the lifecycle state of a run.
type Status string

const (
	// StatusPending means the run has not started yet.
	StatusPending Status = "pending"
	// StatusRunning means the run is executing nodes.
	StatusRunning Status = "running"
	// StatusSucceeded means every node completed and the state is final.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means a node failed and the run was aborted.
	StatusFailed Status = "failed"
)

// RunResult is the outcome of one run of a compiled plan.
type RunResult struct {
	// Status is the terminal status of the run.
	Status Status
	// State is the merged state: final on success, the pre-failure
	// accumulation on failure.
	State State
	// InvocationID identifies the run in logs and traces.
	InvocationID string
}

// ExecutionError reports a failed node invocation. It carries the state
// merged from every node that completed before the failure; the failing
// node's effects are not committed.
type ExecutionError struct {
	// Node is the identifier of the failing node.
	Node string
	// State is the partial merged state collected before the failure.
	State State
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.Node, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Executor runs compiled plans. Nodes within one run execute sequentially
// in plan order; independent runs may execute concurrently because runs
// share no mutable state.
type Executor struct {
	runner runner.Runner
	schema *StateSchema
	tracer trace.Tracer
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithSchema overrides the state schema used for merging. The default is
// GraphStateSchema.
func WithSchema(schema *StateSchema) ExecutorOption {
	return func(e *Executor) {
		e.schema = schema
	}
}

// NewExecutor creates an executor that dispatches agent nodes to the given
// runner.
func NewExecutor(r runner.Runner, opts ...ExecutorOption) *Executor {
	e := &Executor{
		runner: r,
		schema: GraphStateSchema(),
		tracer: otel.Tracer(instrumentName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the plan against an initial state and a runtime context.
//
// The initial state is merged into the schema defaults, then each step's
// contribution is merged incrementally per the state schema. On node
// failure the run aborts: remaining nodes are skipped, the failing node's
// effects are dropped, and the returned *ExecutionError carries the state
// accumulated so far. The context is checked between nodes; the core does
// not interrupt a node mid-flight.
func (e *Executor) Run(ctx context.Context, plan *Plan, initial State, rc RuntimeContext) (*RunResult, error) {
	result := &RunResult{
		Status:       StatusPending,
		InvocationID: uuid.NewString(),
	}
	ctx, span := e.tracer.Start(ctx, "graph.run", trace.WithAttributes(
		attribute.Int("graph.id", plan.GraphID),
		attribute.String("graph.invocation_id", result.InvocationID),
	))
	defer span.End()

	state := e.schema.ApplyUpdate(e.schema.Init(), initial)
	result.Status = StatusRunning
	log.Debugf("run %s: executing %d nodes of graph %d", result.InvocationID, len(plan.Steps), plan.GraphID)

	for _, step := range plan.Steps {
		select {
		case <-ctx.Done():
			result.Status = StatusFailed
			result.State = state
			return result, &ExecutionError{Node: step.Node.ID, State: state, Err: ctx.Err()}
		default:
		}
		delta, err := e.executeNode(ctx, step, state, rc)
		if err != nil {
			result.Status = StatusFailed
			result.State = state
			log.Errorf("run %s: node %s failed: %v", result.InvocationID, step.Node.ID, err)
			return result, &ExecutionError{Node: step.Node.ID, State: state, Err: err}
		}
		state = e.schema.ApplyUpdate(state, delta)
	}

	result.Status = StatusSucceeded
	result.State = state
	return result, nil
}

// executeNode dispatches one step on the node's concrete config type and
// returns the node's partial state contribution.
func (e *Executor) executeNode(ctx context.Context, step Step, state State, rc RuntimeContext) (State, error) {
	ctx, span := e.tracer.Start(ctx, "graph.node", trace.WithAttributes(
		attribute.String("graph.node.id", step.Node.ID),
		attribute.String("graph.node.kind", string(step.Node.Kind())),
	))
	defer span.End()

	switch cfg := step.Node.Config.(type) {
	case FunctionNodeConfig:
		return functionNodeDelta(cfg), nil
	case AgentNodeConfig:
		return e.agentNodeDelta(ctx, cfg, step.Incoming, state, rc)
	default:
		return nil, fmt.Errorf("unknown node config type %T", step.Node.Config)
	}
}

// functionNodeDelta writes the configured output under the node's name.
// A nil Output writes a null value.
func functionNodeDelta(cfg FunctionNodeConfig) State {
	var value any
	if cfg.Output != nil {
		value = *cfg.Output
	}
	return State{
		StateKeyOutput: map[string]any{cfg.Name: value},
	}
}

// agentNodeDelta collects the node's input messages, invokes the agent
// runner and writes the last reply under the node's name.
func (e *Executor) agentNodeDelta(
	ctx context.Context,
	cfg AgentNodeConfig,
	incoming []string,
	state State,
	rc RuntimeContext,
) (State, error) {
	messages := collectAgentInput(cfg, incoming, state)
	if len(messages) == 0 {
		// Fail before dispatch rather than invoke the runner with an
		// empty conversation.
		return nil, fmt.Errorf("%w: %s", ErrNoAgentInput, cfg.Name)
	}
	req := &runner.Request{
		Model:    rc.ModelIdentifier(),
		Messages: messages,
	}
	if cfg.Prompt != nil {
		req.Prompt = *cfg.Prompt
	}
	resp, err := e.runner.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("agent runner: %w", err)
	}
	if resp == nil || len(resp.Messages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAgentResponse, cfg.Name)
	}
	last := resp.Messages[len(resp.Messages)-1]
	return State{
		StateKeyOutput: map[string]any{cfg.Name: last.Content},
	}, nil
}

// collectAgentInput gathers the agent's input messages. Configured input
// nodes take precedence; otherwise the sources of the node's incoming edges
// are read. Missing or empty outputs are skipped. When no upstream output
// exists, the run's original input seeds the conversation.
func collectAgentInput(cfg AgentNodeConfig, incoming []string, state State) []model.Message {
	sources := cfg.InputNodes
	if len(sources) == 0 {
		sources = incoming
	}
	outputs := state.Output()
	var messages []model.Message
	for _, source := range sources {
		value, ok := outputs[source]
		if !ok {
			continue
		}
		content := stringifyOutput(value)
		if content == "" {
			continue
		}
		messages = append(messages, model.NewUserMessage(content))
	}
	if len(messages) == 0 {
		if input := state.Input(); len(input) > 0 {
			messages = append(messages, model.NewUserMessage(strings.Join(input, "\n")))
		}
	}
	return messages
}

// stringifyOutput renders a node output as message content. Nil outputs
// render as the empty string and are skipped by the caller.
func stringifyOutput(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
