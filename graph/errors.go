//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "errors"

// Sentinel errors returned by the graph store, mutation operations, the
// compiler and the executor. Callers match them with errors.Is.
var (
	// ErrGraphNotFound is returned for unknown graph ids.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrNodeNotFound is returned for unknown node identifiers.
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound is returned when removing an edge that does not exist.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrDuplicateNode is returned when adding a node whose name is taken.
	ErrDuplicateNode = errors.New("node already exists")
	// ErrDuplicateEdge is returned when adding an edge pair that exists.
	ErrDuplicateEdge = errors.New("edge already exists")
	// ErrInvalidEdge is returned when an edge leaves End or enters Start.
	ErrInvalidEdge = errors.New("invalid edge")
	// ErrCycleDetected is returned by Compile for cyclic graphs.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrDanglingEdge is returned by Compile for edges whose endpoint is
	// neither a sentinel nor an existing node.
	ErrDanglingEdge = errors.New("dangling edge")
	// ErrEmptyAgentResponse is returned when the agent runner returns zero
	// messages.
	ErrEmptyAgentResponse = errors.New("agent returned no messages")
	// ErrNoAgentInput is returned when an agent node has neither upstream
	// outputs nor run-level input to send to the runner.
	ErrNoAgentInput = errors.New("agent node has no input")
)
