//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

package graph

// NodeKind represents the kind of a node in the graph.
type NodeKind string

const (
	// NodeKindFunction represents a node that writes a configured value.
	NodeKindFunction NodeKind = "function"
	// NodeKindAgent represents a node that delegates to an agent runner.
	NodeKindAgent NodeKind = "agent"
)

// NodeConfig is the configuration of a node. It is a closed sum: exactly
// FunctionNodeConfig and AgentNodeConfig implement it, and the executor
// dispatches on the concrete type. Configurations are immutable once added;
// updates replace them wholesale via Graph.UpdateNode.
type NodeConfig interface {
	// NodeName returns the node identifier the config belongs to.
	NodeName() string

	nodeConfig()
}

// FunctionNodeConfig configures a function node. When executed, the node
// writes Output under its name in the state's output mapping.
type FunctionNodeConfig struct {
	// Name is the node identifier, unique within the graph.
	Name string `json:"name"`
	// Output is the value written to output[Name]. Nil writes a null value.
	Output *string `json:"output,omitempty"`
}

// NodeName returns the node identifier.
func (c FunctionNodeConfig) NodeName() string { return c.Name }

func (FunctionNodeConfig) nodeConfig() {}

// AgentNodeConfig configures an agent node. When executed, the node collects
// upstream outputs as messages, invokes the agent runner, and writes the last
// reply under its name in the state's output mapping.
type AgentNodeConfig struct {
	// Name is the node identifier, unique within the graph.
	Name string `json:"name"`
	// Prompt is the optional system prompt passed to the runner.
	Prompt *string `json:"prompt,omitempty"`
	// InputNodes optionally names the nodes whose outputs feed this agent.
	// When empty, the sources of the node's incoming edges are used.
	InputNodes []string `json:"input_nodes,omitempty"`
}

// NodeName returns the node identifier.
func (c AgentNodeConfig) NodeName() string { return c.Name }

func (AgentNodeConfig) nodeConfig() {}

// KindOf resolves the node kind from the concrete configuration type.
func KindOf(config NodeConfig) NodeKind {
	if _, ok := config.(AgentNodeConfig); ok {
		return NodeKindAgent
	}
	return NodeKindFunction
}

// Node represents a named node in the graph.
type Node struct {
	// ID is the unique identifier of the node within its graph.
	ID string
	// Config is the immutable node configuration.
	Config NodeConfig
}

// Kind returns the kind of the node.
func (n *Node) Kind() NodeKind {
	return KindOf(n.Config)
}

// withName returns a copy of the config with the name replaced. Used by
// UpdateNode so a node keeps its identifier across config replacement.
func withName(config NodeConfig, name string) NodeConfig {
	switch cfg := config.(type) {
	case AgentNodeConfig:
		cfg.Name = name
		return cfg
	case FunctionNodeConfig:
		cfg.Name = name
		return cfg
	default:
		return config
	}
}
