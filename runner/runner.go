//
// Tencent is pleased to support the open source community by making trpc-graph-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-graph-go is licensed under the Apache License Version 2.0.
//
//

// Package runner defines the boundary to the external agent-runner capability.
//
// A Runner receives a model identifier, an optional prompt, a tool list and a
// message sequence, and returns a non-empty ordered sequence of messages or
// fails. The graph executor extracts the last message of the response. How the
// runner talks to the underlying language model is outside the graph core;
// provider-backed implementations live in the subpackages.
package runner

import (
	"context"
	"strings"

	"trpc.group/trpc-go/trpc-graph-go/model"
)

// Provider names accepted by the service configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Request carries a single agent invocation.
type Request struct {
	// Model is the model identifier in "<provider>:<model>" form.
	Model string `json:"model"`
	// Prompt is the optional system prompt for the agent.
	Prompt string `json:"prompt,omitempty"`
	// Tools is the list of tool names available to the agent.
	// Always empty in this core.
	Tools []string `json:"tools,omitempty"`
	// Messages is the input message sequence.
	Messages []model.Message `json:"messages"`
}

// Response carries the messages produced by an agent invocation.
type Response struct {
	// Messages is the ordered message sequence, input history included.
	// The last message is the agent's reply.
	Messages []model.Message `json:"messages"`
}

// Runner invokes an agent backed by a language model.
type Runner interface {
	// Run executes the agent and returns its message sequence.
	Run(ctx context.Context, req *Request) (*Response, error)
}

// ModelName strips the "<provider>:" prefix from a model identifier.
// Identifiers without a prefix are returned unchanged.
func ModelName(identifier string) string {
	if _, name, ok := strings.Cut(identifier, ":"); ok {
		return name
	}
	return identifier
}
